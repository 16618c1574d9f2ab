// Package export renders life tables, decompositions and risk-factor
// results as terminal tables or machine-readable files.
package export

import (
	"fmt"
	"strings"

	"github.com/demostat/lifedecomp/internal/errors"
)

// Format is an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
)

// ValidFormats returns the accepted output format names.
func ValidFormats() []string {
	return []string{string(FormatTable), string(FormatCSV), string(FormatJSON), string(FormatYAML), string(FormatTOML)}
}

// ParseFormat converts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatTable, FormatCSV, FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "":
		return FormatTable, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", errors.NewValidationError(
		fmt.Sprintf("unknown output format %q (valid: %s)", s, strings.Join(ValidFormats(), ", "))).
		WithField("output.format").WithValue(s)
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if f == FormatTable {
		return "txt"
	}
	return string(f)
}

// LifeTableFileName names an exported life table.
func LifeTableFileName(year int, country, sex string, f Format) string {
	return fmt.Sprintf("LifeTable_%d_%s_%s.%s", year, fileSafe(country), fileSafe(sex), f.Ext())
}

// ContributionsFileName names an exported decomposition.
func ContributionsFileName(fromYear, toYear int, country, sex string, f Format) string {
	return fmt.Sprintf("LE_Contributions_%d_vs_%d_%s_%s.%s", fromYear, toYear, fileSafe(country), fileSafe(sex), f.Ext())
}

// RiskContributionsFileName names an exported risk-factor attribution.
func RiskContributionsFileName(fromYear, toYear int, country, sex string, f Format) string {
	return fmt.Sprintf("Risk_Factor_Contributions_%d_vs_%d_%s_%s.%s", fromYear, toYear, fileSafe(country), fileSafe(sex), f.Ext())
}

// ProportionsFileName names exported risk-factor proportions.
func ProportionsFileName(year int, country, sex string, f Format) string {
	return fmt.Sprintf("Risk_Factor_Proportions_%d_%s_%s.%s", year, fileSafe(country), fileSafe(sex), f.Ext())
}

// fileSafe replaces path separators and spaces so names stay one component.
func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, s)
}
