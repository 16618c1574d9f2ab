package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/demostat/lifedecomp/internal/dataset"
	"github.com/demostat/lifedecomp/internal/decomposition"
	"github.com/demostat/lifedecomp/internal/errors"
	"github.com/demostat/lifedecomp/internal/export"
	"github.com/demostat/lifedecomp/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "output.precision")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// Is reports config failures as invalid input.
func (e ValidationError) Is(target error) bool {
	return target == errors.ErrInvalidInput
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Is reports config failures as invalid input.
func (e ValidationErrors) Is(target error) bool {
	return len(e) > 0 && target == errors.ErrInvalidInput
}

// Upper bounds for numeric settings.
const (
	maxPrecision   = 15
	maxParallel    = 256
	maxLogSizeMB   = 1000 // 1GB
	maxToleranceUB = 1.0
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, c.validateInput()...)
	errs = append(errs, c.validateRisk()...)
	errs = append(errs, c.validateDecomposition()...)
	errs = append(errs, c.validateOutput()...)
	errs = append(errs, c.validateBatch()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

// validateInput validates the InputConfig
func (c *Config) validateInput() []ValidationError {
	var errs []ValidationError

	if c.Input.Format != "" && !slices.Contains(dataset.ValidFormats(), c.Input.Format) {
		errs = append(errs, ValidationError{
			Field:   "input.format",
			Value:   c.Input.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(dataset.ValidFormats(), ", ")),
		})
	}

	cols := c.Input.Columns
	named := []struct {
		field string
		value string
	}{
		{"input.columns.year", cols.Year},
		{"input.columns.country", cols.Country},
		{"input.columns.sex", cols.Sex},
		{"input.columns.age_group", cols.AgeGroup},
		{"input.columns.deaths", cols.Deaths},
		{"input.columns.population", cols.Population},
	}
	for _, name := range sortedKeys(cols.Risk) {
		named = append(named, struct {
			field string
			value string
		}{"input.columns.risk." + name, cols.Risk[name]})
	}

	// Every column must be named, and no two fields may share one
	seen := make(map[string]string, len(named))
	for _, n := range named {
		key := strings.ToLower(strings.TrimSpace(n.value))
		if key == "" {
			errs = append(errs, ValidationError{
				Field:   n.field,
				Value:   n.value,
				Message: "column name must not be empty",
			})
			continue
		}
		if prev, dup := seen[key]; dup {
			errs = append(errs, ValidationError{
				Field:   n.field,
				Value:   n.value,
				Message: fmt.Sprintf("column is already used by %s", prev),
			})
			continue
		}
		seen[key] = n.field
	}

	return errs
}

// validateRisk validates the RiskConfig
func (c *Config) validateRisk() []ValidationError {
	var errs []ValidationError

	known := make(map[string]bool, len(c.Input.Columns.Risk))
	for name := range c.Input.Columns.Risk {
		known[strings.ToLower(name)] = true
	}

	seen := make(map[string]bool, len(c.Risk.Factors))
	for i, f := range c.Risk.Factors {
		field := fmt.Sprintf("risk.factors[%d]", i)
		name := strings.ToLower(f)
		if !known[name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Value:   f,
				Message: fmt.Sprintf("no column configured; known factors: %s", strings.Join(sortedKeys(c.Input.Columns.Risk), ", ")),
			})
		}
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Value:   f,
				Message: "duplicate factor",
			})
		}
		seen[name] = true
	}

	if r := strings.ToLower(c.Risk.ResidualName); r != "" && known[r] {
		errs = append(errs, ValidationError{
			Field:   "risk.residual_name",
			Value:   c.Risk.ResidualName,
			Message: "must not match a risk factor name",
		})
	}

	return errs
}

// validateDecomposition validates the DecompositionConfig
func (c *Config) validateDecomposition() []ValidationError {
	var errs []ValidationError

	if c.Decomposition.Method != "" && !slices.Contains(decomposition.ValidMethods(), c.Decomposition.Method) {
		errs = append(errs, ValidationError{
			Field:   "decomposition.method",
			Value:   c.Decomposition.Method,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(decomposition.ValidMethods(), ", ")),
		})
	}

	if c.Decomposition.Tolerance <= 0 || c.Decomposition.Tolerance >= maxToleranceUB {
		errs = append(errs, ValidationError{
			Field:   "decomposition.tolerance",
			Value:   c.Decomposition.Tolerance,
			Message: "must be between 0 and 1 (exclusive)",
		})
	}

	return errs
}

// validateOutput validates the OutputConfig
func (c *Config) validateOutput() []ValidationError {
	var errs []ValidationError

	if c.Output.Format != "" && !slices.Contains(export.ValidFormats(), c.Output.Format) {
		errs = append(errs, ValidationError{
			Field:   "output.format",
			Value:   c.Output.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(export.ValidFormats(), ", ")),
		})
	}

	if c.Output.Precision < 0 || c.Output.Precision > maxPrecision {
		errs = append(errs, ValidationError{
			Field:   "output.precision",
			Value:   c.Output.Precision,
			Message: fmt.Sprintf("must be between 0 and %d", maxPrecision),
		})
	}

	return errs
}

// validateBatch validates the BatchConfig
func (c *Config) validateBatch() []ValidationError {
	var errs []ValidationError

	if c.Batch.MaxParallel < 0 {
		errs = append(errs, ValidationError{
			Field:   "batch.max_parallel",
			Value:   c.Batch.MaxParallel,
			Message: "must be non-negative (0 uses the number of CPUs)",
		})
	}
	if c.Batch.MaxParallel > maxParallel {
		errs = append(errs, ValidationError{
			Field:   "batch.max_parallel",
			Value:   c.Batch.MaxParallel,
			Message: fmt.Sprintf("exceeds maximum of %d", maxParallel),
		})
	}

	return errs
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errs []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.ContainsFunc(logging.ValidLevels(), func(l string) bool {
		return strings.EqualFold(l, c.Logging.Level)
	}) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.ToLower(strings.Join(logging.ValidLevels(), ", "))),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
