// Package dataset loads age-grouped death and population records and
// selects the 22-row series a life table is built from.
package dataset

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/demostat/lifedecomp/internal/agegroup"
	"github.com/demostat/lifedecomp/internal/errors"
	"github.com/demostat/lifedecomp/internal/lifetable"
	"github.com/demostat/lifedecomp/internal/riskfactor"
	"github.com/sahilm/fuzzy"
)

// maxSuggestions caps the "did you mean" list on NotFound errors.
const maxSuggestions = 3

// Record is one input row: deaths and population for a single age group.
type Record struct {
	Year       int                `json:"year" yaml:"year" toml:"year"`
	Country    string             `json:"country" yaml:"country" toml:"country"`
	Sex        string             `json:"sex" yaml:"sex" toml:"sex"`
	AgeGroup   string             `json:"age_group" yaml:"age_group" toml:"age_group"`
	Deaths     float64            `json:"deaths" yaml:"deaths" toml:"deaths"`
	Population float64            `json:"population" yaml:"population" toml:"population"`
	Risk       map[string]float64 `json:"risk,omitempty" yaml:"risk,omitempty" toml:"risk,omitempty"`

	ageIndex int
	line     int
}

// AgeIndex returns the record's position in the standard age grouping, or
// -1 if its label is not one of the standard groups.
func (r Record) AgeIndex() int {
	return r.ageIndex
}

// Selection identifies one population in one year.
type Selection struct {
	Year    int
	Country string
	Sex     string
}

func (s Selection) String() string {
	return fmt.Sprintf("%d/%s/%s", s.Year, s.Country, s.Sex)
}

// Series holds a selection's deaths and population in age-group order.
type Series struct {
	Selection
	Deaths     []float64
	Population []float64
	// RiskDeaths maps a risk factor to its deaths per age group. Only factors
	// present in the source are included.
	RiskDeaths map[string][]float64
}

// LifeTable builds the life table for the series.
func (s *Series) LifeTable() (*lifetable.Table, error) {
	return lifetable.Build(s.Deaths, s.Population)
}

// Proportions extracts risk-factor shares of total deaths. A factor named in
// factors but absent from the source fails with ErrMissingColumn.
func (s *Series) Proportions(factors []string, opts ...riskfactor.ExtractOption) (riskfactor.Proportions, error) {
	return riskfactor.Extract(s.RiskDeaths, s.Deaths, factors, opts...)
}

// Dataset is an immutable, ordered batch of records.
type Dataset struct {
	path        string
	records     []Record
	missingRisk []string
	skipped     int
}

// New builds a Dataset from records already in memory. Records whose age
// group is not one of the standard labels are kept but never selected.
func New(records []Record) *Dataset {
	d := &Dataset{records: make([]Record, len(records))}
	for i, r := range records {
		r.ageIndex = -1
		if idx, err := agegroup.Lookup(r.AgeGroup); err == nil {
			r.ageIndex = idx
		} else {
			d.skipped++
		}
		if r.line == 0 {
			r.line = i + 1
		}
		d.records[i] = r
	}
	return d
}

// Path returns the file the dataset was loaded from, if any.
func (d *Dataset) Path() string { return d.path }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Records returns a copy of all records in input order.
func (d *Dataset) Records() []Record {
	return slices.Clone(d.records)
}

// Skipped returns how many records carry an age group outside the
// standard grouping (for example an "All ages" total).
func (d *Dataset) Skipped() int { return d.skipped }

// MissingRisk lists configured risk factors whose column was absent.
func (d *Dataset) MissingRisk() []string {
	return slices.Clone(d.missingRisk)
}

// Years returns the distinct years in ascending order.
func (d *Dataset) Years() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, r := range d.records {
		if _, ok := seen[r.Year]; !ok {
			seen[r.Year] = struct{}{}
			out = append(out, r.Year)
		}
	}
	slices.Sort(out)
	return out
}

// Countries returns the distinct countries in ascending order.
func (d *Dataset) Countries() []string {
	return d.distinct(func(r Record) string { return r.Country })
}

// Sexes returns the distinct sexes in ascending order.
func (d *Dataset) Sexes() []string {
	return d.distinct(func(r Record) string { return r.Sex })
}

func (d *Dataset) distinct(field func(Record) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.records {
		v := field(r)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// Filter restricts Dataset.Filter output. Empty fields match everything.
type Filter struct {
	Years     []int
	Countries []string
	Sexes     []string
	AgeGroups []string
}

// Filter returns the records matching every non-empty criterion, in input
// order. Text comparisons ignore case.
func (d *Dataset) Filter(f Filter) []Record {
	var out []Record
	for _, r := range d.records {
		if len(f.Years) > 0 && !slices.Contains(f.Years, r.Year) {
			continue
		}
		if !matchAny(f.Countries, r.Country) || !matchAny(f.Sexes, r.Sex) || !matchAny(f.AgeGroups, r.AgeGroup) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchAny(values []string, s string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

// Select returns the series for sel with exactly one row per age group,
// ordered by the standard grouping. Country and sex match case-insensitively.
//
// A selection with no records fails with a NotFoundError carrying close
// matches. Duplicate or missing age groups fail with ErrInvalidInput.
func (d *Dataset) Select(sel Selection) (*Series, error) {
	var matched []Record
	for _, r := range d.records {
		if r.Year == sel.Year && strings.EqualFold(r.Country, sel.Country) && strings.EqualFold(r.Sex, sel.Sex) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, d.notFound(sel)
	}

	s := &Series{
		Selection:  sel,
		Deaths:     make([]float64, agegroup.Count),
		Population: make([]float64, agegroup.Count),
		RiskDeaths: make(map[string][]float64),
	}
	// Use the dataset's spelling of the names.
	s.Country, s.Sex = matched[0].Country, matched[0].Sex

	var seen [agegroup.Count]int
	for _, r := range matched {
		i := r.ageIndex
		if i < 0 {
			continue
		}
		if seen[i] != 0 {
			return nil, errors.NewDatasetError(
				fmt.Sprintf("duplicate age group %q for %s (first seen on line %d)", r.AgeGroup, sel, seen[i]),
				errors.ErrInvalidInput).WithPath(d.path).WithLine(r.line)
		}
		seen[i] = r.line

		s.Deaths[i] = r.Deaths
		s.Population[i] = r.Population
		for factor, v := range r.Risk {
			if s.RiskDeaths[factor] == nil {
				s.RiskDeaths[factor] = make([]float64, agegroup.Count)
			}
			s.RiskDeaths[factor][i] = v
		}
	}

	var missing []string
	for i, line := range seen {
		if line == 0 {
			missing = append(missing, agegroup.Label(i))
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewDatasetError(
			fmt.Sprintf("%s is missing age groups: %s", sel, strings.Join(missing, ", ")),
			errors.ErrInvalidInput).WithPath(d.path)
	}

	return s, nil
}

// notFound explains which part of sel has no records.
func (d *Dataset) notFound(sel Selection) error {
	years := d.Years()
	if !slices.Contains(years, sel.Year) {
		return errors.NewNotFoundError("year", strconv.Itoa(sel.Year)).
			WithSuggestions(nearestYears(years, sel.Year)...)
	}
	if countries := d.Countries(); !containsFold(countries, sel.Country) {
		return errors.NewNotFoundError("country", sel.Country).WithSuggestions(suggest(sel.Country, countries)...)
	}
	if sexes := d.Sexes(); !containsFold(sexes, sel.Sex) {
		return errors.NewNotFoundError("sex", sel.Sex).WithSuggestions(suggest(sel.Sex, sexes)...)
	}
	return errors.NewNotFoundError("selection", sel.String())
}

func containsFold(values []string, s string) bool {
	return slices.ContainsFunc(values, func(v string) bool { return strings.EqualFold(v, s) })
}

// suggest returns up to maxSuggestions candidates that fuzzily match query.
// When nothing matches as a subsequence it falls back to a shared prefix,
// which catches transposed letters.
func suggest(query string, candidates []string) []string {
	var out []string
	for _, m := range fuzzy.Find(query, candidates) {
		out = append(out, m.Str)
		if len(out) == maxSuggestions {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}

	q := []rune(strings.ToLower(query))
	if len(q) < 2 {
		return nil
	}
	prefix := string(q[:2])
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), prefix) {
			out = append(out, c)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

// nearestYears returns up to maxSuggestions available years closest to year.
func nearestYears(years []int, year int) []string {
	sorted := slices.Clone(years)
	slices.SortStableFunc(sorted, func(a, b int) int {
		return abs(a-year) - abs(b-year)
	})
	var out []string
	for _, y := range sorted {
		out = append(out, strconv.Itoa(y))
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
