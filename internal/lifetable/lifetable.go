// Package lifetable builds abridged period life tables from age-grouped
// death and population counts.
//
// A table always has agegroup.Count rows in positional order. Survivorship
// starts from a fixed radix of 100000 and every derived column follows the
// standard abridged construction, with explicit rules for the three
// early-life intervals and the open-ended final interval.
package lifetable

import (
	"math"

	"github.com/demostat/lifedecomp/internal/agegroup"
	"github.com/demostat/lifedecomp/internal/errors"
)

// Radix is the size of the synthetic cohort at age 0.
const Radix = 100000.0

// Row is one age interval of a life table.
type Row struct {
	AgeGroup              string  `json:"age_group" yaml:"age_group" toml:"age_group"`
	Width                 float64 `json:"n" yaml:"n" toml:"n"`
	Deaths                float64 `json:"deaths" yaml:"deaths" toml:"deaths"`
	Population            float64 `json:"population" yaml:"population" toml:"population"`
	MortalityRate         float64 `json:"mortality_rate" yaml:"mortality_rate" toml:"mortality_rate"`
	Separation            float64 `json:"a" yaml:"a" toml:"a"`
	ProbDying             float64 `json:"q" yaml:"q" toml:"q"`
	ProbSurviving         float64 `json:"p" yaml:"p" toml:"p"`
	Survivors             float64 `json:"l" yaml:"l" toml:"l"`
	IntervalDeaths        float64 `json:"d" yaml:"d" toml:"d"`
	PersonYears           float64 `json:"L" yaml:"L" toml:"L"`
	CumulativePersonYears float64 `json:"T" yaml:"T" toml:"T"`
	LifeExpectancy        float64 `json:"e" yaml:"e" toml:"e"`
}

// Table is an immutable abridged life table.
type Table struct {
	rows [agegroup.Count]Row
}

// Rows returns a copy of the table's rows in age order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows[:])
	return out
}

// Row returns the row at age index i.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Len returns the number of rows (always agegroup.Count).
func (t *Table) Len() int {
	return len(t.rows)
}

// E0 returns life expectancy at birth.
func (t *Table) E0() float64 {
	return t.rows[0].LifeExpectancy
}

// Labels returns the age group labels in row order.
func (t *Table) Labels() []string {
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.AgeGroup
	}
	return out
}

// MortalityRates returns the age-specific mortality rates in row order.
func (t *Table) MortalityRates() []float64 {
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.MortalityRate
	}
	return out
}

// FromRows wraps rows produced elsewhere (for example, read back from an
// export) in a Table. Only the row count is checked; the caller is
// responsible for the rows' internal consistency.
func FromRows(rows []Row) (*Table, error) {
	if len(rows) != agegroup.Count {
		return nil, errors.NewLifeTableError(
			"a life table needs one row per age group", errors.ErrInvalidInput).
			WithField("rows")
	}
	t := &Table{}
	copy(t.rows[:], rows)
	return t, nil
}

// Build constructs a life table from deaths and population counts aligned to
// the agegroup order.
//
// Build fails with ErrInvalidInput when either slice has the wrong length,
// holds a non-finite or negative value, when a population is not positive,
// when the open interval has no deaths, or when a mortality rate is too large
// for its interval. It fails with ErrUndefinedLifeExpectancy when the
// synthetic cohort dies out before the open interval.
func Build(deaths, population []float64) (*Table, error) {
	if err := validateInputs(deaths, population); err != nil {
		return nil, err
	}

	t := &Table{}
	r := &t.rows

	for i := range r {
		r[i].AgeGroup = agegroup.Label(i)
		r[i].Width = agegroup.Width(i)
		r[i].Separation = agegroup.Separation(i)
		r[i].Deaths = deaths[i]
		r[i].Population = population[i]
		r[i].MortalityRate = deaths[i] / population[i]
		if err := checkRate(i, r[i].MortalityRate); err != nil {
			return nil, err
		}
		r[i].ProbDying = probDying(i, r[i].Width, r[i].Separation, r[i].MortalityRate)
		if math.IsNaN(r[i].ProbDying) || math.IsInf(r[i].ProbDying, 0) {
			return nil, errors.NewLifeTableError(
				"mortality rate gives no finite probability of dying", errors.ErrInvalidInput).
				WithAgeIndex(i).WithAgeGroup(r[i].AgeGroup).WithField("deaths")
		}
		if r[i].ProbDying > 1 {
			return nil, errors.NewLifeTableError(
				"mortality rate implies a probability of dying above one", errors.ErrInvalidInput).
				WithAgeIndex(i).WithAgeGroup(r[i].AgeGroup).WithField("deaths")
		}
		r[i].ProbSurviving = 1 - r[i].ProbDying
	}

	r[0].Survivors = Radix
	for i := 1; i < len(r); i++ {
		r[i].Survivors = r[i-1].Survivors * r[i-1].ProbSurviving
	}
	for i := range r {
		if r[i].Survivors <= 0 {
			return nil, errors.NewLifeTableError(
				"no survivors enter the interval", errors.ErrUndefinedLifeExpectancy).
				WithAgeIndex(i).WithAgeGroup(r[i].AgeGroup)
		}
	}

	for i := range r {
		r[i].IntervalDeaths = r[i].Survivors * r[i].ProbDying
	}
	r[agegroup.Last].IntervalDeaths = r[agegroup.Last].Survivors

	for i := range r {
		r[i].PersonYears = personYearsRules[i](t, i)
	}

	var cum float64
	for i := len(r) - 1; i >= 0; i-- {
		cum += r[i].PersonYears
		r[i].CumulativePersonYears = cum
	}

	for i := range r {
		r[i].LifeExpectancy = r[i].CumulativePersonYears / r[i].Survivors
	}

	return t, nil
}

// probDying converts a central mortality rate to the probability of dying in
// the interval. The open interval is certain death.
func probDying(i int, n, a, m float64) float64 {
	if agegroup.IsOpen(i) {
		return 1
	}
	return n * m / (1 + (1-a)*m*n)
}

// personYearsRule computes L for row i once l and d are known.
type personYearsRule func(t *Table, i int) float64

// earlyLife weights deaths by the separation factor instead of assuming they
// fall mid-interval.
func earlyLife(t *Table, i int) float64 {
	r := t.rows[i]
	return r.Width * (t.rows[i+1].Survivors + r.Separation*r.IntervalDeaths)
}

// trapezoid is the standard linear approximation.
func trapezoid(t *Table, i int) float64 {
	r := t.rows[i]
	return r.Width * (r.Survivors + t.rows[i+1].Survivors) / 2
}

// openInterval derives person-years from the interval's stationary rate.
// Build guarantees a positive rate for the last row.
func openInterval(t *Table, i int) float64 {
	r := t.rows[i]
	return r.Survivors / r.MortalityRate
}

var personYearsRules = func() (rules [agegroup.Count]personYearsRule) {
	for i := range rules {
		rules[i] = trapezoid
	}
	rules[0], rules[1], rules[2] = earlyLife, earlyLife, earlyLife
	rules[agegroup.Last] = openInterval
	return rules
}()

func validateInputs(deaths, population []float64) error {
	if len(deaths) != agegroup.Count {
		return errors.NewLifeTableError(
			"deaths must have one value per age group", errors.ErrInvalidInput).
			WithField("deaths")
	}
	if len(population) != agegroup.Count {
		return errors.NewLifeTableError(
			"population must have one value per age group", errors.ErrInvalidInput).
			WithField("population")
	}

	for i := 0; i < agegroup.Count; i++ {
		d, p := deaths[i], population[i]
		switch {
		case math.IsNaN(d) || math.IsInf(d, 0) || d < 0:
			return errors.NewLifeTableError(
				"deaths must be a finite non-negative number", errors.ErrInvalidInput).
				WithAgeIndex(i).WithAgeGroup(agegroup.Label(i)).WithField("deaths")
		case math.IsNaN(p) || math.IsInf(p, 0) || p <= 0:
			return errors.NewLifeTableError(
				"population must be a finite positive number", errors.ErrInvalidInput).
				WithAgeIndex(i).WithAgeGroup(agegroup.Label(i)).WithField("population")
		}
	}

	return nil
}

// checkRate rejects rates that overflow or underflow the division, and a
// zero rate in the open interval, whose person-years would be infinite.
func checkRate(i int, m float64) error {
	switch {
	case math.IsNaN(m) || math.IsInf(m, 0):
		return errors.NewLifeTableError(
			"mortality rate is not a finite number", errors.ErrInvalidInput).
			WithAgeIndex(i).WithAgeGroup(agegroup.Label(i)).WithField("deaths")
	case i == agegroup.Last && m == 0:
		return errors.NewLifeTableError(
			"the open interval needs a positive mortality rate", errors.ErrInvalidInput).
			WithAgeIndex(i).WithAgeGroup(agegroup.Label(i)).WithField("deaths")
	}
	return nil
}
