package riskfactor

import (
	"fmt"

	"github.com/demostat/lifedecomp/internal/agegroup"
	"github.com/demostat/lifedecomp/internal/errors"
)

// DefaultResidual names the share of deaths not covered by any listed factor.
const DefaultResidual = "other"

// Cell is one factor's contribution in one age group. Err is set, and Value
// is zero, when the contribution is undefined.
type Cell struct {
	Value float64
	Err   error
}

// Defined reports whether the cell holds a value.
func (c Cell) Defined() bool {
	return c.Err == nil
}

// Attribution holds per-factor, per-age contributions to the life
// expectancy gap, in years.
type Attribution struct {
	// Factors lists factor names in output order; the residual, if any, is last.
	Factors  []string
	Residual string
	Cells    map[string][]Cell
}

// Totals sums each factor's defined cells over all age groups.
func (a *Attribution) Totals() map[string]float64 {
	out := make(map[string]float64, len(a.Factors))
	for _, name := range a.Factors {
		var s float64
		for _, c := range a.Cells[name] {
			if c.Defined() {
				s += c.Value
			}
		}
		out[name] = s
	}
	return out
}

// AgeTotal sums all factors in age group i. The second result is false when
// the age group is degenerate.
func (a *Attribution) AgeTotal(i int) (float64, bool) {
	var s float64
	for _, name := range a.Factors {
		c := a.Cells[name][i]
		if !c.Defined() {
			return 0, false
		}
		s += c.Value
	}
	return s, true
}

// DegenerateAges returns the age indices whose cells are undefined.
func (a *Attribution) DegenerateAges() []int {
	var out []int
	for i := 0; i < agegroup.Count; i++ {
		if _, ok := a.AgeTotal(i); !ok {
			out = append(out, i)
		}
	}
	return out
}

type attributeOptions struct {
	residual string
}

// AttributeOption configures Attribute.
type AttributeOption func(*attributeOptions)

// WithResidual names the residual factor. An empty name disables it, in
// which case factor contributions only sum back to the age-group
// contribution when the shares cover every death.
func WithResidual(name string) AttributeOption {
	return func(o *attributeOptions) {
		o.residual = name
	}
}

// Attribute apportions each age group's contribution across risk factors:
//
//	risk[i][f] = c[i] * (p2[i][f]*m2[i] - p1[i][f]*m1[i]) / (m2[i] - m1[i])
//
// Age groups where the two mortality rates are equal have no defined
// attribution; their cells carry ErrDegenerateAttribution instead of a value.
// Attribute itself fails only on malformed input: wrong lengths, non-finite
// values, or factor sets that differ between the periods (ErrMissingColumn).
func Attribute(contributions, rate1, rate2 []float64, prop1, prop2 Proportions, opts ...AttributeOption) (*Attribution, error) {
	o := attributeOptions{residual: DefaultResidual}
	for _, opt := range opts {
		opt(&o)
	}

	if err := checkSeries(contributions, rate1, rate2); err != nil {
		return nil, err
	}
	factors, err := matchFactors(prop1, prop2)
	if err != nil {
		return nil, err
	}
	if o.residual != "" {
		if _, clash := prop1[o.residual]; clash {
			return nil, errors.NewRiskFactorError(
				"residual name collides with a risk factor", errors.ErrInvalidInput).WithFactor(o.residual)
		}
	}

	out := &Attribution{
		Factors:  factors,
		Residual: o.residual,
		Cells:    make(map[string][]Cell, len(factors)+1),
	}
	for _, name := range factors {
		out.Cells[name] = make([]Cell, agegroup.Count)
	}
	if o.residual != "" {
		out.Factors = append(out.Factors, o.residual)
		out.Cells[o.residual] = make([]Cell, agegroup.Count)
	}

	for i := 0; i < agegroup.Count; i++ {
		m1, m2 := rate1[i], rate2[i]
		if m2 == m1 {
			for _, name := range out.Factors {
				out.Cells[name][i] = Cell{Err: errors.NewRiskFactorError(
					"mortality rates are equal in both periods", errors.ErrDegenerateAttribution).
					WithFactor(name).WithAgeIndex(i).WithSeverity(errors.SeverityWarning)}
			}
			continue
		}

		scale := contributions[i] / (m2 - m1)
		for _, name := range factors {
			out.Cells[name][i] = Cell{Value: scale * (prop2[name][i]*m2 - prop1[name][i]*m1)}
		}
		if o.residual != "" {
			r1, r2 := 1-prop1.Sum(i), 1-prop2.Sum(i)
			out.Cells[o.residual][i] = Cell{Value: scale * (r2*m2 - r1*m1)}
		}
	}

	return out, nil
}

func checkSeries(contributions, rate1, rate2 []float64) error {
	series := []struct {
		name   string
		values []float64
	}{
		{"contributions", contributions},
		{"rate1", rate1},
		{"rate2", rate2},
	}
	for _, s := range series {
		if len(s.values) != agegroup.Count {
			return errors.NewRiskFactorError(
				fmt.Sprintf("%s must have one value per age group", s.name), errors.ErrInvalidInput)
		}
		for i, v := range s.values {
			if !finite(v) {
				return errors.NewRiskFactorError(
					fmt.Sprintf("%s must be finite", s.name), errors.ErrInvalidInput).WithAgeIndex(i)
			}
		}
	}
	return nil
}

// matchFactors returns the sorted factor names shared by both periods.
func matchFactors(prop1, prop2 Proportions) ([]string, error) {
	for name := range prop1 {
		if _, ok := prop2[name]; !ok {
			return nil, errors.NewRiskFactorError(
				"risk factor missing from the second period", errors.ErrMissingColumn).WithFactor(name)
		}
	}
	for name := range prop2 {
		if _, ok := prop1[name]; !ok {
			return nil, errors.NewRiskFactorError(
				"risk factor missing from the first period", errors.ErrMissingColumn).WithFactor(name)
		}
	}

	factors := prop1.Factors()
	for _, name := range factors {
		for _, p := range []Proportions{prop1, prop2} {
			if len(p[name]) != agegroup.Count {
				return nil, errors.NewRiskFactorError(
					"proportions must have one value per age group", errors.ErrInvalidInput).WithFactor(name)
			}
		}
	}
	return factors, nil
}
