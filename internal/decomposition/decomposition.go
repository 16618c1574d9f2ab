// Package decomposition splits the difference in life expectancy at birth
// between two life tables into additive age-group contributions using
// Arriaga's discrete method.
//
// Each contribution has a direct part (the age group's own change in
// person-years per survivor) and an indirect part (the effect of changed
// survivorship on all older ages). Contributions always sum to
// E0(t2) - E0(t1).
package decomposition

import (
	"fmt"
	"math"

	"github.com/demostat/lifedecomp/internal/agegroup"
	"github.com/demostat/lifedecomp/internal/errors"
	"github.com/demostat/lifedecomp/internal/lifetable"
)

// Method selects how contributions are computed.
type Method string

const (
	// MethodArriaga is the classic one-directional Arriaga decomposition,
	// weighting by the survivorship of the first table.
	MethodArriaga Method = "arriaga"
	// MethodSymmetric averages the forward decomposition with the negated
	// reverse decomposition, so swapping the tables negates every row.
	MethodSymmetric Method = "arriaga-symmetric"
)

// ValidMethods returns the accepted method names.
func ValidMethods() []string {
	return []string{string(MethodArriaga), string(MethodSymmetric)}
}

// ParseMethod converts a configured method name to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodArriaga, "":
		return MethodArriaga, nil
	case MethodSymmetric:
		return MethodSymmetric, nil
	}
	return "", errors.NewValidationError(
		fmt.Sprintf("unknown decomposition method %q", s)).WithField("decomposition.method")
}

// Row is one age group's contribution to the life-expectancy gap, in years.
type Row struct {
	AgeGroup     string  `json:"age_group" yaml:"age_group" toml:"age_group"`
	Direct       float64 `json:"direct" yaml:"direct" toml:"direct"`
	Indirect     float64 `json:"indirect" yaml:"indirect" toml:"indirect"`
	Contribution float64 `json:"contribution" yaml:"contribution" toml:"contribution"`
}

// Result holds the per-age contributions and their total.
type Result struct {
	Method Method  `json:"method" yaml:"method" toml:"method"`
	Rows   []Row   `json:"rows" yaml:"rows" toml:"rows"`
	Total  float64 `json:"total" yaml:"total" toml:"total"`
	// Gap is E0 of the second table minus E0 of the first.
	Gap float64 `json:"gap" yaml:"gap" toml:"gap"`
}

// Contributions returns the per-age contributions in row order.
func (r *Result) Contributions() []float64 {
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Contribution
	}
	return out
}

// Verify checks that the contributions reconstruct the gap within a
// relative tolerance.
func (r *Result) Verify(tolerance float64) error {
	if math.Abs(r.Total-r.Gap) <= tolerance*math.Max(1, math.Abs(r.Gap)) {
		return nil
	}
	return errors.NewDecompositionError(
		fmt.Sprintf("contributions sum to %.9g but the life expectancy gap is %.9g", r.Total, r.Gap),
		errors.ErrIdentityMismatch)
}

type options struct {
	method Method
}

// Option configures Decompose.
type Option func(*options)

// WithMethod selects the decomposition method. The default is MethodArriaga.
func WithMethod(m Method) Option {
	return func(o *options) {
		o.method = m
	}
}

// Decompose attributes E0(t2) - E0(t1) to age groups.
//
// The tables must have the same age groups in the same order; otherwise
// Decompose fails with ErrMismatchedAgeGroups.
func Decompose(t1, t2 *lifetable.Table, opts ...Option) (*Result, error) {
	o := options{method: MethodArriaga}
	for _, opt := range opts {
		opt(&o)
	}

	if err := checkAligned(t1, t2); err != nil {
		return nil, err
	}

	var rows []Row
	switch o.method {
	case MethodArriaga:
		rows = arriaga(t1, t2)
	case MethodSymmetric:
		rows = symmetric(t1, t2)
	default:
		return nil, errors.NewValidationError(
			fmt.Sprintf("unknown decomposition method %q", o.method)).WithField("method")
	}

	res := &Result{
		Method: o.method,
		Rows:   rows,
		Gap:    t2.E0() - t1.E0(),
	}
	for _, row := range rows {
		res.Total += row.Contribution
	}
	return res, nil
}

// arriaga computes the forward decomposition weighted by t1's survivorship.
func arriaga(t1, t2 *lifetable.Table) []Row {
	rows := make([]Row, agegroup.Count)
	radix := t1.Row(0).Survivors

	for i := range rows {
		a, b := t1.Row(i), t2.Row(i)
		rows[i].AgeGroup = a.AgeGroup

		if agegroup.IsOpen(i) {
			rows[i].Direct = (a.Survivors / radix) *
				(b.CumulativePersonYears/b.Survivors - a.CumulativePersonYears/a.Survivors)
		} else {
			an, bn := t1.Row(i+1), t2.Row(i+1)
			rows[i].Direct = (a.Survivors / radix) *
				(b.PersonYears/b.Survivors - a.PersonYears/a.Survivors)
			rows[i].Indirect = (bn.CumulativePersonYears / radix) *
				(a.Survivors/b.Survivors - an.Survivors/bn.Survivors)
		}
		rows[i].Contribution = rows[i].Direct + rows[i].Indirect
	}
	return rows
}

// symmetric averages arriaga(t1, t2) and -arriaga(t2, t1).
func symmetric(t1, t2 *lifetable.Table) []Row {
	fwd := arriaga(t1, t2)
	rev := arriaga(t2, t1)

	rows := make([]Row, len(fwd))
	for i := range fwd {
		direct := (fwd[i].Direct - rev[i].Direct) / 2
		indirect := (fwd[i].Indirect - rev[i].Indirect) / 2
		rows[i] = Row{
			AgeGroup:     fwd[i].AgeGroup,
			Direct:       direct,
			Indirect:     indirect,
			Contribution: direct + indirect,
		}
	}
	return rows
}

func checkAligned(t1, t2 *lifetable.Table) error {
	if t1 == nil || t2 == nil {
		return errors.NewDecompositionError("both life tables are required", errors.ErrMismatchedAgeGroups)
	}
	if t1.Len() != agegroup.Count || t2.Len() != agegroup.Count {
		return errors.NewDecompositionError(
			fmt.Sprintf("life tables have %d and %d rows", t1.Len(), t2.Len()),
			errors.ErrMismatchedAgeGroups)
	}
	for i := 0; i < agegroup.Count; i++ {
		if a, b := t1.Row(i).AgeGroup, t2.Row(i).AgeGroup; a != b {
			return errors.NewDecompositionError(
				fmt.Sprintf("age group %q does not match %q", a, b),
				errors.ErrMismatchedAgeGroups).WithAgeIndex(i).WithAgeGroup(a)
		}
		if t1.Row(i).Survivors <= 0 || t2.Row(i).Survivors <= 0 {
			return errors.NewDecompositionError(
				"survivors must be positive in every age group", errors.ErrInvalidInput).
				WithAgeIndex(i).WithAgeGroup(t1.Row(i).AgeGroup)
		}
	}
	return nil
}
