// Package riskfactor splits age-group life-expectancy contributions across
// named mortality risk factors (for example tobacco, alcohol and drugs).
//
// Extract turns per-factor death counts into shares of total deaths for one
// period; Attribute combines two periods' shares with their mortality rates
// to apportion each age group's decomposition contribution.
package riskfactor

import (
	"fmt"
	"math"
	"slices"

	"github.com/demostat/lifedecomp/internal/agegroup"
	"github.com/demostat/lifedecomp/internal/errors"
)

// sumSlack absorbs rounding when checking that shares add up to at most one.
const sumSlack = 1e-9

// Proportions maps a risk factor name to its share of total deaths in each
// age group.
type Proportions map[string][]float64

// Factors returns the factor names in sorted order.
func (p Proportions) Factors() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Sum returns the combined share of all factors in age group i.
func (p Proportions) Sum(i int) float64 {
	var s float64
	for _, v := range p {
		s += v[i]
	}
	return s
}

type extractOptions struct {
	checkSum bool
}

// ExtractOption configures Extract.
type ExtractOption func(*extractOptions)

// WithSumCheck rejects age groups whose factor shares add up to more than
// one. It is off by default because source data may count a death under
// several factors.
func WithSumCheck(enabled bool) ExtractOption {
	return func(o *extractOptions) {
		o.checkSum = enabled
	}
}

// Extract computes each factor's share of total deaths per age group.
//
// Every name in required must be a key of deathsByFactor, otherwise Extract
// fails with ErrMissingColumn. When required is empty every key is used.
// An age group with zero total deaths fails with ErrUndefinedProportion.
func Extract(deathsByFactor map[string][]float64, totalDeaths []float64, required []string, opts ...ExtractOption) (Proportions, error) {
	var o extractOptions
	for _, opt := range opts {
		opt(&o)
	}

	factors := required
	if len(factors) == 0 {
		factors = make([]string, 0, len(deathsByFactor))
		for name := range deathsByFactor {
			factors = append(factors, name)
		}
		slices.Sort(factors)
	}

	if len(totalDeaths) != agegroup.Count {
		return nil, errors.NewRiskFactorError(
			"total deaths must have one value per age group", errors.ErrInvalidInput)
	}
	for _, name := range factors {
		counts, ok := deathsByFactor[name]
		if !ok {
			return nil, errors.NewRiskFactorError(
				"risk factor column is missing", errors.ErrMissingColumn).WithFactor(name)
		}
		if len(counts) != agegroup.Count {
			return nil, errors.NewRiskFactorError(
				"risk factor deaths must have one value per age group", errors.ErrInvalidInput).WithFactor(name)
		}
	}

	props := make(Proportions, len(factors))
	for _, name := range factors {
		props[name] = make([]float64, agegroup.Count)
	}

	for i, total := range totalDeaths {
		if !finite(total) || total < 0 {
			return nil, errors.NewRiskFactorError(
				"total deaths must be a finite non-negative number", errors.ErrInvalidInput).WithAgeIndex(i)
		}
		if total == 0 {
			return nil, errors.NewRiskFactorError(
				"total deaths is zero", errors.ErrUndefinedProportion).WithAgeIndex(i)
		}

		for _, name := range factors {
			d := deathsByFactor[name][i]
			if !finite(d) || d < 0 {
				return nil, errors.NewRiskFactorError(
					"risk factor deaths must be a finite non-negative number", errors.ErrInvalidInput).
					WithFactor(name).WithAgeIndex(i)
			}
			if d > total {
				return nil, errors.NewRiskFactorError(
					fmt.Sprintf("%g deaths exceed the total of %g", d, total), errors.ErrInvalidInput).
					WithFactor(name).WithAgeIndex(i)
			}
			props[name][i] = d / total
		}

		if o.checkSum {
			if s := props.Sum(i); s > 1+sumSlack {
				return nil, errors.NewRiskFactorError(
					fmt.Sprintf("factor shares add up to %.6g", s), errors.ErrInvalidInput).WithAgeIndex(i)
			}
		}
	}

	return props, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
