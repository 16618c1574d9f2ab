package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/demostat/lifedecomp/internal/agegroup"
	"github.com/demostat/lifedecomp/internal/dataset"
	"github.com/demostat/lifedecomp/internal/decomposition"
	"github.com/demostat/lifedecomp/internal/errors"
	"github.com/demostat/lifedecomp/internal/export"
	"github.com/demostat/lifedecomp/internal/lifetable"
	"github.com/demostat/lifedecomp/internal/riskfactor"
)

type decomposeOptions struct {
	sel     selectionFlags
	years   []int
	method  string
	risk    bool
	factors []string
}

func decomposeCmd(a *app) *cobra.Command {
	var opts decomposeOptions

	cmd := &cobra.Command{
		Use:   "decompose",
		Short: "Decompose the change in life expectancy between two years",
		Long: `Split the difference in life expectancy at birth between two years into
per-age-group contributions using Arriaga's method. The earlier year is
always the reference period.

With --risk each contribution is further attributed to the risk factors
in the dataset (tobacco, alcohol, drugs...) plus a residual for all other
causes.`,
		Example: `  lifedecomp decompose -i data.csv --country Canada --years 2000,2019
  lifedecomp decompose -i data.csv --country Canada --years 2000,2019 --risk --factors tobacco,alcohol`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDecompose(cmd, a, &opts)
		},
	}

	opts.sel.register(cmd)
	yearsFlag(cmd.Flags(), &opts.years, "the two years to compare, e.g. 2000,2019")
	cmd.Flags().StringVarP(&opts.method, "method", "m", "",
		fmt.Sprintf("decomposition method (%v)", decomposition.ValidMethods()))
	cmd.Flags().BoolVar(&opts.risk, "risk", false, "attribute contributions to risk factors")
	cmd.Flags().StringSliceVar(&opts.factors, "factors", nil, "risk factors to attribute (default: risk.factors, or every factor in the dataset)")
	_ = cmd.MarkFlagRequired("years")
	return cmd
}

func runDecompose(cmd *cobra.Command, a *app, opts *decomposeOptions) error {
	fromYear, toYear, err := decompositionYears(opts.years)
	if err != nil {
		return err
	}

	methodName := a.cfg.Decomposition.Method
	if opts.method != "" {
		methodName = opts.method
	}
	method, err := decomposition.ParseMethod(methodName)
	if err != nil {
		return err
	}

	d, err := a.loadDataset(opts.sel.input)
	if err != nil {
		return err
	}
	s1, t1, err := buildPeriod(d, opts.sel.selection(fromYear))
	if err != nil {
		return err
	}
	s2, t2, err := buildPeriod(d, opts.sel.selection(toYear))
	if err != nil {
		return err
	}

	logger := a.logger.WithSelection(s1.Country, s1.Sex).With("from", fromYear, "to", toYear)

	res, err := decomposition.Decompose(t1, t2, decomposition.WithMethod(method))
	if err != nil {
		return err
	}
	if err := res.Verify(a.cfg.Decomposition.Tolerance); err != nil {
		logger.Error("decomposition does not reconstruct the gap", "error", err)
		return err
	}
	logger.Info("decomposition complete", "method", string(method), "gap", res.Gap, "total", res.Total)

	var attr *riskfactor.Attribution
	if opts.risk {
		factors := opts.factors
		if len(factors) == 0 {
			factors = a.cfg.Risk.Factors
		}
		if attr, err = attribute(a, s1, s2, t1, t2, res, factors); err != nil {
			return err
		}
		if ages := attr.DegenerateAges(); len(ages) > 0 {
			labels := make([]string, len(ages))
			for i, idx := range ages {
				labels[i] = agegroup.Label(idx)
			}
			logger.Warn("risk attribution undefined where mortality did not change", "age_groups", labels)
		}
	}

	rep := export.NewDecompositionReport(s1.Country, s1.Sex,
		export.Period{Year: fromYear, Table: t1},
		export.Period{Year: toYear, Table: t2},
		res, attr)
	return a.emit(cmd, rep, func(f export.Format) string {
		if attr != nil {
			return export.RiskContributionsFileName(fromYear, toYear, s1.Country, s1.Sex, f)
		}
		return export.ContributionsFileName(fromYear, toYear, s1.Country, s1.Sex, f)
	})
}

// buildPeriod selects one year and builds its life table.
func buildPeriod(d *dataset.Dataset, sel dataset.Selection) (*dataset.Series, *lifetable.Table, error) {
	series, err := d.Select(sel)
	if err != nil {
		return nil, nil, err
	}
	t, err := series.LifeTable()
	if err != nil {
		return nil, nil, fmt.Errorf("life table for %s: %w", sel, err)
	}
	return series, t, nil
}

// attribute extracts both periods' proportions and attributes the
// contributions. Without explicit factors every factor column of the first
// period is used for both.
func attribute(a *app, s1, s2 *dataset.Series, t1, t2 *lifetable.Table, res *decomposition.Result, factors []string) (*riskfactor.Attribution, error) {
	factors = normalizeFactors(factors)
	if len(factors) == 0 {
		factors = slices.Sorted(maps.Keys(s1.RiskDeaths))
	}
	if len(factors) == 0 {
		return nil, errors.NewRiskFactorError("dataset has no risk factor columns", errors.ErrMissingColumn)
	}

	check := riskfactor.WithSumCheck(a.cfg.Risk.ValidateSum)
	p1, err := s1.Proportions(factors, check)
	if err != nil {
		return nil, fmt.Errorf("proportions for %s: %w", s1.Selection, err)
	}
	p2, err := s2.Proportions(factors, check)
	if err != nil {
		return nil, fmt.Errorf("proportions for %s: %w", s2.Selection, err)
	}

	return riskfactor.Attribute(res.Contributions(), t1.MortalityRates(), t2.MortalityRates(), p1, p2,
		riskfactor.WithResidual(a.cfg.Risk.ResidualName))
}
