package cmd

import (
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/demostat/lifedecomp/internal/errors"
	"github.com/demostat/lifedecomp/internal/export"
	"github.com/demostat/lifedecomp/internal/riskfactor"
)

func riskCmd(a *app) *cobra.Command {
	var (
		sel     selectionFlags
		year    int
		factors []string
	)

	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Show risk-factor shares of deaths for one population and year",
		Long: `Show, per age group, the share of all deaths attributed to each risk
factor. Age groups with no deaths have no defined share and fail the
command.`,
		Example: `  lifedecomp risk -i data.csv --country Canada --year 2019 --factors tobacco,drug`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected := factors
			if len(selected) == 0 {
				selected = a.cfg.Risk.Factors
			}
			return runRisk(cmd, a, &sel, year, normalizeFactors(selected))
		},
	}

	sel.register(cmd)
	cmd.Flags().IntVarP(&year, "year", "y", 0, "year to inspect")
	cmd.Flags().StringSliceVar(&factors, "factors", nil, "risk factors to show (default: risk.factors, or every factor in the dataset)")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func runRisk(cmd *cobra.Command, a *app, sel *selectionFlags, year int, factors []string) error {
	d, err := a.loadDataset(sel.input)
	if err != nil {
		return err
	}
	series, err := d.Select(sel.selection(year))
	if err != nil {
		return err
	}
	if len(factors) == 0 && len(series.RiskDeaths) == 0 {
		return errors.NewRiskFactorError("dataset has no risk factor columns", errors.ErrMissingColumn)
	}

	props, err := series.Proportions(factors, riskfactor.WithSumCheck(a.cfg.Risk.ValidateSum))
	if err != nil {
		return err
	}
	a.logger.WithSelection(series.Country, series.Sex).WithYear(year).
		Info("proportions extracted", "factors", slices.Sorted(maps.Keys(props)))

	rep := export.NewProportionsReport(year, series.Country, series.Sex, props)
	return a.emit(cmd, rep, func(f export.Format) string {
		return export.ProportionsFileName(year, series.Country, series.Sex, f)
	})
}

// normalizeFactors lowercases and trims factor names and drops blanks and
// duplicates, keeping the first occurrence.
func normalizeFactors(factors []string) []string {
	var out []string
	for _, f := range factors {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
