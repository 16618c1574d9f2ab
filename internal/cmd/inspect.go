package cmd

import (
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/demostat/lifedecomp/internal/dataset"
	"github.com/demostat/lifedecomp/internal/export"
)

type inspectOptions struct {
	input     string
	records   bool
	years     []int
	countries []string
	sexes     []string
	ages      []string
}

func (o *inspectOptions) filtered() bool {
	return o.records || len(o.years) > 0 || len(o.countries) > 0 || len(o.sexes) > 0 || len(o.ages) > 0
}

func inspectCmd(a *app) *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show what a dataset contains",
		Long: `Without filters, list the years, countries and sexes available in a
dataset, the number of records skipped for non-standard age groups, and
which configured risk columns are missing.

With --records or any filter, list the matching raw records instead.`,
		Example: `  lifedecomp inspect -i data.csv
  lifedecomp inspect -i data.csv --countries Canada --years 2019 --ages "<1 year,95+ years"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, a, &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "dataset file (csv, json or yaml)")
	flags.BoolVar(&opts.records, "records", false, "list records instead of a summary")
	yearsFlag(flags, &opts.years, "only these years")
	flags.StringSliceVar(&opts.countries, "countries", nil, "only these countries")
	flags.StringSliceVar(&opts.sexes, "sexes", nil, "only these sexes")
	flags.StringSliceVar(&opts.ages, "ages", nil, "only these age groups")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runInspect(cmd *cobra.Command, a *app, opts *inspectOptions) error {
	d, err := a.loadDataset(opts.input)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	r, err := a.renderer(out)
	if err != nil {
		return err
	}

	if !opts.filtered() {
		return r.Render(out, export.NewInventoryReport(d))
	}

	records := d.Filter(dataset.Filter{
		Years:     opts.years,
		Countries: opts.countries,
		Sexes:     opts.sexes,
		AgeGroups: opts.ages,
	})
	a.logger.Debug("filtered records", "matched", len(records), "total", d.Len())
	return r.Render(out, export.NewRecordsReport(records, presentFactors(a, d)))
}

// presentFactors lists the configured risk factors whose columns exist in d.
func presentFactors(a *app, d *dataset.Dataset) []string {
	missing := d.MissingRisk()
	var out []string
	for _, name := range slices.Sorted(maps.Keys(a.cfg.Input.Columns.DatasetColumns().Risk)) {
		if !slices.Contains(missing, name) {
			out = append(out, name)
		}
	}
	return out
}
