package cmd

import (
	"context"
	"slices"
	"sync"

	"github.com/spf13/cobra"

	"github.com/demostat/lifedecomp/internal/batch"
	"github.com/demostat/lifedecomp/internal/dataset"
	"github.com/demostat/lifedecomp/internal/errors"
	"github.com/demostat/lifedecomp/internal/export"
)

func batchCmd(a *app) *cobra.Command {
	var (
		sel   selectionFlags
		years []int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Build and export life tables for many years",
		Long: `Build one life table per year for a country and sex, in parallel, and
write each to its own file. Without --years every year in the dataset is
built. Files go to --output, or the working directory when unset.

A year that fails does not stop the others; failures are listed in the
summary and the command exits non-zero.`,
		Example: `  lifedecomp batch -i data.csv --country Canada --years 2000,2010,2019 -o tables/`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, a, &sel, years)
		},
	}

	sel.register(cmd)
	yearsFlag(cmd.Flags(), &years, "years to build (default: all years for the selection)")
	return cmd
}

func runBatch(cmd *cobra.Command, a *app, sel *selectionFlags, years []int) error {
	d, err := a.loadDataset(sel.input)
	if err != nil {
		return err
	}

	if len(years) == 0 {
		years = availableYears(d, sel.country, sel.sex)
		if len(years) == 0 {
			return errors.NewNotFoundError("population", sel.country+"/"+sel.sex)
		}
	} else {
		years = slices.Clone(years)
		slices.Sort(years)
		years = slices.Compact(years)
	}

	dir := a.cfg.Output.Dir
	if dir == "" {
		dir = "."
	}
	r, err := a.fileRenderer()
	if err != nil {
		return err
	}

	var (
		mu    sync.Mutex
		files = make(map[int]string, len(years))
	)
	write := func(_ context.Context, res batch.Result) error {
		s := res.Selection
		rep := export.NewLifeTableReport(s.Year, s.Country, s.Sex, res.Table)
		path, err := export.WriteFile(a.fs, dir, export.LifeTableFileName(s.Year, s.Country, s.Sex, r.Format()), r, rep)
		if err != nil {
			return err
		}
		mu.Lock()
		files[s.Year] = path
		mu.Unlock()
		return nil
	}

	runner := batch.NewRunner(
		batch.WithMaxParallel(a.cfg.Batch.MaxParallel),
		batch.WithLogger(a.logger),
		batch.WithHandler(write),
	)
	a.logger.Info("batch started", "years", len(years), "max_parallel", runner.MaxParallel(), "dir", dir)

	results, runErr := runner.Run(cmd.Context(), d, batch.Years(sel.country, sel.sex, years))

	summary := &export.SummaryReport{Country: sel.country, Sex: sel.sex}
	for _, res := range results {
		row := export.SummaryRow{Year: res.Selection.Year, File: files[res.Selection.Year]}
		if res.Table != nil {
			row.E0 = res.Table.E0()
		}
		if res.Err != nil {
			row.Error = res.Err.Error()
		}
		summary.Rows = append(summary.Rows, row)
	}

	out := cmd.OutOrStdout()
	sr, err := a.renderer(out)
	if err != nil {
		return err
	}
	if err := sr.Render(out, summary); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	return batch.Err(results)
}

// availableYears lists the years with records for country and sex.
func availableYears(d *dataset.Dataset, country, sex string) []int {
	var years []int
	for _, rec := range d.Filter(dataset.Filter{Countries: []string{country}, Sexes: []string{sex}}) {
		years = append(years, rec.Year)
	}
	slices.Sort(years)
	return slices.Compact(years)
}
