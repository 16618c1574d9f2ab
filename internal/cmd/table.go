package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/demostat/lifedecomp/internal/export"
	"github.com/demostat/lifedecomp/internal/watch"
)

func tableCmd(a *app) *cobra.Command {
	var (
		sel   selectionFlags
		year  int
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Build the life table for one population and year",
		Long: `Build an abridged life table (22 age groups, 0 to 95+) from the deaths
and population of one country, sex and year.

With --watch the table is rebuilt whenever the input file changes.`,
		Example: `  lifedecomp table -i data.csv --country Canada --sex Female --year 2019
  lifedecomp table -i data.csv --country Canada --year 2019 -f csv -o out/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !watch {
				return runTable(cmd, a, &sel, year)
			}
			return runTableWatch(cmd, a, &sel, year)
		},
	}

	sel.register(cmd)
	cmd.Flags().IntVarP(&year, "year", "y", 0, "year to build")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rebuild when the input file changes")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func runTable(cmd *cobra.Command, a *app, sel *selectionFlags, year int) error {
	d, err := a.loadDataset(sel.input)
	if err != nil {
		return err
	}
	series, err := d.Select(sel.selection(year))
	if err != nil {
		return err
	}

	logger := a.logger.WithSelection(series.Country, series.Sex).WithYear(year)
	t, err := series.LifeTable()
	if err != nil {
		logger.Warn("life table failed", "error", err)
		return fmt.Errorf("life table for %s: %w", series.Selection, err)
	}
	logger.Info("life table built", "e0", t.E0())

	rep := export.NewLifeTableReport(year, series.Country, series.Sex, t)
	return a.emit(cmd, rep, func(f export.Format) string {
		return export.LifeTableFileName(year, series.Country, series.Sex, f)
	})
}

func runTableWatch(cmd *cobra.Command, a *app, sel *selectionFlags, year int) error {
	w, err := watch.New(sel.input, watch.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	rebuild := func() {
		if err := runTable(cmd, a, sel, year); err != nil {
			cmd.PrintErrln(formatError(err))
		}
	}

	rebuild()
	cmd.PrintErrf("Watching %s for changes (Ctrl+C to stop)\n", w.Path())
	return w.Run(cmd.Context(), rebuild)
}
