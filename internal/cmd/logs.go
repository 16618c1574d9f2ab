package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/demostat/lifedecomp/internal/logging"
)

type logsOptions struct {
	dir     string
	tail    int
	level   string
	since   string
	run     string
	command string
	country string
	year    int
	grep    string
}

func logsCmd(a *app) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View run logs",
		Long: `View and filter the log file written when logging.dir is set.

Examples:
  # Show the last 50 entries
  lifedecomp logs

  # Show everything from one run
  lifedecomp logs --run 3f2a91c0 -n 0

  # Warnings and errors from the last hour
  lifedecomp logs --level warn --since 1h

  # Entries for one population and year
  lifedecomp logs --country Canada --year 2019`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, a, &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.dir, "dir", "", "log directory (default: logging.dir)")
	flags.IntVarP(&opts.tail, "tail", "n", 50, "number of entries to show (0 for all)")
	flags.StringVar(&opts.level, "level", "", "filter by minimum level (debug/info/warn/error)")
	flags.StringVar(&opts.since, "since", "", "show entries since duration ago (e.g., 1h, 30m)")
	flags.StringVar(&opts.run, "run", "", "only entries from this run id (prefix)")
	flags.StringVar(&opts.command, "cmd", "", "only entries from this command")
	flags.StringVar(&opts.country, "country", "", "only entries for this country")
	flags.IntVar(&opts.year, "year", 0, "only entries for this year")
	flags.StringVar(&opts.grep, "grep", "", "only entries whose message contains this text")
	return cmd
}

func runLogs(cmd *cobra.Command, a *app, opts *logsOptions) error {
	dir := opts.dir
	if dir == "" {
		dir = a.cfg.Logging.Dir
	}
	if dir == "" {
		return fmt.Errorf("file logging is disabled\nSet logging.dir or pass --dir to read a log directory")
	}

	filter := logging.Filter{
		RunID:    opts.run,
		Command:  opts.command,
		Country:  opts.country,
		Year:     opts.year,
		Contains: opts.grep,
	}
	if opts.level != "" {
		filter.Level = logging.ParseLevel(opts.level)
	}
	if opts.since != "" {
		d, err := time.ParseDuration(opts.since)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.Since = time.Now().Add(-d)
	}

	entries, err := logging.ReadEntries(a.fs, dir)
	if err != nil {
		return err
	}
	entries = logging.FilterEntries(entries, filter)

	// Apply tail limit
	if opts.tail > 0 && len(entries) > opts.tail {
		entries = entries[len(entries)-opts.tail:]
	}

	if len(entries) == 0 {
		cmd.Println("No matching log entries found.")
		return nil
	}
	return logging.WriteText(cmd.OutOrStdout(), entries)
}
