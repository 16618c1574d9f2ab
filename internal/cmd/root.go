package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the lifedecomp command tree backed by the OS filesystem.
func NewRootCmd() *cobra.Command {
	return newRootCmd(afero.NewOsFs())
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := newApp(fs)

	rootCmd := &cobra.Command{
		Use:   "lifedecomp",
		Short: "Life tables and life expectancy decomposition",
		Long: `lifedecomp builds abridged life tables from age-grouped deaths and
population, decomposes the change in life expectancy between two years
into age-group contributions (Arriaga), and attributes those contributions
to risk factors such as tobacco, alcohol and drug use.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.config/lifedecomp/config.yaml)")
	flags.StringP("format", "f", "", "output format (table, csv, json, yaml, toml)")
	flags.StringP("output", "o", "", "write results into this directory instead of stdout")
	flags.Int("precision", 0, "decimals shown in table output")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-dir", "", "write logs to this directory instead of stderr")

	rootCmd.AddCommand(
		tableCmd(a),
		batchCmd(a),
		decomposeCmd(a),
		riskCmd(a),
		inspectCmd(a),
		configCmd(a),
		logsCmd(a),
	)
	return rootCmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		rootCmd.PrintErrln(formatError(err))
	}
	return err
}
