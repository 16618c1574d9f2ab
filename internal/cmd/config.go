package cmd

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/demostat/lifedecomp/internal/config"
)

// riskColumnPrefix is the key prefix for per-factor column names, which
// are free-form and therefore absent from the defaults.
const riskColumnPrefix = "input.columns.risk."

func configCmd(a *app) *cobra.Command {
	lenient := map[string]string{annotationLenientConfig: "true"}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or modify lifedecomp configuration",
		Long: `View or modify lifedecomp configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
		Annotations: lenient,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, a)
		},
	}

	showCmd := &cobra.Command{
		Use:         "show",
		Short:       "Show current configuration",
		Annotations: lenient,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, a)
		},
	}

	validateCmd := &cobra.Command{
		Use:         "validate",
		Short:       "Check the configuration for errors",
		Annotations: lenient,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfgErr != nil {
				return a.cfgErr
			}
			cmd.Println("Configuration is valid")
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the config file.

Keys use dot notation, e.g.:
  lifedecomp config set decomposition.method arriaga-symmetric
  lifedecomp config set output.precision 6
  lifedecomp config set risk.factors tobacco,alcohol
  lifedecomp config set input.columns.risk.obesity obesity_deaths

Run 'lifedecomp config show' to list every key.`,
		Args:        cobra.ExactArgs(2),
		Annotations: lenient,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, a, args[0], args[1])
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a default config file",
		Long:        `Create a default config file at ~/.config/lifedecomp/config.yaml with all available options.`,
		Annotations: lenient,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, a, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	pathCmd := &cobra.Command{
		Use:         "path",
		Short:       "Show the config file path",
		Annotations: lenient,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Println(configPath(a))
			return nil
		},
	}

	cmd.AddCommand(showCmd, validateCmd, setCmd, initCmd, pathCmd)
	return cmd
}

// configPath is the file in use, or the default location when none was read.
func configPath(a *app) string {
	if used := a.v.ConfigFileUsed(); used != "" {
		return used
	}
	return config.ConfigFile()
}

func runConfigShow(cmd *cobra.Command, a *app) error {
	cmd.Println("Current configuration:")
	cmd.Println()

	// Show where config is being read from
	if used := a.v.ConfigFileUsed(); used != "" {
		cmd.Printf("Config file: %s\n", used)
	} else {
		cmd.Println("Config file: (none - using defaults)")
	}
	if a.cfgErr != nil {
		cmd.Printf("Warning: %v\n", a.cfgErr)
	}
	cmd.Println()

	out, err := yaml.Marshal(a.v.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	cmd.Print(string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, a *app, key, value string) error {
	key = strings.ToLower(key)

	var typed any
	if strings.HasPrefix(key, riskColumnPrefix) && len(key) > len(riskColumnPrefix) {
		typed = value
	} else {
		if !slices.Contains(a.v.AllKeys(), key) {
			return fmt.Errorf("unknown configuration key: %s\nRun 'lifedecomp config show' to see valid keys", key)
		}
		var err error
		if typed, err = castLike(a.v.Get(key), value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}

	a.v.Set(key, typed)
	if _, err := config.LoadFrom(a.v); err != nil {
		return err
	}

	path := configPath(a)
	if err := a.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := a.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cmd.Printf("Set %s = %v\n", key, typed)
	cmd.Printf("Config saved to %s\n", path)
	return nil
}

// castLike converts value to the type of current.
func castLike(current any, value string) (any, error) {
	switch current.(type) {
	case bool:
		return cast.ToBoolE(value)
	case int:
		return cast.ToIntE(value)
	case float64:
		return cast.ToFloat64E(value)
	case []string, []any:
		var items []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		return items, nil
	}
	return value, nil
}

func runConfigInit(cmd *cobra.Command, a *app, force bool) error {
	path := config.ConfigFile()

	exists, err := afero.Exists(a.fs, path)
	if err != nil {
		return err
	}
	if exists && !force {
		return fmt.Errorf("config file already exists at %s\nUse 'lifedecomp config set' to modify values, or --force to overwrite", path)
	}

	if err := a.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := afero.WriteFile(a.fs, path, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cmd.Printf("Created config file at %s\n", path)
	return nil
}

const configTemplate = `# lifedecomp configuration
# Every value can also be set with a LIFEDECOMP_ environment variable,
# e.g. LIFEDECOMP_OUTPUT_FORMAT=csv or LIFEDECOMP_DECOMPOSITION_METHOD=arriaga-symmetric.

input:
  # Dataset format: auto (by file extension), csv, json, yaml
  format: auto
  # Column names in the dataset. Matching ignores case.
  columns:
    year: year
    country: location_name
    sex: sex_name
    age_group: age_name
    deaths: total_deaths
    population: population
    # Risk factor name -> column holding its deaths
    risk:
      tobacco: tobacco_deaths
      alcohol: alc_deaths
      drug: drug_deaths

risk:
  # Factors to attribute. Empty means every risk column in the dataset.
  factors: []
  # Reject age groups whose factor shares add up to more than one
  validate_sum: true
  # Name of the share not covered by any factor. Empty disables it.
  residual_name: other

decomposition:
  # Method: arriaga, arriaga-symmetric
  method: arriaga
  # Relative error allowed between summed contributions and the gap
  tolerance: 1.0e-06

output:
  # Format: table, csv, json, yaml, toml
  format: table
  # Write files here instead of printing. Batch runs default to "."
  dir: ""
  # Decimals shown in table output
  precision: 4

batch:
  # Concurrent life table builds. 0 uses the number of CPUs.
  max_parallel: 0

logging:
  # Level: debug, info, warn, error
  level: warn
  # Write logs to lifedecomp.log in this directory. Empty logs to stderr.
  dir: ""
  max_size_mb: 10
  max_backups: 3
  compress: false
`
