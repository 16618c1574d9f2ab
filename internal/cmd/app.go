package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/demostat/lifedecomp/internal/config"
	"github.com/demostat/lifedecomp/internal/dataset"
	"github.com/demostat/lifedecomp/internal/errors"
	"github.com/demostat/lifedecomp/internal/export"
	"github.com/demostat/lifedecomp/internal/logging"
)

// envPrefix namespaces environment overrides, e.g. LIFEDECOMP_OUTPUT_FORMAT.
const envPrefix = "LIFEDECOMP"

// dotEnvFile is read from the working directory before config is loaded.
const dotEnvFile = ".env"

// annotationLenientConfig marks commands that must run even when the
// configuration fails validation.
const annotationLenientConfig = "lenient-config"

// flagKeys binds global flags to their configuration keys.
var flagKeys = map[string]string{
	"format":    "output.format",
	"output":    "output.dir",
	"precision": "output.precision",
	"log-level": "logging.level",
	"log-dir":   "logging.dir",
}

// app is the state shared by one command tree.
type app struct {
	fs     afero.Fs
	v      *viper.Viper
	cfg    *config.Config
	cfgErr error
	logger *logging.Logger
	runID  string
}

func newApp(fs afero.Fs) *app {
	return &app{
		fs:     fs,
		v:      viper.New(),
		cfg:    config.Default(),
		logger: logging.NopLogger(),
	}
}

// init loads .env, the config file, environment and flags, then opens the
// logger.
func (a *app) init(cmd *cobra.Command) error {
	if err := loadDotEnv(a.fs, dotEnvFile); err != nil {
		return err
	}

	a.v.SetFs(a.fs)
	config.SetDefaultsOn(a.v)

	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		a.v.SetConfigFile(configFile)
	} else {
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(config.ConfigDir())
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := config.LoadFrom(a.v)
	if err != nil {
		if cmd.Annotations[annotationLenientConfig] != "true" {
			return err
		}
		a.cfgErr = err
		cfg = config.Default()
	}
	a.cfg = cfg

	var logger *logging.Logger
	if cfg.Logging.Dir == "" {
		logger = logging.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logging.Level)
	} else {
		logger, err = logging.NewLogger(a.fs, cfg.Logging.Dir, cfg.Logging.Level, cfg.Logging.RotationConfig())
		if err != nil {
			return err
		}
	}
	a.runID = uuid.NewString()
	a.logger = logger.WithRun(a.runID).WithCommand(cmd.Name())
	a.logger.Debug("configuration loaded",
		"config_file", a.v.ConfigFileUsed(),
		"output_format", cfg.Output.Format,
		"method", cfg.Decomposition.Method,
	)
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// loadDotEnv sets variables from path that are not already in the
// environment. A missing file is not an error.
func loadDotEnv(fs afero.Fs, path string) error {
	ok, err := afero.Exists(fs, path)
	if err != nil || !ok {
		return err
	}
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	env, err := gotenv.StrictParse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for k, v := range env {
		if _, set := os.LookupEnv(k); !set {
			if err := os.Setenv(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadDataset reads path with the configured columns and format.
func (a *app) loadDataset(path string) (*dataset.Dataset, error) {
	loader := dataset.NewLoader(a.fs,
		dataset.WithColumns(a.cfg.Input.Columns.DatasetColumns()),
		dataset.WithFormat(dataset.Format(a.cfg.Input.Format)),
		dataset.WithLogger(a.logger),
	)
	return loader.Load(path)
}

// renderer builds a renderer for the configured output format, sized to w
// when w is a terminal.
func (a *app) renderer(w io.Writer) (*export.Renderer, error) {
	f, err := export.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	return export.NewRenderer(f,
		export.WithPrecision(a.cfg.Output.Precision),
		export.WithWidth(export.TerminalWidth(w)),
	), nil
}

// fileRenderer is the renderer used for files. Table output becomes CSV
// since styled tables are meant for terminals.
func (a *app) fileRenderer() (*export.Renderer, error) {
	f, err := export.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	if f == export.FormatTable {
		f = export.FormatCSV
	}
	return export.NewRenderer(f, export.WithPrecision(a.cfg.Output.Precision)), nil
}

// emit prints rep to stdout, or writes it to the output directory under the
// name produced by fileName when one is configured.
func (a *app) emit(cmd *cobra.Command, rep export.Report, fileName func(export.Format) string) error {
	out := cmd.OutOrStdout()
	if a.cfg.Output.Dir == "" {
		r, err := a.renderer(out)
		if err != nil {
			return err
		}
		return r.Render(out, rep)
	}

	r, err := a.fileRenderer()
	if err != nil {
		return err
	}
	path, err := export.WriteFile(a.fs, a.cfg.Output.Dir, fileName(r.Format()), r, rep)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	a.logger.Info("wrote output", "path", path)
	_, err = fmt.Fprintf(out, "Wrote %s\n", path)
	return err
}

// formatError renders err for the terminal, naming its kind when known.
func formatError(err error) string {
	if kind := errors.Kind(err); kind != "" {
		return fmt.Sprintf("Error [%s]: %v", kind, err)
	}
	return fmt.Sprintf("Error: %v", err)
}
