package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/demostat/lifedecomp/internal/dataset"
	"github.com/demostat/lifedecomp/internal/logging"
	"github.com/demostat/lifedecomp/internal/riskfactor"
)

// Config represents the complete lifedecomp configuration
type Config struct {
	Input         InputConfig         `mapstructure:"input"`
	Risk          RiskConfig          `mapstructure:"risk"`
	Decomposition DecompositionConfig `mapstructure:"decomposition"`
	Output        OutputConfig        `mapstructure:"output"`
	Batch         BatchConfig         `mapstructure:"batch"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// InputConfig controls how datasets are read
type InputConfig struct {
	// Format forces the dataset format.
	// Options: "auto", "csv", "json", "yaml" (default: "auto", by file extension)
	Format string `mapstructure:"format"`

	// Columns maps dataset fields to column names in the input
	Columns ColumnsConfig `mapstructure:"columns"`
}

// ColumnsConfig names the input columns. Matching ignores case.
type ColumnsConfig struct {
	Year       string `mapstructure:"year"`
	Country    string `mapstructure:"country"`
	Sex        string `mapstructure:"sex"`
	AgeGroup   string `mapstructure:"age_group"`
	Deaths     string `mapstructure:"deaths"`
	Population string `mapstructure:"population"`

	// Risk maps a risk factor name to the column holding its death count
	Risk map[string]string `mapstructure:"risk"`
}

// RiskConfig controls risk-factor proportions and attribution
type RiskConfig struct {
	// Factors limits attribution to these factors. Empty means every risk
	// column present in the dataset.
	Factors []string `mapstructure:"factors"`

	// ValidateSum rejects age groups whose factor shares add up to more
	// than one (default: true)
	ValidateSum bool `mapstructure:"validate_sum"`

	// ResidualName names the share of deaths not covered by any factor.
	// Empty disables the residual column. (default: "other")
	ResidualName string `mapstructure:"residual_name"`
}

// DecompositionConfig controls the decomposition engine
type DecompositionConfig struct {
	// Method is "arriaga" or "arriaga-symmetric" (default: "arriaga")
	Method string `mapstructure:"method"`

	// Tolerance is the relative error allowed between the summed
	// contributions and the life expectancy gap (default: 1e-6)
	Tolerance float64 `mapstructure:"tolerance"`
}

// OutputConfig controls rendering and file output
type OutputConfig struct {
	// Format is one of "table", "csv", "json", "yaml", "toml" (default: "table")
	Format string `mapstructure:"format"`

	// Dir is where files are written. Empty prints to stdout, except for
	// batch runs which write to the working directory.
	Dir string `mapstructure:"dir"`

	// Precision is the decimals shown in table output (default: 4)
	Precision int `mapstructure:"precision"`
}

// BatchConfig controls parallel life table builds
type BatchConfig struct {
	// MaxParallel bounds concurrent builds. 0 uses the number of CPUs. (default: 0)
	MaxParallel int `mapstructure:"max_parallel"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error" (default: "warn")
	Level string `mapstructure:"level"`

	// Dir enables file logging into this directory. Empty logs to stderr.
	Dir string `mapstructure:"dir"`

	// MaxSizeMB is the maximum size of a log file before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`

	// Compress gzips rotated files (default: false)
	Compress bool `mapstructure:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	cols := dataset.DefaultColumns()
	return &Config{
		Input: InputConfig{
			Format: string(dataset.FormatAuto),
			Columns: ColumnsConfig{
				Year:       cols.Year,
				Country:    cols.Country,
				Sex:        cols.Sex,
				AgeGroup:   cols.AgeGroup,
				Deaths:     cols.Deaths,
				Population: cols.Population,
				Risk:       cols.Risk,
			},
		},
		Risk: RiskConfig{
			Factors:      []string{},
			ValidateSum:  true,
			ResidualName: riskfactor.DefaultResidual,
		},
		Decomposition: DecompositionConfig{
			Method:    "arriaga",
			Tolerance: 1e-6,
		},
		Output: OutputConfig{
			Format:    "table",
			Dir:       "",
			Precision: 4,
		},
		Batch: BatchConfig{
			MaxParallel: 0,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// SetDefaultsOn registers default values with v
func SetDefaultsOn(v *viper.Viper) {
	setDefaults(v)
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Input defaults
	v.SetDefault("input.format", defaults.Input.Format)
	v.SetDefault("input.columns.year", defaults.Input.Columns.Year)
	v.SetDefault("input.columns.country", defaults.Input.Columns.Country)
	v.SetDefault("input.columns.sex", defaults.Input.Columns.Sex)
	v.SetDefault("input.columns.age_group", defaults.Input.Columns.AgeGroup)
	v.SetDefault("input.columns.deaths", defaults.Input.Columns.Deaths)
	v.SetDefault("input.columns.population", defaults.Input.Columns.Population)
	v.SetDefault("input.columns.risk", defaults.Input.Columns.Risk)

	// Risk defaults
	v.SetDefault("risk.factors", defaults.Risk.Factors)
	v.SetDefault("risk.validate_sum", defaults.Risk.ValidateSum)
	v.SetDefault("risk.residual_name", defaults.Risk.ResidualName)

	// Decomposition defaults
	v.SetDefault("decomposition.method", defaults.Decomposition.Method)
	v.SetDefault("decomposition.tolerance", defaults.Decomposition.Tolerance)

	// Output defaults
	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("output.dir", defaults.Output.Dir)
	v.SetDefault("output.precision", defaults.Output.Precision)

	// Batch defaults
	v.SetDefault("batch.max_parallel", defaults.Batch.MaxParallel)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.dir", defaults.Logging.Dir)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lifedecomp")
	}
	// Fall back to ~/.config/lifedecomp
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lifedecomp"
	}
	return filepath.Join(home, ".config", "lifedecomp")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DatasetColumns converts the column settings for the dataset loader.
// Risk factor names are lowercased to match viper's key handling.
func (c ColumnsConfig) DatasetColumns() dataset.Columns {
	cols := dataset.Columns{
		Year:       c.Year,
		Country:    c.Country,
		Sex:        c.Sex,
		AgeGroup:   c.AgeGroup,
		Deaths:     c.Deaths,
		Population: c.Population,
		Risk:       make(map[string]string, len(c.Risk)),
	}
	for name, col := range c.Risk {
		cols.Risk[strings.ToLower(name)] = col
	}
	return cols
}

// RotationConfig converts the logging settings for the rotating writer
func (c LoggingConfig) RotationConfig() logging.RotationConfig {
	return logging.RotationConfig{
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}
}
