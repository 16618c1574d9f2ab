package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/demostat/lifedecomp/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default input config
	if cfg.Input.Format != "auto" {
		t.Errorf("Input.Format = %q, want %q", cfg.Input.Format, "auto")
	}
	if cfg.Input.Columns.Country != "location_name" {
		t.Errorf("Input.Columns.Country = %q, want %q", cfg.Input.Columns.Country, "location_name")
	}
	if cfg.Input.Columns.Risk["alcohol"] != "alc_deaths" {
		t.Errorf("Input.Columns.Risk[alcohol] = %q, want %q", cfg.Input.Columns.Risk["alcohol"], "alc_deaths")
	}

	// Verify default risk config
	if !cfg.Risk.ValidateSum {
		t.Error("Risk.ValidateSum should be true by default")
	}
	if cfg.Risk.ResidualName != "other" {
		t.Errorf("Risk.ResidualName = %q, want %q", cfg.Risk.ResidualName, "other")
	}
	if len(cfg.Risk.Factors) != 0 {
		t.Errorf("Risk.Factors should be empty, got %v", cfg.Risk.Factors)
	}

	// Verify default decomposition config
	if cfg.Decomposition.Method != "arriaga" {
		t.Errorf("Decomposition.Method = %q, want %q", cfg.Decomposition.Method, "arriaga")
	}
	if cfg.Decomposition.Tolerance != 1e-6 {
		t.Errorf("Decomposition.Tolerance = %g, want 1e-6", cfg.Decomposition.Tolerance)
	}

	// Verify default output config
	if cfg.Output.Format != "table" || cfg.Output.Precision != 4 {
		t.Errorf("Output = %+v, want table format with precision 4", cfg.Output)
	}

	// Verify default logging config
	if cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging = %+v, want 10MB and 3 backups", cfg.Logging)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got, want := ConfigDir(), filepath.Join("/custom/config", "lifedecomp"); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", home)
		if got, want := ConfigDir(), filepath.Join(home, ".config", "lifedecomp"); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := ConfigFile(), filepath.Join("/custom/config", "lifedecomp", "config.yaml"); got != want {
		t.Errorf("ConfigFile() = %q, want %q", got, want)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Decomposition.Method != "arriaga" {
		t.Errorf("Get().Decomposition.Method = %q, want %q", cfg.Decomposition.Method, "arriaga")
	}
	if cfg.Input.Columns.Risk["tobacco"] != "tobacco_deaths" {
		t.Errorf("Get() lost the risk column map: %v", cfg.Input.Columns.Risk)
	}
}

func TestGet_FallsBackOnInvalidConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()
	viper.Set("output.precision", -3)

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a negative precision")
	}
	if got := Get().Output.Precision; got != 4 {
		t.Errorf("Get() precision = %d, want default 4", got)
	}
}

func TestLoadFrom_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, `
input:
  columns:
    country: country
    risk:
      smoking: smoking_deaths
risk:
  factors: [smoking]
  residual_name: ""
decomposition:
  method: arriaga-symmetric
output:
  format: csv
  dir: out
batch:
  max_parallel: 2
`)

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := LoadFrom(v)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Input.Columns.Country != "country" || cfg.Input.Columns.Year != "year" {
		t.Errorf("columns = %+v, want country override and default year", cfg.Input.Columns)
	}
	if cfg.Decomposition.Method != "arriaga-symmetric" || cfg.Output.Format != "csv" || cfg.Batch.MaxParallel != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Risk.ResidualName != "" {
		t.Errorf("residual name = %q, want disabled", cfg.Risk.ResidualName)
	}

	cols := cfg.Input.Columns.DatasetColumns()
	if cols.Risk["smoking"] != "smoking_deaths" {
		t.Errorf("DatasetColumns().Risk = %v", cols.Risk)
	}
}

func TestLoadFrom_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, `
decomposition:
  method: kitagawa
  tolerance: 0
output:
  format: xlsx
`)

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(v)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("LoadFrom error = %v, want ValidationErrors", err)
	}
	if len(verrs) != 3 {
		t.Errorf("got %d validation errors, want 3: %v", len(verrs), verrs)
	}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Error("validation errors should match ErrInvalidInput")
	}
	if !strings.Contains(err.Error(), "decomposition.method") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestLoggingConfig_RotationConfig(t *testing.T) {
	rc := LoggingConfig{MaxSizeMB: 5, MaxBackups: 2, Compress: true}.RotationConfig()
	if rc.MaxSizeMB != 5 || rc.MaxBackups != 2 || !rc.Compress {
		t.Errorf("RotationConfig() = %+v", rc)
	}
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.TrimLeft(content, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
}
