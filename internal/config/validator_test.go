package config

import (
	"strings"
	"testing"

	"github.com/demostat/lifedecomp/internal/errors"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
		if errors.Is(errs, errors.ErrInvalidInput) {
			t.Error("empty ValidationErrors should not match ErrInvalidInput")
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

// fieldsOf returns the failing field names in order.
func fieldsOf(errs []ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   []string
	}{
		{
			name:   "unknown input format",
			modify: func(c *Config) { c.Input.Format = "xls" },
			want:   []string{"input.format"},
		},
		{
			name:   "empty column name",
			modify: func(c *Config) { c.Input.Columns.Deaths = " " },
			want:   []string{"input.columns.deaths"},
		},
		{
			name:   "column used twice",
			modify: func(c *Config) { c.Input.Columns.Population = "TOTAL_DEATHS" },
			want:   []string{"input.columns.population"},
		},
		{
			name:   "risk column clashes with required column",
			modify: func(c *Config) { c.Input.Columns.Risk["drug"] = "population" },
			want:   []string{"input.columns.risk.drug"},
		},
		{
			name:   "unknown risk factor",
			modify: func(c *Config) { c.Risk.Factors = []string{"tobacco", "obesity"} },
			want:   []string{"risk.factors[1]"},
		},
		{
			name:   "duplicate risk factor",
			modify: func(c *Config) { c.Risk.Factors = []string{"tobacco", "Tobacco"} },
			want:   []string{"risk.factors[1]"},
		},
		{
			name:   "residual collides with factor",
			modify: func(c *Config) { c.Risk.ResidualName = "Alcohol" },
			want:   []string{"risk.residual_name"},
		},
		{
			name:   "residual disabled",
			modify: func(c *Config) { c.Risk.ResidualName = "" },
			want:   nil,
		},
		{
			name:   "unknown method",
			modify: func(c *Config) { c.Decomposition.Method = "kitagawa" },
			want:   []string{"decomposition.method"},
		},
		{
			name:   "symmetric method",
			modify: func(c *Config) { c.Decomposition.Method = "arriaga-symmetric" },
			want:   nil,
		},
		{
			name:   "non-positive tolerance",
			modify: func(c *Config) { c.Decomposition.Tolerance = 0 },
			want:   []string{"decomposition.tolerance"},
		},
		{
			name:   "tolerance too large",
			modify: func(c *Config) { c.Decomposition.Tolerance = 1 },
			want:   []string{"decomposition.tolerance"},
		},
		{
			name:   "unknown output format",
			modify: func(c *Config) { c.Output.Format = "xlsx" },
			want:   []string{"output.format"},
		},
		{
			name:   "precision out of range",
			modify: func(c *Config) { c.Output.Precision = 16 },
			want:   []string{"output.precision"},
		},
		{
			name:   "negative parallelism",
			modify: func(c *Config) { c.Batch.MaxParallel = -1 },
			want:   []string{"batch.max_parallel"},
		},
		{
			name:   "excessive parallelism",
			modify: func(c *Config) { c.Batch.MaxParallel = 1000 },
			want:   []string{"batch.max_parallel"},
		},
		{
			name:   "log level ignores case",
			modify: func(c *Config) { c.Logging.Level = "DEBUG" },
			want:   nil,
		},
		{
			name:   "invalid log level",
			modify: func(c *Config) { c.Logging.Level = "verbose" },
			want:   []string{"logging.level"},
		},
		{
			name:   "zero log size",
			modify: func(c *Config) { c.Logging.MaxSizeMB = 0 },
			want:   []string{"logging.max_size_mb"},
		},
		{
			name:   "log size too large",
			modify: func(c *Config) { c.Logging.MaxSizeMB = 5000 },
			want:   []string{"logging.max_size_mb"},
		},
		{
			name:   "negative backups",
			modify: func(c *Config) { c.Logging.MaxBackups = -1 },
			want:   []string{"logging.max_backups"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			got := fieldsOf(cfg.Validate())
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Validate() fields = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Output.Precision = -1
	cfg.Batch.MaxParallel = -1
	cfg.Logging.MaxBackups = -1

	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}
