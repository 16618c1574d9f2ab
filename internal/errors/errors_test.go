package errors

import (
	"errors"
	"fmt"
	"testing"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// LifeTableError Tests
// -----------------------------------------------------------------------------

func TestNewLifeTableError(t *testing.T) {
	err := NewLifeTableError("population must be positive", ErrInvalidInput)

	if err.AgeIndex != -1 {
		t.Errorf("AgeIndex = %d, want -1", err.AgeIndex)
	}
	if err.Severity() != SeverityError {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityError)
	}
	if !err.IsUserFacing() {
		t.Error("IsUserFacing() = false, want true")
	}
}

func TestLifeTableError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *LifeTableError
		want string
	}{
		{
			name: "no context",
			err:  NewLifeTableError("bad input", nil),
			want: "life table error: bad input",
		},
		{
			name: "with cause and context",
			err: NewLifeTableError("population must be positive", ErrInvalidInput).
				WithAgeIndex(4).WithField("population"),
			want: "life table error [age=4, field=population]: population must be positive: invalid input",
		},
		{
			name: "with group label",
			err: NewLifeTableError("no survivors", ErrUndefinedLifeExpectancy).
				WithAgeIndex(0).WithAgeGroup("<1 year"),
			want: "life table error [age=0, group=<1 year]: no survivors: undefined life expectancy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLifeTableError_Is(t *testing.T) {
	err := NewLifeTableError("x", ErrInvalidInput)

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is(err, ErrInvalidInput) = false, want true")
	}
	if errors.Is(err, ErrUndefinedLifeExpectancy) {
		t.Error("errors.Is(err, ErrUndefinedLifeExpectancy) = true, want false")
	}
	if !errors.Is(err, &LifeTableError{}) {
		t.Error("errors.Is(err, &LifeTableError{}) = false, want true")
	}

	wrapped := fmt.Errorf("building 2019: %w", err)
	var ltErr *LifeTableError
	if !errors.As(wrapped, &ltErr) {
		t.Fatal("errors.As failed through wrapping")
	}
	if ltErr.message != "x" {
		t.Errorf("message = %q, want %q", ltErr.message, "x")
	}
}

// -----------------------------------------------------------------------------
// RiskFactorError / DecompositionError / DatasetError Tests
// -----------------------------------------------------------------------------

func TestRiskFactorError_Error(t *testing.T) {
	err := NewRiskFactorError("total deaths is zero", ErrUndefinedProportion).
		WithFactor("tobacco").WithAgeIndex(2)

	want := "risk factor error [factor=tobacco, age=2]: total deaths is zero: undefined proportion"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = err.WithSeverity(SeverityWarning)
	if err.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityWarning)
	}
}

func TestDecompositionError_Is(t *testing.T) {
	err := NewDecompositionError("labels differ", ErrMismatchedAgeGroups).WithAgeIndex(7)

	if !errors.Is(err, ErrMismatchedAgeGroups) {
		t.Error("errors.Is(err, ErrMismatchedAgeGroups) = false, want true")
	}
	if !errors.Is(err, &DecompositionError{}) {
		t.Error("type match failed")
	}
	if got, want := err.Error(), "decomposition error [age=7]: labels differ: mismatched age groups"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDatasetError_Error(t *testing.T) {
	err := NewDatasetError("cannot parse value", ErrInvalidInput).
		WithPath("deaths.csv").WithLine(12).WithColumn("total_deaths")

	want := "dataset error [path=deaths.csv, line=12, column=total_deaths]: cannot parse value: invalid input"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

// -----------------------------------------------------------------------------
// Semantic Error Tests
// -----------------------------------------------------------------------------

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("country", "Frnace").WithSuggestions("France")

	if got, want := err.Error(), "country 'Frnace' not found (did you mean: France?)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false, want true")
	}
	if err.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityWarning)
	}
}

func TestValidationError_Is(t *testing.T) {
	err := NewValidationError("years must be distinct").WithField("years").WithValue("2019,2019")

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	want := "validation error [field=years, value=2019,2019]: years must be distinct"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", New("boom"), ""},
		{"sentinel", ErrMissingColumn, "MissingColumn"},
		{"typed", NewRiskFactorError("x", ErrDegenerateAttribution), "DegenerateAttribution"},
		{"wrapped", Wrap(NewLifeTableError("x", ErrUndefinedLifeExpectancy), "ctx"), "UndefinedLifeExpectancy"},
		{"validation", NewValidationError("x"), "InvalidInput"},
		{"not found", NewNotFoundError("year", "1900"), "NotFound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", New("internal"), false},
		{"sentinel", ErrInvalidInput, true},
		{"typed", NewDatasetError("x", nil), true},
		{"wrapped typed", Wrapf(NewDecompositionError("x", nil), "year %d", 2019), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v, want %v", got, SeverityDebug)
	}
	if got := GetSeverity(New("x")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v, want %v", got, SeverityError)
	}
	if got := GetSeverity(NewNotFoundError("sex", "x")); got != SeverityWarning {
		t.Errorf("GetSeverity(NotFound) = %v, want %v", got, SeverityWarning)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}

	err := Wrapf(ErrInvalidInput, "row %d", 3)
	if got, want := err.Error(), "row 3: invalid input"; got != want {
		t.Errorf("Wrapf() = %q, want %q", got, want)
	}
	if !Is(err, ErrInvalidInput) {
		t.Error("Wrapf lost the sentinel")
	}
}
