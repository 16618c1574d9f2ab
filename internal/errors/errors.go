// Package errors provides centralized error definitions and error handling utilities
// for lifedecomp. It defines the sentinel error kinds raised by the life table,
// decomposition and risk-factor engines, typed errors that carry the age group
// or input location that failed, and classification helpers.
//
// # Error Kinds
//
// Every engine error wraps exactly one sentinel kind:
//   - ErrInvalidInput: non-positive population, malformed or short sequences
//   - ErrUndefinedLifeExpectancy: zero survivors before the end of the table
//   - ErrMismatchedAgeGroups: decomposition given misaligned tables
//   - ErrMissingColumn: risk or input data lacks a required field
//   - ErrUndefinedProportion: zero total deaths in an age group
//   - ErrDegenerateAttribution: equal mortality rates in the attribution divisor
//
// # Usage
//
//	err := errors.NewLifeTableError("population must be positive", errors.ErrInvalidInput).
//		WithAgeIndex(3).WithField("population")
//
//	if errors.Is(err, errors.ErrInvalidInput) { ... }
//
//	var ltErr *errors.LifeTableError
//	if errors.As(err, &ltErr) { fmt.Println(ltErr.AgeIndex) }
//
// Nothing in the engines converts a failure into NaN or Inf; callers decide
// whether to surface an error or skip the affected age group.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that affect a single age group or row.
	SeverityWarning
	// SeverityError is for errors that invalidate a whole computation.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Engine error kinds
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrUndefinedLifeExpectancy indicates that survivors reached zero before the open interval.
	ErrUndefinedLifeExpectancy = New("undefined life expectancy")
	// ErrMismatchedAgeGroups indicates that two life tables do not share the same age grouping.
	ErrMismatchedAgeGroups = New("mismatched age groups")
	// ErrMissingColumn indicates that a required column or risk factor is absent.
	ErrMissingColumn = New("missing column")
	// ErrUndefinedProportion indicates a proportion over zero total deaths.
	ErrUndefinedProportion = New("undefined proportion")
	// ErrDegenerateAttribution indicates equal mortality rates in both periods.
	ErrDegenerateAttribution = New("degenerate attribution")
)

// General sentinel errors
var (
	// ErrNotFound indicates that a requested selection or resource does not exist.
	ErrNotFound = New("not found")
	// ErrIdentityMismatch indicates that decomposition contributions do not sum to the gap.
	ErrIdentityMismatch = New("decomposition identity mismatch")
)

// kinds lists the sentinels reported by Kind, in match order.
var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidInput, "InvalidInput"},
	{ErrUndefinedLifeExpectancy, "UndefinedLifeExpectancy"},
	{ErrMismatchedAgeGroups, "MismatchedAgeGroups"},
	{ErrMissingColumn, "MissingColumn"},
	{ErrUndefinedProportion, "UndefinedProportion"},
	{ErrDegenerateAttribution, "DegenerateAttribution"},
	{ErrNotFound, "NotFound"},
	{ErrIdentityMismatch, "IdentityMismatch"},
}

// Kind returns the name of the sentinel kind err wraps, or "" if none.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ClassifiedError is the base interface for all lifedecomp errors.
type ClassifiedError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// format renders "<prefix> [k=v, ...]: message: cause".
func (e *baseError) format(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// ageParts describes an age index for error context; -1 means unset.
func ageParts(idx int, label string) []string {
	var parts []string
	if idx >= 0 {
		parts = append(parts, fmt.Sprintf("age=%d", idx))
	}
	if label != "" {
		parts = append(parts, fmt.Sprintf("group=%s", label))
	}
	return parts
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// LifeTableError represents errors raised while building a life table.
//
// Example:
//
//	err := errors.NewLifeTableError("population must be positive", errors.ErrInvalidInput)
//	err = err.WithAgeIndex(4).WithField("population")
//	fmt.Println(err) // "life table error [age=4, field=population]: population must be positive: invalid input"
type LifeTableError struct {
	baseError
	AgeIndex int
	AgeGroup string
	Field    string
}

// NewLifeTableError creates a new LifeTableError.
func NewLifeTableError(message string, cause error) *LifeTableError {
	return &LifeTableError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		AgeIndex: -1,
	}
}

// WithAgeIndex adds the failing age group index to the error context.
func (e *LifeTableError) WithAgeIndex(idx int) *LifeTableError {
	e.AgeIndex = idx
	return e
}

// WithAgeGroup adds the failing age group label to the error context.
func (e *LifeTableError) WithAgeGroup(label string) *LifeTableError {
	e.AgeGroup = label
	return e
}

// WithField adds the name of the offending input field.
func (e *LifeTableError) WithField(field string) *LifeTableError {
	e.Field = field
	return e
}

// Error returns the formatted error message.
func (e *LifeTableError) Error() string {
	parts := ageParts(e.AgeIndex, e.AgeGroup)
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	return e.format("life table error", parts)
}

// Is checks if this error matches the target.
func (e *LifeTableError) Is(target error) bool {
	if _, ok := target.(*LifeTableError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DecompositionError represents errors raised by the decomposition engine.
type DecompositionError struct {
	baseError
	AgeIndex int
	AgeGroup string
}

// NewDecompositionError creates a new DecompositionError.
func NewDecompositionError(message string, cause error) *DecompositionError {
	return &DecompositionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		AgeIndex: -1,
	}
}

// WithAgeIndex adds the age group index where the tables diverge.
func (e *DecompositionError) WithAgeIndex(idx int) *DecompositionError {
	e.AgeIndex = idx
	return e
}

// WithAgeGroup adds the age group label to the error context.
func (e *DecompositionError) WithAgeGroup(label string) *DecompositionError {
	e.AgeGroup = label
	return e
}

// Error returns the formatted error message.
func (e *DecompositionError) Error() string {
	return e.format("decomposition error", ageParts(e.AgeIndex, e.AgeGroup))
}

// Is checks if this error matches the target.
func (e *DecompositionError) Is(target error) bool {
	if _, ok := target.(*DecompositionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RiskFactorError represents errors from proportion extraction or attribution.
//
// Example:
//
//	err := errors.NewRiskFactorError("total deaths is zero", errors.ErrUndefinedProportion).
//		WithFactor("tobacco").WithAgeIndex(2)
type RiskFactorError struct {
	baseError
	Factor   string
	AgeIndex int
}

// NewRiskFactorError creates a new RiskFactorError.
func NewRiskFactorError(message string, cause error) *RiskFactorError {
	return &RiskFactorError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		AgeIndex: -1,
	}
}

// WithFactor adds the risk factor name to the error context.
func (e *RiskFactorError) WithFactor(name string) *RiskFactorError {
	e.Factor = name
	return e
}

// WithAgeIndex adds the age group index to the error context.
func (e *RiskFactorError) WithAgeIndex(idx int) *RiskFactorError {
	e.AgeIndex = idx
	return e
}

// WithSeverity sets the error severity.
func (e *RiskFactorError) WithSeverity(s Severity) *RiskFactorError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *RiskFactorError) Error() string {
	var parts []string
	if e.Factor != "" {
		parts = append(parts, fmt.Sprintf("factor=%s", e.Factor))
	}
	parts = append(parts, ageParts(e.AgeIndex, "")...)
	return e.format("risk factor error", parts)
}

// Is checks if this error matches the target.
func (e *RiskFactorError) Is(target error) bool {
	if _, ok := target.(*RiskFactorError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DatasetError represents errors reading or selecting input records.
//
// Example:
//
//	err := errors.NewDatasetError("cannot parse deaths", errors.ErrInvalidInput).
//		WithPath("deaths.csv").WithLine(12).WithColumn("total_deaths")
type DatasetError struct {
	baseError
	Path   string
	Line   int
	Column string
}

// NewDatasetError creates a new DatasetError.
func NewDatasetError(message string, cause error) *DatasetError {
	return &DatasetError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithPath adds the input file path to the error context.
func (e *DatasetError) WithPath(path string) *DatasetError {
	e.Path = path
	return e
}

// WithLine adds the 1-based input line or record number.
func (e *DatasetError) WithLine(line int) *DatasetError {
	e.Line = line
	return e
}

// WithColumn adds the column name to the error context.
func (e *DatasetError) WithColumn(col string) *DatasetError {
	e.Column = col
	return e
}

// Error returns the formatted error message.
func (e *DatasetError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line=%d", e.Line))
	}
	if e.Column != "" {
		parts = append(parts, fmt.Sprintf("column=%s", e.Column))
	}
	return e.format("dataset error", parts)
}

// Is checks if this error matches the target.
func (e *DatasetError) Is(target error) bool {
	if _, ok := target.(*DatasetError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a selection or resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("country", "Frnace").WithSuggestions("France")
//	fmt.Println(err) // "country 'Frnace' not found (did you mean: France?)"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
	Suggestions  []string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithSuggestions records close matches for the missing resource.
func (e *NotFoundError) WithSuggestions(s ...string) *NotFoundError {
	e.Suggestions = append(e.Suggestions, s...)
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
	if len(e.Suggestions) > 0 {
		msg = fmt.Sprintf("%s (did you mean: %s?)", msg, strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return target == ErrNotFound
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("years must be distinct").WithField("years").WithValue("2019,2019")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return e.format("validation error", parts)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidInput {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var classified ClassifiedError
	if As(err, &classified) {
		return classified.IsUserFacing()
	}

	return Kind(err) != ""
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ClassifiedError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var classified ClassifiedError
	if As(err, &classified) {
		return classified.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
