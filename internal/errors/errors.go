package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Configuration errors - missing or invalid configuration
	ErrorTypeConfig ErrorType = iota
	// Validation errors - invalid input data (ticket keys, flags)
	ErrorTypeValidation
	// MalformedDate - a ticket or commit date could not be parsed
	ErrorTypeMalformedDate
	// EmptyTimeline - a project has no dated releases
	ErrorTypeEmptyTimeline
	// InvalidWindow - a resolved IV/FV pair cannot form a buggy window
	ErrorTypeInvalidWindow
	// InconsistentKey - a dataset record was accessed before it existed
	ErrorTypeInconsistentKey
	// Source errors - tracker or repository access failures
	ErrorTypeSource
	// Storage errors - database connection or query failures
	ErrorTypeStorage
	// FileSystem errors - file I/O failures
	ErrorTypeFileSystem
	// Internal errors - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - can continue, the offending item is skipped
	SeverityLow Severity = iota
	// SeverityMedium - should be addressed but not fatal
	SeverityMedium
	// SeverityHigh - significant issue, may impact functionality
	SeverityHigh
	// SeverityCritical - must be addressed, stops processing of the project
	SeverityCritical
)

// Sentinels for errors.Is matching by type.
var (
	ErrMalformedDate   = &Error{Type: ErrorTypeMalformedDate}
	ErrEmptyTimeline   = &Error{Type: ErrorTypeEmptyTimeline}
	ErrInvalidWindow   = &Error{Type: ErrorTypeInvalidWindow}
	ErrInconsistentKey = &Error{Type: ErrorTypeInconsistentKey}
	ErrValidation      = &Error{Type: ErrorTypeValidation}
	ErrConfig          = &Error{Type: ErrorTypeConfig}
	ErrSource          = &Error{Type: ErrorTypeSource}
	ErrStorage         = &Error{Type: ErrorTypeStorage}
	ErrFileSystem      = &Error{Type: ErrorTypeFileSystem}
	ErrInternal        = &Error{Type: ErrorTypeInternal}
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Severity   Severity
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is checks if this error matches the target error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop execution
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString returns a detailed error message with context
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n",
		severityString(e.Severity),
		typeString(e.Type),
		e.Message))

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("Context:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, e.Context[k]))
		}
	}

	if e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("Stack trace:\n%s\n", e.StackTrace))
	}

	return sb.String()
}

func typeString(t ErrorType) string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeMalformedDate:
		return "MALFORMED_DATE"
	case ErrorTypeEmptyTimeline:
		return "EMPTY_TIMELINE"
	case ErrorTypeInvalidWindow:
		return "INVALID_WINDOW"
	case ErrorTypeInconsistentKey:
		return "INCONSISTENT_KEY"
	case ErrorTypeSource:
		return "SOURCE"
	case ErrorTypeStorage:
		return "STORAGE"
	case ErrorTypeFileSystem:
		return "FILESYSTEM"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Convenience constructors for common error types

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// ValidationErrorf creates a validation error with formatting
func ValidationErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityLow, fmt.Sprintf(format, args...))
}

// MalformedDate wraps a date parse failure. The offending ticket or commit is skipped.
func MalformedDate(err error, field, value string) *Error {
	e := Wrap(err, ErrorTypeMalformedDate, SeverityLow, fmt.Sprintf("malformed %s %q", field, value))
	if e == nil {
		e = New(ErrorTypeMalformedDate, SeverityLow, fmt.Sprintf("malformed %s %q", field, value))
	}
	return e.WithContext("field", field).WithContext("value", value)
}

// EmptyTimeline reports a project without dated releases. Always fatal.
func EmptyTimeline(project string) *Error {
	return New(ErrorTypeEmptyTimeline, SeverityCritical, "project has no dated releases").
		WithContext("project", project)
}

// InconsistentKey reports a dataset record missing after creation was requested.
func InconsistentKey(version int, path string) *Error {
	return New(ErrorTypeInconsistentKey, SeverityCritical, "dataset record missing after ensure").
		WithContext("version", version).
		WithContext("path", path)
}

// SourceError wraps a tracker or repository failure
func SourceError(err error, message string) *Error {
	return Wrap(err, ErrorTypeSource, SeverityHigh, message)
}

// SourceErrorf wraps a tracker or repository failure with formatting
func SourceErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeSource, SeverityHigh, fmt.Sprintf(format, args...))
}

// StorageError wraps a database error
func StorageError(err error, message string) *Error {
	return Wrap(err, ErrorTypeStorage, SeverityCritical, message)
}

// FileSystemErrorf wraps a filesystem error with formatting
func FileSystemErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityHigh, fmt.Sprintf(format, args...))
}

// InternalErrorf creates an internal error with formatting
func InternalErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

// IsFatal checks if an error is fatal (should stop execution)
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e.IsFatal()
	}

	return false
}

// GetSeverity returns the severity of an error
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e.Severity
	}

	return SeverityMedium
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	if err == nil {
		return ErrorTypeInternal
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}

	return ErrorTypeInternal
}
