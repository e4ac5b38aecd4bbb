// Package errors classifies failures so commands can decide whether to abort,
// skip, or report them, and with which exit status.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Missing or invalid configuration, including credentials
	ErrorTypeConfig ErrorType = iota
	// Invalid input: seed ids, limits, thresholds, malformed artifacts
	ErrorTypeValidation
	// Analytical store unreachable, malformed query, auth failure, timeout
	ErrorTypeDataAccess
	// GitHub or Neo4j failures
	ErrorTypeExternal
	// Artifact, CSV or cache file I/O
	ErrorTypeFileSystem
	// Unexpected internal state
	ErrorTypeInternal
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeConfig:
		return "config"
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeDataAccess:
		return "data_access"
	case ErrorTypeExternal:
		return "external"
	case ErrorTypeFileSystem:
		return "filesystem"
	case ErrorTypeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - the run continues with degraded results
	SeverityLow Severity = iota
	// SeverityMedium - the current command fails, nothing else is affected
	SeverityMedium
	// SeverityHigh - the command fails and the input needs fixing
	SeverityHigh
	// SeverityCritical - graph construction must stop; no artifact is written
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Error is a classified failure with optional structured context
type Error struct {
	Type     ErrorType
	Severity Severity
	Message  string
	Cause    error
	Context  map[string]interface{}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair that is logged alongside the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is matches any *Error of the same type
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

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{Type: errType, Severity: severity, Message: message}
}

// Wrap classifies err. A nil err stays nil.
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Type: errType, Severity: severity, Message: message, Cause: err}
}

func ConfigError(message string) *Error {
	return New(ErrorTypeConfig, SeverityCritical, message)
}

func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

func ValidationError(message string) *Error {
	return New(ErrorTypeValidation, SeverityHigh, message)
}

func ValidationErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityHigh, fmt.Sprintf(format, args...))
}

// DataAccessError wraps a store failure. It aborts graph construction.
func DataAccessError(err error, message string) *Error {
	return Wrap(err, ErrorTypeDataAccess, SeverityCritical, message)
}

func DataAccessErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeDataAccess, SeverityCritical, fmt.Sprintf(format, args...))
}

func ExternalErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeExternal, SeverityMedium, fmt.Sprintf(format, args...))
}

func FileSystemErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityHigh, fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

// IsFatal checks if an error is fatal (should stop execution)
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.IsFatal()
	}
	return false
}

// GetType returns the type of the first *Error in the chain
func GetType(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// IsDataAccess reports whether err (or anything it wraps) is a data access failure
func IsDataAccess(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Type == ErrorTypeDataAccess
}

// IsValidation reports whether err (or anything it wraps) is a validation failure
func IsValidation(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Type == ErrorTypeValidation
}

// ExitCode maps err to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if !stderrors.As(err, &e) {
		return 1
	}
	switch e.Type {
	case ErrorTypeConfig, ErrorTypeValidation:
		return 2
	case ErrorTypeDataAccess:
		return 3
	case ErrorTypeExternal:
		return 4
	case ErrorTypeFileSystem:
		return 5
	default:
		return 1
	}
}

// Fields returns the classification and context of err as log fields,
// innermost context first so outer wrappers win on key collisions
func Fields(err error) map[string]interface{} {
	fields := make(map[string]interface{})

	var chain []*Error
	for cur := err; cur != nil; cur = stderrors.Unwrap(cur) {
		if e, ok := cur.(*Error); ok {
			chain = append(chain, e)
		}
	}
	if len(chain) == 0 {
		return fields
	}

	for i := len(chain) - 1; i >= 0; i-- {
		keys := make([]string, 0, len(chain[i].Context))
		for k := range chain[i].Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields[k] = chain[i].Context[k]
		}
	}
	fields["error_type"] = chain[0].Type.String()
	fields["severity"] = chain[0].Severity.String()
	return fields
}
