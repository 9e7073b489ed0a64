package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies an AppError. FromError turns it into an HTTP status
// and the report service into the log level of a failed run.
type ErrorType string

const (
	ErrTypeParsing    ErrorType = "PARSING"    // an input file could not be decoded
	ErrTypeStorage    ErrorType = "STORAGE"    // a file could not be opened, written or moved
	ErrTypeValidation ErrorType = "VALIDATION" // decoded input breaks a data rule
	ErrTypeNotFound   ErrorType = "NOT_FOUND"  // a report item does not exist
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeModel      ErrorType = "MODEL" // a regression cannot be fit
)

// AppError is an error raised by the pipeline or the report service.
// Context carries the identifiers a caller needs to act on it, such as the
// file, county or table involved; the preview server returns it as details.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext records key on the error and returns it for chaining
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates an application error without context
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Cause: cause}
}

func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewValidationError reports input data that breaks a rule of the analysis,
// such as a duplicate county key
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError reports a missing report item. The item is recorded in
// the context under its kind: NewNotFoundError("table", "tiers") reads
// "table tiers not found" with context {"table": "tiers"}.
func NewNotFoundError(kind, name string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s %s not found", kind, name), nil).
		WithContext(kind, name)
}

func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

func NewModelError(message string, cause error) *AppError {
	return NewAppError(ErrTypeModel, message, cause)
}

// IsType reports whether err wraps an AppError of any of the given types
func IsType(err error, types ...ErrorType) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	for _, t := range types {
		if appErr.Type == t {
			return true
		}
	}
	return false
}
