package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeSourceLoad       ErrorType = "SOURCE_LOAD"
	ErrTypeDateParse        ErrorType = "DATE_PARSE"
	ErrTypeMergeUnavailable ErrorType = "MERGE_UNAVAILABLE"
	ErrTypePersistence      ErrorType = "PERSISTENCE"
	ErrTypeParsing          ErrorType = "PARSING"
	ErrTypeStorage          ErrorType = "STORAGE"
	ErrTypeValidation       ErrorType = "VALIDATION"
	ErrTypeNotFound         ErrorType = "NOT_FOUND"
	ErrTypeConfig           ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Recoverable reports whether the pipeline keeps running after this error.
// Parsing and configuration problems end a run.
func (e *AppError) Recoverable() bool {
	switch e.Type {
	case ErrTypeDateParse, ErrTypeConfig, ErrTypeParsing:
		return false
	}
	return true
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether err is, or wraps, an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsRecoverable reports whether err is an AppError the pipeline can continue past.
func IsRecoverable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Recoverable()
	}
	return false
}

// Helper functions for common error types

// NewSourceLoadError reports an input source that could not be read.
func NewSourceLoadError(source, path string, cause error) *AppError {
	return NewAppError(ErrTypeSourceLoad, fmt.Sprintf("failed to load %s data", source), cause).
		WithContext("source", source).
		WithContext("path", path)
}

// NewDateParseError reports a Date cell that cannot be coerced.
func NewDateParseError(row int, raw string, cause error) *AppError {
	return NewAppError(ErrTypeDateParse, fmt.Sprintf("cannot parse Date %q in row %d", raw, row), cause).
		WithContext("row", row).
		WithContext("value", raw)
}

// NewMergeUnavailableError reports that a required merge input is absent.
func NewMergeUnavailableError(missing string) *AppError {
	return NewAppError(ErrTypeMergeUnavailable, fmt.Sprintf("%s data is not available for merge", missing), nil).
		WithContext("missing", missing)
}

// NewPersistenceError reports a failed table write.
func NewPersistenceError(table string, cause error) *AppError {
	return NewAppError(ErrTypePersistence, fmt.Sprintf("failed to store table %s", table), cause).
		WithContext("table", table)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
