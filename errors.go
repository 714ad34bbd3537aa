package recordops

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeReference  ErrorType = "reference"
	ErrorTypeQuery      ErrorType = "query"
	ErrorTypeBulk       ErrorType = "bulk"
	ErrorTypeInternal   ErrorType = "internal"
)

// OpsError is the unified error returned by the record store and the record
// operations built on top of it.
type OpsError struct {
	Type    ErrorType         `json:"type"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Record  *RecordIdentifier `json:"record,omitempty"`
	Field   string            `json:"field,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
	Cause   error             `json:"-"`
}

func (e *OpsError) Error() string {
	if e.Record != nil {
		return fmt.Sprintf("[%s:%s] record %s/%s: %s",
			e.Type, e.Code, e.Record.RecordType, e.Record.ID, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *OpsError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to an OpsError
func (e *OpsError) WithDetail(key string, value any) *OpsError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to an OpsError
func (e *OpsError) WithCause(cause error) *OpsError {
	e.Cause = cause
	return e
}

// WithRecord adds record context to an OpsError
func (e *OpsError) WithRecord(record RecordIdentifier) *OpsError {
	e.Record = &record
	return e
}

// WithField adds field context to an OpsError
func (e *OpsError) WithField(field string) *OpsError {
	e.Field = field
	return e
}

// Error codes used across the record store implementations.
const (
	ErrCodeRecordNotFound      = "RECORD_NOT_FOUND"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeReferenceNotFound   = "REFERENCE_NOT_FOUND"
	ErrCodeQueryFailed         = "QUERY_FAILED"
	ErrCodeBulkOperationFailed = "BULK_OPERATION_FAILED"
	ErrCodeBulkSizeExceeded    = "BULK_SIZE_EXCEEDED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// NewOpsError creates a new OpsError
func NewOpsError(errorType ErrorType, code, message string) *OpsError {
	return &OpsError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewRecordNotFoundError creates a record not found error
func NewRecordNotFoundError(record RecordIdentifier) *OpsError {
	return &OpsError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeRecordNotFound,
		Message: "record not found",
		Record:  &record,
		Details: make(map[string]any),
	}
}

// NewValidationError creates a validation error
func NewValidationError(field, message string) *OpsError {
	return &OpsError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: message,
		Field:   field,
		Details: make(map[string]any),
	}
}

// NewReferenceError creates an unresolved-reference error
func NewReferenceError(field, message string) *OpsError {
	return &OpsError{
		Type:    ErrorTypeReference,
		Code:    ErrCodeReferenceNotFound,
		Message: message,
		Field:   field,
		Details: make(map[string]any),
	}
}

// NewQueryError creates a query execution error
func NewQueryError(message string) *OpsError {
	return &OpsError{
		Type:    ErrorTypeQuery,
		Code:    ErrCodeQueryFailed,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewBulkError creates a bulk operation error
func NewBulkError(code, message string) *OpsError {
	return &OpsError{
		Type:    ErrorTypeBulk,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

// IsNotFound reports whether err carries a not-found OpsError anywhere in its
// chain.
func IsNotFound(err error) bool {
	var opsErr *OpsError
	if errors.As(err, &opsErr) {
		return opsErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsValidation reports whether err carries a validation OpsError anywhere in
// its chain.
func IsValidation(err error) bool {
	var opsErr *OpsError
	if errors.As(err, &opsErr) {
		return opsErr.Type == ErrorTypeValidation
	}
	return false
}
