package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation marks input rejected before any store access
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound marks a lookup that matched nothing
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConstraint marks a write rejected by a store uniqueness constraint
	ErrorTypeConstraint ErrorType = "constraint"
	// ErrorTypeUnsupportedField marks an operation on a property the entity does not expose
	ErrorTypeUnsupportedField ErrorType = "unsupported_field"
	// ErrorTypeStorage marks any other failure of the underlying store
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// ValidationError is returned when a required field is blank, oversized or malformed
type ValidationError struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("%s %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// NotFoundError is returned when an exact lookup for an update or delete target matches nothing
type NotFoundError struct {
	*BaseError
	Entity   string
	Property string
	Value    string
}

func NewNotFound(entity, property, value string) *NotFoundError {
	return &NotFoundError{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("no %s found for %s=%q", entity, property, value), nil),
		Entity:    entity,
		Property:  property,
		Value:     value,
	}
}

// ConstraintViolation wraps a store uniqueness failure together with the offending values
type ConstraintViolation struct {
	*BaseError
	Entity string
	Fields map[string]string
}

func NewConstraintViolation(entity string, fields map[string]string, err error) *ConstraintViolation {
	return &ConstraintViolation{
		BaseError: NewBaseError(ErrorTypeConstraint, fmt.Sprintf("constraint violated on %s with %s", entity, formatFields(fields)), err),
		Entity:    entity,
		Fields:    fields,
	}
}

// UnsupportedFieldError is returned when an operation names a property it cannot act on
type UnsupportedFieldError struct {
	*BaseError
	Entity string
	Field  string
}

func NewUnsupportedField(entity, field string) *UnsupportedFieldError {
	return &UnsupportedFieldError{
		BaseError: NewBaseError(ErrorTypeUnsupportedField, fmt.Sprintf("property %q is not supported for %s", field, entity), nil),
		Entity:    entity,
		Field:     field,
	}
}

// StorageError is returned when the store fails for a reason outside the taxonomy above
type StorageError struct {
	*BaseError
	Operation string
}

func NewStorage(operation string, err error) *StorageError {
	return &StorageError{
		BaseError: NewBaseError(ErrorTypeStorage, fmt.Sprintf("%s failed", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Helper functions

// TypeOf returns the category of the first BaseError in err's chain, or "" if there is none
func TypeOf(err error) ErrorType {
	var typed interface{ errorType() ErrorType }
	if stderrors.As(err, &typed) {
		return typed.errorType()
	}
	return ""
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

func (e *BaseError) errorType() ErrorType {
	return e.Type
}

func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}
	return strings.Join(parts, ", ")
}
