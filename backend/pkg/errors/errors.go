package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound represents a referenced record that does not exist
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeForbidden represents a mutation attempted by a non-owner
	ErrorTypeForbidden ErrorType = "forbidden"
	// ErrorTypeUnauthenticated represents a request without a resolvable identity
	ErrorTypeUnauthenticated ErrorType = "unauthenticated"
	// ErrorTypeInvalid represents malformed input
	ErrorTypeInvalid ErrorType = "invalid"
	// ErrorTypeStore represents document or graph store failures
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
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

// ErrorType reports the category of the error
func (e *BaseError) ErrorType() ErrorType {
	return e.Type
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

// Lookup Errors

// ErrNotFound is returned when a user, post, comment or notification does not exist
type ErrNotFound struct {
	*BaseError
	Resource string
	ID       string
}

func NewNotFound(resource, id string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", resource, id), nil),
		Resource:  resource,
		ID:        id,
	}
}

// Access Errors

// ErrForbidden is returned when the actor does not own the record it tries to change
type ErrForbidden struct {
	*BaseError
	ActorID  string
	Resource string
}

func NewForbidden(actorID, resource string) *ErrForbidden {
	return &ErrForbidden{
		BaseError: NewBaseError(ErrorTypeForbidden, fmt.Sprintf("user %s may not modify this %s", actorID, resource), nil),
		ActorID:   actorID,
		Resource:  resource,
	}
}

// ErrUnauthenticated is returned when no identity can be resolved for the request
type ErrUnauthenticated struct {
	*BaseError
	Reason string
}

func NewUnauthenticated(reason string, err error) *ErrUnauthenticated {
	return &ErrUnauthenticated{
		BaseError: NewBaseError(ErrorTypeUnauthenticated, fmt.Sprintf("unauthenticated: %s", reason), err),
		Reason:    reason,
	}
}

// Input Errors

// ErrInvalid is returned when a request argument is rejected
type ErrInvalid struct {
	*BaseError
	Field  string
	Reason string
}

func NewInvalid(field, reason string) *ErrInvalid {
	return &ErrInvalid{
		BaseError: NewBaseError(ErrorTypeInvalid, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Store Errors

// ErrStoreFailed is returned when a store operation fails for a reason other than a missing record
type ErrStoreFailed struct {
	*BaseError
	Operation string
}

func NewStoreFailed(operation string, err error) *ErrStoreFailed {
	return &ErrStoreFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store operation failed: %s", operation), err),
		Operation: operation,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
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

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type typed interface {
	ErrorType() ErrorType
}

// TypeOf returns the category of the first typed error in the chain, or "" for foreign errors
func TypeOf(err error) ErrorType {
	var t typed
	if errors.As(err, &t) {
		return t.ErrorType()
	}
	return ""
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

func IsNotFound(err error) bool        { return IsErrorType(err, ErrorTypeNotFound) }
func IsForbidden(err error) bool       { return IsErrorType(err, ErrorTypeForbidden) }
func IsUnauthenticated(err error) bool { return IsErrorType(err, ErrorTypeUnauthenticated) }
func IsInvalid(err error) bool         { return IsErrorType(err, ErrorTypeInvalid) }

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	// Store errors are usually transient connectivity problems
	return IsErrorType(err, ErrorTypeStore)
}
