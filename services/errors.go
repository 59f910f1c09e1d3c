package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeExportDenied     ErrorType = "export_denied"
	ErrorTypePolicyViolation  ErrorType = "policy_violation"
	ErrorTypeStoreUnavailable ErrorType = "store_unavailable"
	ErrorTypeConfiguration    ErrorType = "configuration"
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeUnauthorized     ErrorType = "unauthorized"
	ErrorTypeForbidden        ErrorType = "forbidden"
	ErrorTypeInternal         ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables. Compare with errors.Is; matching is by ErrorType.

var (
	// Security policy errors, always surfaced to the user
	ErrExportDenied    = NewDomainError(ErrorTypeExportDenied, "data export is not allowed", nil)
	ErrPolicyViolation = NewDomainError(ErrorTypePolicyViolation, "only SELECT statements are allowed", nil)

	// Infrastructure errors
	ErrStoreUnavailable = NewDomainError(ErrorTypeStoreUnavailable, "store unavailable", nil)
	ErrMissingDataStore = NewDomainError(ErrorTypeConfiguration, "data store connection is not configured", nil)

	// Gateway errors
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)
	ErrForbidden    = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrInternal     = NewDomainError(ErrorTypeInternal, "internal error", nil)
)

// NewExportDenied builds the error returned by every export guard. target is
// the offending filename for file guards and the method name otherwise.
func NewExportDenied(operation, target string) *DomainError {
	msg := fmt.Sprintf("saving %s is not allowed, data export is disabled", target)
	if target == "" {
		msg = fmt.Sprintf("%s is not allowed, data export is disabled", operation)
	}
	return NewDomainError(ErrorTypeExportDenied, msg, nil).
		WithDetail("operation", operation).
		WithDetail("filename", target)
}

// NewPolicyViolation builds the error returned for a rejected query.
func NewPolicyViolation(reason, token string) *DomainError {
	err := NewDomainError(ErrorTypePolicyViolation, "only SELECT statements are allowed", nil).
		WithDetail("reason", reason)
	if token != "" {
		err.WithDetail("token", token)
	}
	return err
}

// Error type checking helper functions

// IsExportDeniedError checks if an error is an export denial
func IsExportDeniedError(err error) bool {
	return GetErrorType(err) == ErrorTypeExportDenied
}

// IsPolicyViolationError checks if an error is a policy violation error
func IsPolicyViolationError(err error) bool {
	return GetErrorType(err) == ErrorTypePolicyViolation
}

// IsStoreUnavailableError checks if an error is a store failure
func IsStoreUnavailableError(err error) bool {
	return GetErrorType(err) == ErrorTypeStoreUnavailable
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return GetErrorType(err) == ErrorTypeConfiguration
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapStoreUnavailable wraps a store failure
func WrapStoreUnavailable(message string, err error) error {
	return NewDomainError(ErrorTypeStoreUnavailable, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
