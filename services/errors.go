package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeUnauthenticated ErrorType = "unauthenticated"
	ErrorTypeTenantContext   ErrorType = "tenant_context"
	ErrorTypeAccess          ErrorType = "access"
	ErrorTypeTenantState     ErrorType = "tenant_state"
	ErrorTypeForbidden       ErrorType = "forbidden"
	ErrorTypeFeature         ErrorType = "feature"
	ErrorTypeUsageLimit      ErrorType = "usage_limit"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeInternal        ErrorType = "internal"
)

// DomainError represents a structured error with additional context.
// Every pipeline stage fails with exactly one DomainError; callers match on
// Type rather than parsing message strings.
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

// Is implements errors.Is. Two domain errors match when type and message
// match, so sentinel comparisons like errors.Is(err, ErrNoAccess) can
// distinguish errors within the same type.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithDetail returns a copy of the error with a detail added. The receiver
// is not mutated so the package-level sentinels stay immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Type:    e.Type,
		Message: e.Message,
		Err:     e.Err,
		Details: details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Domain error variables

var (
	// Authentication errors: caller must re-authenticate
	ErrUnauthenticated = NewDomainError(ErrorTypeUnauthenticated, "missing or malformed credential", nil)
	ErrInvalidToken    = NewDomainError(ErrorTypeUnauthenticated, "invalid authentication token", nil)
	ErrTokenExpired    = NewDomainError(ErrorTypeUnauthenticated, "authentication token expired", nil)

	// Tenant-resolution errors: caller must supply business context
	ErrNoBusinessContext = NewDomainError(ErrorTypeTenantContext, "no business context", nil)

	// Access errors: security-relevant, never retried
	ErrNoAccess          = NewDomainError(ErrorTypeAccess, "no access to this business", nil)
	ErrInactiveStaff     = NewDomainError(ErrorTypeAccess, "staff membership is not active", nil)
	ErrCrossTenantAccess = NewDomainError(ErrorTypeAccess, "cross-tenant access denied", nil)

	// Tenant-state errors
	ErrBusinessNotFound    = NewDomainError(ErrorTypeTenantState, "business not found", nil)
	ErrBusinessSuspended   = NewDomainError(ErrorTypeTenantState, "business account is suspended", nil)
	ErrSubscriptionExpired = NewDomainError(ErrorTypeTenantState, "business subscription has expired", nil)

	// Authorization errors
	ErrMissingPermission   = NewDomainError(ErrorTypeForbidden, "missing required permission", nil)
	ErrFeatureNotAvailable = NewDomainError(ErrorTypeFeature, "feature not available on current plan", nil)
	ErrUsageLimitExceeded  = NewDomainError(ErrorTypeUsageLimit, "usage limit exceeded", nil)

	// Validation / lookup errors
	ErrInvalidInput     = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrDocumentNotFound = NewDomainError(ErrorTypeNotFound, "document not found", nil)
	ErrUserNotFound     = NewDomainError(ErrorTypeNotFound, "user not found", nil)

	// Infrastructure errors: never conflated with a security denial
	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)
)

// Error type checking helper functions

// IsUnauthenticatedError checks if an error is an authentication error
func IsUnauthenticatedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthenticated
}

// IsTenantContextError checks if an error is a tenant-resolution error
func IsTenantContextError(err error) bool {
	return GetErrorType(err) == ErrorTypeTenantContext
}

// IsAccessError checks if an error is an access error
func IsAccessError(err error) bool {
	return GetErrorType(err) == ErrorTypeAccess
}

// IsTenantStateError checks if an error is a tenant-state error
func IsTenantStateError(err error) bool {
	return GetErrorType(err) == ErrorTypeTenantState
}

// IsForbiddenError checks if an error is a missing-permission error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsFeatureError checks if an error is a feature-gate error
func IsFeatureError(err error) bool {
	return GetErrorType(err) == ErrorTypeFeature
}

// IsUsageLimitError checks if an error is a usage-limit error
func IsUsageLimitError(err error) bool {
	return GetErrorType(err) == ErrorTypeUsageLimit
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
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

// WrapInternal wraps an underlying store failure as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
