package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Store errors, surfaced to the caller for retry
	ErrStoreUnavailable = errors.New("store unavailable")
)

// User errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Inventory errors
var (
	ErrComponentNotFound = errors.New("component not found")
	ErrComponentOnLoan   = errors.New("component has outstanding loans and cannot be deleted")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

// Request lifecycle errors
var (
	ErrRequestNotFound   = errors.New("request not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Notification errors. Never propagated as failure of the primary action,
// only logged by the dispatcher.
var (
	ErrNotificationFailed = errors.New("notification failed")
)

// Token format errors
var (
	ErrInvalidFormat = errors.New("invalid token format")
)

// CustomError pairs a sentinel with a caller-facing message. errors.Is still
// matches the sentinel through Unwrap, so the middleware mapping is unchanged
// while responses carry the specific message.
type CustomError struct {
	Err     error
	Message string
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}
