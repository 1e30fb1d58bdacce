package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error. The code drives
// the retry decision for a failed upload: validation and permanent_portal
// failures are never retried, transient_portal failures are retried with
// backoff, and auth/session_lost failures abort the batch.
type ErrorCode string

const (
	// ErrCodeValidation indicates bad row data (missing invoice file, bad price).
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeAuth indicates a login or re-authentication failure.
	ErrCodeAuth ErrorCode = "auth"
	// ErrCodeTransientPortal indicates a retryable portal failure (timeout, rate limit).
	ErrCodeTransientPortal ErrorCode = "transient_portal"
	// ErrCodePermanentPortal indicates a portal-side rejection that will not change on retry.
	ErrCodePermanentPortal ErrorCode = "permanent_portal"
	// ErrCodeSessionExpired indicates the portal bounced a request back to login.
	ErrCodeSessionExpired ErrorCode = "session_expired"
	// ErrCodeSessionLost indicates session expiry whose re-authentication failed.
	ErrCodeSessionLost ErrorCode = "session_lost"
	// ErrCodeDuplicate indicates the portal already lists the service.
	ErrCodeDuplicate ErrorCode = "duplicate"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// PortalID carries the existing portal ID for duplicate errors (optional)
	PortalID string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Auth creates a new Auth error.
func Auth(message string) *AppError {
	return &AppError{Code: ErrCodeAuth, Message: message}
}

// Transient creates a new TransientPortal error.
func Transient(message string) *AppError {
	return &AppError{Code: ErrCodeTransientPortal, Message: message}
}

// Transientf creates a new TransientPortal error with formatted message.
func Transientf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeTransientPortal, Message: fmt.Sprintf(format, args...)}
}

// Permanent creates a new PermanentPortal error.
func Permanent(message string) *AppError {
	return &AppError{Code: ErrCodePermanentPortal, Message: message}
}

// Permanentf creates a new PermanentPortal error with formatted message.
func Permanentf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodePermanentPortal, Message: fmt.Sprintf(format, args...)}
}

// SessionExpired creates a new SessionExpired error.
func SessionExpired(message string) *AppError {
	return &AppError{Code: ErrCodeSessionExpired, Message: message}
}

// SessionLost creates a new SessionLost error.
func SessionLost(message string) *AppError {
	return &AppError{Code: ErrCodeSessionLost, Message: message}
}

// Duplicate creates a new Duplicate error carrying the portal ID already
// assigned to the service.
func Duplicate(portalID string) *AppError {
	return &AppError{
		Code:     ErrCodeDuplicate,
		Message:  fmt.Sprintf("service already registered with portal id %s", portalID),
		PortalID: portalID,
	}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsAuth checks if an error is an Auth error.
func IsAuth(err error) bool {
	return isCode(err, ErrCodeAuth)
}

// IsTransient checks if an error is a TransientPortal error.
func IsTransient(err error) bool {
	return isCode(err, ErrCodeTransientPortal)
}

// IsPermanent checks if an error is a PermanentPortal error.
func IsPermanent(err error) bool {
	return isCode(err, ErrCodePermanentPortal)
}

// IsSessionExpired checks if an error is a SessionExpired error.
func IsSessionExpired(err error) bool {
	return isCode(err, ErrCodeSessionExpired)
}

// IsSessionLost checks if an error is a SessionLost error.
func IsSessionLost(err error) bool {
	return isCode(err, ErrCodeSessionLost)
}

// IsDuplicate checks if an error is a Duplicate error.
func IsDuplicate(err error) bool {
	return isCode(err, ErrCodeDuplicate)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetPortalID returns the PortalID attached to a Duplicate error, or empty string.
func GetPortalID(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.PortalID
	}
	return ""
}
