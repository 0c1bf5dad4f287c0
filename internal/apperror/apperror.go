// Package apperror defines the application's error taxonomy.
//
// Services return these typed errors; the HTTP layer maps them to status
// codes and response bodies in one place (handler/response.go). Sentinel
// errors support errors.Is checks across wrapping, while AppError carries
// the human-readable message (and optionally the offending field) that ends
// up in the response body.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// Social login failures, in the order the flow can hit them.
	ErrExchangeFailed     = errors.New("exchange failed")
	ErrNoToken            = errors.New("no access token")
	ErrProfileUnavailable = errors.New("profile unavailable")
	ErrEmailMissing       = errors.New("email missing")

	// ErrNetwork is a transport-level failure reaching a provider. It is the
	// only error in the taxonomy that indicates our own connectivity rather
	// than bad caller input, so handlers map it to 5xx.
	ErrNetwork = errors.New("network error")
)

type AppError struct {
	Err     error  // sentinel, for errors.Is
	Message string // human-readable, returned to the client
	Field   string // optional: field causing the error ("" → non_field_errors)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a storage-layer uniqueness violation. field names the
// conflicting column when known ("username", "email") so registration errors
// can be keyed per field like the rest of the validation errors.
func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for missing or invalid credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// ExchangeFailed reports that a provider rejected the code-for-token
// exchange. detail is the provider's error description when it sent one.
func ExchangeFailed(provider, detail string) *AppError {
	msg := fmt.Sprintf("Failed to exchange code with %s", provider)
	if detail != "" {
		msg = fmt.Sprintf("%s authentication error: %s", provider, detail)
	}
	return &AppError{Err: ErrExchangeFailed, Message: msg}
}

// NoToken reports a successful exchange response that carried no token.
func NoToken(provider string) *AppError {
	return &AppError{
		Err:     ErrNoToken,
		Message: fmt.Sprintf("No access token received from %s", provider),
	}
}

// ProfileUnavailable reports a failed profile lookup at the provider.
func ProfileUnavailable(provider string) *AppError {
	return &AppError{
		Err:     ErrProfileUnavailable,
		Message: fmt.Sprintf("Failed to get user information from %s", provider),
	}
}

// EmailMissing reports that the provider returned no usable email address.
// For GitHub "usable" means primary AND verified — unverified addresses are
// never accepted, to rule out account takeover via spoofed addresses.
func EmailMissing(provider string) *AppError {
	return &AppError{
		Err:     ErrEmailMissing,
		Message: fmt.Sprintf("No verified email address provided by %s", provider),
	}
}

// Network wraps a transport-level error from an outbound provider call.
func Network(provider string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrNetwork, err),
		Message: fmt.Sprintf("Network error during %s authentication", provider),
	}
}
