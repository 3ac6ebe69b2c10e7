package apperrors

import (
	"errors"
	"net/http"
)

// Sentinel errors for the auth domain. Services wrap these with %w and a
// human-readable detail; handlers map them to HTTP statuses with StatusFor.
var (
	// ErrAuthentication covers bad credentials and bad/expired tokens.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation covers domain-rule violations, e.g. a duplicate email.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a looked-up resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInactive is returned for soft-deleted accounts.
	ErrInactive = errors.New("account is deactivated")

	// ErrRateLimit is returned when a caller exceeds the request budget.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrUnavailable covers downstream provider verification failures.
	ErrUnavailable = errors.New("service unavailable")
)

func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInactive):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnavailable):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
