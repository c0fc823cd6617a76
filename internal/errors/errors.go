package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidSignature is returned when a webhook signature does not verify.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrTokenNotFound is returned when no auto-login token exists for a session.
	ErrTokenNotFound = errors.New("auto-login token not found")
	// ErrTokenConsumed is returned when the token for a session was already used.
	ErrTokenConsumed = errors.New("auto-login token already used")
	// ErrTokenExpired is returned when the token for a session has expired.
	ErrTokenExpired = errors.New("auto-login token expired")
	// ErrInvalidToken is returned on consumption when the token/session pair does not match.
	ErrInvalidToken = errors.New("invalid or expired auto-login token")
	// ErrSessionNotFound is returned when Stripe does not recognize a checkout session.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrSessionUnpaid is returned when a checkout session is not paid.
	ErrSessionUnpaid = errors.New("checkout session is not paid")
	// ErrMissingMetadata is returned when a paid session lacks customer details.
	ErrMissingMetadata = errors.New("checkout session is missing customer metadata")
	// ErrUserMissing is returned when the paying user was never provisioned.
	ErrUserMissing = errors.New("user record missing for paid session")
	// ErrSigningSecretMissing is returned when the session signing secret is not configured.
	ErrSigningSecretMissing = errors.New("session signing secret not configured")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountLocked is returned while a login lockout is in effect.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrRateLimited is returned when a client exceeds the request allowance.
	ErrRateLimited = errors.New("too many requests")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_SIGNATURE")
	case errors.Is(err, ErrTokenNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "TOKEN_NOT_FOUND")
	case errors.Is(err, ErrTokenConsumed):
		return NewHTTPError(http.StatusNotFound, err.Error(), "TOKEN_CONSUMED")
	case errors.Is(err, ErrTokenExpired):
		return NewHTTPError(http.StatusNotFound, err.Error(), "TOKEN_EXPIRED")
	case errors.Is(err, ErrInvalidToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_TOKEN")
	case errors.Is(err, ErrSessionNotFound):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "SESSION_NOT_FOUND")
	case errors.Is(err, ErrSessionUnpaid):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "SESSION_UNPAID")
	case errors.Is(err, ErrMissingMetadata):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "MISSING_METADATA")
	case errors.Is(err, ErrUserMissing):
		return NewHTTPError(http.StatusInternalServerError, err.Error(), "USER_MISSING")
	case errors.Is(err, ErrSigningSecretMissing):
		return NewHTTPError(http.StatusInternalServerError, err.Error(), "CONFIG_ERROR")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrAccountLocked):
		return NewHTTPError(http.StatusLocked, err.Error(), "ACCOUNT_LOCKED")
	case errors.Is(err, ErrRateLimited):
		return NewHTTPError(http.StatusTooManyRequests, err.Error(), "RATE_LIMITED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
