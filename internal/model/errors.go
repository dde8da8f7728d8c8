package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrConfiguration     = errors.New("configuration error")
	ErrRemoteOrder       = errors.New("remote order error")
	ErrAuthFallback      = errors.New("auth fallback exhausted")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUpstreamError     = errors.New("upstream error")
)

// authFallbackHint is appended to errors where both auth methods were rejected.
const authFallbackHint = "Check REST keys (Read/Write), HTTPS, and server passing Authorization header."

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized

	// Set when the error originates from a WooCommerce response.
	RemoteStatus int    `json:"-"`
	RemoteBody   string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewConfigurationError reports required settings that are missing.
// vars are the environment variable names an operator has to set.
func NewConfigurationError(vars ...string) *APIError {
	return &APIError{
		Code:       "CONFIGURATION_ERROR",
		Message:    fmt.Sprintf("missing required configuration: %s", strings.Join(vars, ", ")),
		StatusCode: 500,
		Err:        ErrConfiguration,
	}
}

// NewRemoteOrderError creates a 502 error for a rejected order creation.
func NewRemoteOrderError(status int, body string) *APIError {
	return &APIError{
		Code:         "REMOTE_ORDER_ERROR",
		Message:      fmt.Sprintf("WooCommerce order create failed: %d %s", status, body),
		StatusCode:   502,
		Err:          ErrRemoteOrder,
		RemoteStatus: status,
		RemoteBody:   body,
	}
}

// NewAuthFallbackError creates a 502 error for an order creation that was
// rejected with header credentials and then failed with query credentials.
func NewAuthFallbackError(status int, body string) *APIError {
	return &APIError{
		Code:         "AUTH_FALLBACK_EXHAUSTED",
		Message:      fmt.Sprintf("WooCommerce order create failed (fallback): %d %s. %s", status, body, authFallbackHint),
		StatusCode:   502,
		Err:          ErrAuthFallback,
		RemoteStatus: status,
		RemoteBody:   body,
	}
}

// NewMalformedResponseError creates a 502 error for a successful order response
// that cannot be turned into a pay URL.
func NewMalformedResponseError(fallback bool, err error) *APIError {
	msg := "WooCommerce order response missing id/order_key"
	if fallback {
		msg += " (fallback)"
	}
	wrapped := ErrMalformedResponse
	if err != nil {
		wrapped = fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &APIError{
		Code:       "MALFORMED_RESPONSE",
		Message:    msg,
		StatusCode: 502,
		Err:        wrapped,
	}
}

// NewUpstreamError creates a 502 error for backend failures.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: 500,
		Err:        err,
	}
}
