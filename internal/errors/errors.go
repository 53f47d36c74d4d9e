// Package errors provides unified error handling for the authorization-code flow
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents specific error types
type ErrorCode string

const (
	// Provider and configuration errors
	ErrCodeProviderNotFound        ErrorCode = "PROVIDER_NOT_FOUND"
	ErrCodeInvalidProviderConfig   ErrorCode = "INVALID_PROVIDER_CONFIG"
	ErrCodeInvalidAuthorizationURL ErrorCode = "INVALID_AUTHORIZATION_URL"
	ErrCodeConfigInvalid           ErrorCode = "CONFIG_INVALID"

	// Provider communication errors
	ErrCodeTokenExchangeFailed ErrorCode = "TOKEN_EXCHANGE_FAILED"
	ErrCodeUserInfoFailed      ErrorCode = "USER_INFO_FAILED"

	// Flow errors
	ErrCodeLoginFlow ErrorCode = "LOGIN_FLOW_ERROR"

	// Session token errors
	ErrCodeInvalidOrExpiredToken ErrorCode = "INVALID_OR_EXPIRED_TOKEN"
	ErrCodeTokenExpired          ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid          ErrorCode = "TOKEN_INVALID"
	ErrCodeTokenMissing          ErrorCode = "TOKEN_MISSING"

	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// AuthError represents a structured error with context
type AuthError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	HTTPStatus int       `json:"http_status"`
	Internal   error     `json:"-"` // Internal error, not exposed
}

// Error implements the error interface
func (e *AuthError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Internal != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Internal)
	}
	return msg
}

// Unwrap returns the internal error for error wrapping
func (e *AuthError) Unwrap() error {
	return e.Internal
}

// Is reports whether target is an AuthError carrying the same code.
// This lets callers match on sentinel values such as ErrLoginFlow.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsRetryable indicates if the caller can recover without a new login,
// which is only the case for an expired access token (refresh endpoint).
func (e *AuthError) IsRetryable() bool {
	return e.Code == ErrCodeTokenExpired || e.Code == ErrCodeTokenMissing
}

// ToJSON converts the error to the JSON response body. Internal errors and
// details never leave the process.
func (e *AuthError) ToJSON() map[string]any {
	status := GetHTTPStatus(e)
	return map[string]any{
		"error":             http.StatusText(status),
		"error_description": FormatUserMessage(e),
		"status_code":       status,
		"code":              e.Code,
		"retryable":         e.IsRetryable(),
	}
}

// Sentinels usable with errors.Is. Only the code is compared.
var (
	ErrProviderNotFound        = &AuthError{Code: ErrCodeProviderNotFound}
	ErrInvalidProviderConfig   = &AuthError{Code: ErrCodeInvalidProviderConfig}
	ErrInvalidAuthorizationURL = &AuthError{Code: ErrCodeInvalidAuthorizationURL}
	ErrTokenExchangeFailed     = &AuthError{Code: ErrCodeTokenExchangeFailed}
	ErrUserInfoFailed          = &AuthError{Code: ErrCodeUserInfoFailed}
	ErrLoginFlow               = &AuthError{Code: ErrCodeLoginFlow}
	ErrInvalidOrExpiredToken   = &AuthError{Code: ErrCodeInvalidOrExpiredToken}
	ErrTokenExpired            = &AuthError{Code: ErrCodeTokenExpired}
	ErrTokenInvalid            = &AuthError{Code: ErrCodeTokenInvalid}
	ErrTokenMissing            = &AuthError{Code: ErrCodeTokenMissing}
)

// Error constructors for common scenarios

// NewProviderNotFound reports an unknown provider name
func NewProviderNotFound(name string) *AuthError {
	return &AuthError{
		Code:       ErrCodeProviderNotFound,
		Message:    "provider not found",
		Details:    name,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewInvalidProviderConfig reports a provider missing scope, state, handler path or endpoints
func NewInvalidProviderConfig(provider, details string) *AuthError {
	return &AuthError{
		Code:       ErrCodeInvalidProviderConfig,
		Message:    fmt.Sprintf("invalid configuration for provider %q", provider),
		Details:    details,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewInvalidAuthorizationURL reports a failure to build the authorization URL
func NewInvalidAuthorizationURL(provider string, internal error) *AuthError {
	return &AuthError{
		Code:       ErrCodeInvalidAuthorizationURL,
		Message:    fmt.Sprintf("could not build authorization URL for %s", provider),
		HTTPStatus: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewConfigurationError creates a configuration-related error
func NewConfigurationError(message string, internal error) *AuthError {
	return &AuthError{
		Code:       ErrCodeConfigInvalid,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewTokenExchangeFailed wraps a token endpoint failure
func NewTokenExchangeFailed(provider string, internal error) *AuthError {
	return &AuthError{
		Code:       ErrCodeTokenExchangeFailed,
		Message:    fmt.Sprintf("token exchange with %s failed", provider),
		HTTPStatus: http.StatusBadGateway,
		Internal:   internal,
	}
}

// NewUserInfoFailed wraps a user-info endpoint failure
func NewUserInfoFailed(provider string, internal error) *AuthError {
	return &AuthError{
		Code:       ErrCodeUserInfoFailed,
		Message:    fmt.Sprintf("fetching user info from %s failed", provider),
		HTTPStatus: http.StatusBadGateway,
		Internal:   internal,
	}
}

// NewLoginFlowError reports a redirect that came back without a usable code/state
func NewLoginFlowError(details string) *AuthError {
	return &AuthError{
		Code:       ErrCodeLoginFlow,
		Message:    "login flow could not be resumed",
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidOrExpiredToken reports a refresh token that failed verification
func NewInvalidOrExpiredToken(internal error) *AuthError {
	return &AuthError{
		Code:       ErrCodeInvalidOrExpiredToken,
		Message:    "refresh token is invalid or expired",
		HTTPStatus: http.StatusForbidden,
		Internal:   internal,
	}
}

// NewTokenError classifies an access token verification failure.
// Expired tokens are retryable through the refresh endpoint (401),
// anything else is treated as tampering (403).
func NewTokenError(expired bool, internal error) *AuthError {
	if expired {
		return &AuthError{
			Code:       ErrCodeTokenExpired,
			Message:    "access token expired",
			HTTPStatus: http.StatusUnauthorized,
			Internal:   internal,
		}
	}
	return &AuthError{
		Code:       ErrCodeTokenInvalid,
		Message:    "access token invalid",
		HTTPStatus: http.StatusForbidden,
		Internal:   internal,
	}
}

// NewTokenMissing reports a request that carried no token at all
func NewTokenMissing(which string) *AuthError {
	return &AuthError{
		Code:       ErrCodeTokenMissing,
		Message:    which + " missing",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewRateLimited reports a request rejected by the limiter
func NewRateLimited() *AuthError {
	return &AuthError{
		Code:       ErrCodeRateLimited,
		Message:    "too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// AsAuthError extracts an AuthError from an error chain
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if stderrors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain
func HasCode(err error, code ErrorCode) bool {
	authErr, ok := AsAuthError(err)
	return ok && authErr.Code == code
}

// GetHTTPStatus extracts HTTP status from error, defaulting to 500
func GetHTTPStatus(err error) int {
	if authErr, ok := AsAuthError(err); ok && authErr.HTTPStatus != 0 {
		return authErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// FormatUserMessage creates a user-friendly error message
func FormatUserMessage(err error) string {
	authErr, ok := AsAuthError(err)
	if !ok {
		return "An unexpected error occurred. Please try again"
	}
	switch authErr.Code {
	case ErrCodeProviderNotFound:
		return "Unknown login provider"
	case ErrCodeLoginFlow:
		return "Login was interrupted. Please try again"
	case ErrCodeTokenExchangeFailed, ErrCodeUserInfoFailed:
		return "Could not complete login with the provider. Please try again later"
	case ErrCodeTokenExpired, ErrCodeInvalidOrExpiredToken:
		return "Your session has expired. Please log in again"
	case ErrCodeRateLimited:
		return "Too many requests. Please wait a moment and try again"
	default:
		return "Authentication failed. Please try again"
	}
}
