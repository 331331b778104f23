package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth service; handlers map them to HTTP status codes
// with errors.Is. Anything else returned by AuthService is an internal failure.
var (
	// ErrDuplicateEmail: a user with the email already exists. HTTP 409.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials: unknown email or wrong password, deliberately indistinguishable. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken: any refresh-flow rejection. The wrapped reason is for logs only. HTTP 401.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrInvalidAccessToken: bearer token missing, malformed, expired or of the wrong class. HTTP 401.
	ErrInvalidAccessToken = errors.New("invalid or expired access token")
	// ErrForbidden: the session does not exist or belongs to another user. HTTP 403.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound: the user id no longer resolves. Inside Refresh it is wrapped by ErrInvalidRefreshToken.
	ErrUserNotFound = errors.New("user not found")
)

// invalidRefresh wraps ErrInvalidRefreshToken with an internal reason.
func invalidRefresh(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRefreshToken, reason)
}
