package errors

import (
	"errors"
	"fmt"
)

// Error classes shared by the session, identity and mail layers. Handlers map
// these to HTTP status codes; the wrapped detail never reaches a client.
var (
	// Identity provider errors
	ErrAuthExchange   = errors.New("authorization code exchange failed")
	ErrProfileFetch   = errors.New("profile fetch failed")
	ErrTokenRefresh   = errors.New("token refresh failed")
	ErrNoRefreshToken = errors.New("no refresh token available")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Storage errors
	ErrStore = errors.New("store error")

	// Mail errors
	ErrMailSend = errors.New("mail send failed")

	// Request errors
	ErrInvalidRequest = errors.New("invalid request")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Mark attaches a class sentinel to err while keeping err in the chain, so
// errors.Is matches both.
func Mark(err, class error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", class, err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join wraps errors.Join
func Join(errs ...error) error {
	return errors.Join(errs...)
}
