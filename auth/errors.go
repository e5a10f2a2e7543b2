package auth

import "errors"

var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")

	// ErrUnknownMode is returned by New for an unsupported mode.
	ErrUnknownMode = errors.New("auth: unknown mode")
)

// IsAuthFailure reports whether err is a credential problem (as opposed to
// an internal fault).
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed)
}
