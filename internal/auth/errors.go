package auth

import "errors"

// Expected authentication and authorization outcomes. These are ordinary
// control flow: handlers map each kind to a response, nothing here is fatal.
var (
	// ErrInvalidCredentials covers bad username/password as well as
	// invalid, expired or forged tokens. The kinds are deliberately
	// merged so callers cannot distinguish them.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	ErrInactiveAccount   = errors.New("auth: inactive account")
	ErrInvalidInput      = errors.New("auth: invalid input")
	ErrForbidden         = errors.New("auth: forbidden")
	ErrWeakPassword      = errors.New("auth: weak password")
	ErrDuplicateIdentity = errors.New("auth: identity already taken")
	ErrNotFound          = errors.New("auth: not found")
)
