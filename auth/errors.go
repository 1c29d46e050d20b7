package auth

import "errors"

// Sentinel errors for the session and authorization.
var (
	// Session errors
	ErrNotLoggedIn        = errors.New("auth: not logged in")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrUnknownRole        = errors.New("auth: unknown role")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")
)
