package domain

import "errors"

// AnonymousPrincipal scopes storage writes when no principal could be established.
const AnonymousPrincipal = "anon"

var (
	// ErrNoAuthToken is returned when an authentication token is required but not provided.
	ErrNoAuthToken = errors.New("no auth token")
	// ErrInvalidAuthToken is returned when the auth service rejects a token.
	ErrInvalidAuthToken = errors.New("invalid auth token")
	// ErrUnauthorized is returned when an operation needs a principal and none is present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoPrincipal is returned when the auth service could not issue a principal.
	ErrNoPrincipal = errors.New("no principal")
)
