// Package authclient talks to the external auth service. It validates bearer tokens
// and establishes anonymous principals for storage writes.
package authclient

import "context"

// AuthClient defines the interface for validating authentication tokens.
type AuthClient interface {
	// Validate checks if the given token is valid.
	// Returns the principal the token was issued to, whether the token is valid,
	// and any error encountered during validation.
	Validate(ctx context.Context, token string) (string, bool, error)
}

// PrincipalProvider returns the principal that scopes a storage write, establishing an
// anonymous one when the request carries none.
type PrincipalProvider interface {
	EnsurePrincipal(ctx context.Context) (string, error)
}
