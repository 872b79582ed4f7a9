// Package context carries request-scoped values through the studyhub services.
package context

// contextKey keeps values set by this package from colliding with other packages.
type contextKey string
