package oidcrp

import (
	"context"
	"errors"
)

// ContextKey is the key under which verified claims are stored in the
// request context.
type ContextKey struct{}

// ErrNoClaims is returned by ClaimsFromContext when the context carries
// no verified claims.
var ErrNoClaims = errors.New("no verified claims in context")

// NewContextWithClaims returns a context carrying the verified claims.
func NewContextWithClaims(ctx context.Context, claims map[string]any) context.Context {
	return context.WithValue(ctx, ContextKey{}, claims)
}

// ClaimsFromContext returns the verified claims stored by the middleware.
func ClaimsFromContext(ctx context.Context) (map[string]any, error) {
	claims, ok := ctx.Value(ContextKey{}).(map[string]any)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

// HasClaims reports whether the context carries verified claims.
func HasClaims(ctx context.Context) bool {
	_, ok := ctx.Value(ContextKey{}).(map[string]any)
	return ok
}
