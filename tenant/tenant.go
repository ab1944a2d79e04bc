// Package tenant carries the current tenant on a context.Context. Cached
// results are isolated per tenant, so every repository call resolves one.
package tenant

import (
	"context"
	"errors"
)

// Default is used when a context carries no tenant.
const Default = "default"

// ErrMissing is returned by Require for a context without a tenant.
var ErrMissing = errors.New("tenant: no tenant on context")

type key struct{}

// With returns a copy of ctx carrying tenant id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// From returns the tenant on ctx, or Default.
func From(ctx context.Context) string {
	if id, ok := ctx.Value(key{}).(string); ok && id != "" {
		return id
	}
	return Default
}

// Require returns the tenant on ctx and fails when there is none.
func Require(ctx context.Context) (string, error) {
	id, ok := ctx.Value(key{}).(string)
	if !ok || id == "" {
		return "", ErrMissing
	}
	return id, nil
}
