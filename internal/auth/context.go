package auth

import (
	"context"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
)

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a context carrying the verified identity.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the verified identity, if the request has one.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(domain.Identity)
	return id, ok
}
