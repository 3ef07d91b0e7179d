package common

import "context"

type ctxKey string

const identityKey ctxKey = "auth/identity"

// Identity describes the authenticated back-office user attached to a request.
type Identity struct {
	ID   string
	Name string
}

// WithIdentity stores the authenticated user on the provided context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the authenticated user from the context if present.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
