package auth

import (
	"context"
	"time"
)

// Method names how a caller authenticated.
type Method string

const (
	MethodAnonymous Method = "anonymous"
	MethodAPIKey    Method = "api_key"
	MethodJWT       Method = "jwt"
)

// Identity is an authenticated caller.
type Identity struct {
	Principal string
	Method    Method
	Claims    map[string]any
	ExpiresAt time.Time
}

// Anonymous is the identity of callers when no gate is configured.
func Anonymous() *Identity {
	return &Identity{Principal: "anonymous", Method: MethodAnonymous}
}

type identityKey struct{}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
