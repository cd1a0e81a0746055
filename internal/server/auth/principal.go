package auth

import (
	"context"

	"github.com/google/uuid"
)

// Principal is the identity resolved for a single request. It lives only in
// the request context.
type Principal struct {
	Subject       string
	UserID        uuid.UUID
	Role          Role
	Authenticated bool
}

// HasAnyRole reports whether the principal holds one of roles.
func (p Principal) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated principal attached to ctx.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || !p.Authenticated {
		return Principal{}, false
	}
	return p, true
}
