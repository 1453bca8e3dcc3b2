// Package auth resolves the caller's identity and role scope.
package auth

import (
	"context"
	"strings"
)

// Role is the caller's access role.
type Role string

const (
	// RoleAdmin sees every record.
	RoleAdmin Role = "admin"
	// RoleSales sees only records it owns.
	RoleSales Role = "sales"
)

// Identity is the resolved caller.
type Identity struct {
	Role   Role   `json:"role"`
	UserID string `json:"user_id"`
}

// Anonymous is the identity of an unauthenticated caller.
var Anonymous = Identity{}

// ParseRole normalizes a role name. Unknown roles are returned as-is and
// are not allowed to view anything.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// CanView reports whether the identity may see any projection data.
func (i Identity) CanView() bool {
	switch i.Role {
	case RoleAdmin:
		return true
	case RoleSales:
		return i.UserID != ""
	default:
		return false
	}
}

// OwnerScope is the owner id reads must be restricted to, or "" when the
// identity sees everything.
func (i Identity) OwnerScope() string {
	if i.Role == RoleAdmin {
		return ""
	}
	return i.UserID
}

// Resolver returns the identity of the caller bound to ctx.
type Resolver interface {
	Resolve(ctx context.Context) (Identity, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (Identity, error)

// Resolve calls f(ctx).
func (f ResolverFunc) Resolve(ctx context.Context) (Identity, error) {
	return f(ctx)
}

// Static always resolves to the same identity. Used by the CLI.
func Static(id Identity) Resolver {
	return ResolverFunc(func(context.Context) (Identity, error) {
		return id, nil
	})
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok {
		return Anonymous
	}
	return id
}

// ContextResolver resolves the identity placed in the request context by
// the HTTP middleware.
var ContextResolver Resolver = ResolverFunc(func(ctx context.Context) (Identity, error) {
	return FromContext(ctx), nil
})
