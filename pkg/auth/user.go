// Package auth resolves the acting user for a request and carries it
// through the request context. It supports JWT Bearer tokens (optionally
// RS256-verified) and a header-based development mode.
package auth

import "context"

// Role names used by the workflow layer.
const (
	RoleAdmin         = "admin"
	RoleEPotAdmin     = "epot-admin"
	RoleProviderAdmin = "provider-admin"
)

// User is the resolved identity of the caller. The zero value represents
// an unauthenticated system actor.
type User struct {
	Email    string
	FullName string
	Roles    []string
}

// System is the marker identity stamped on entries produced without an
// authenticated caller (migrations, scheduled jobs).
var System = User{Email: "no-user@catalogue", FullName: "System"}

// IsZero reports whether the user carries no identity.
func (u User) IsZero() bool { return u.Email == "" && u.FullName == "" }

// HasRole reports whether the user carries the given role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user holds a catalogue-wide admin role.
func (u User) IsAdmin() bool {
	return u.HasRole(RoleAdmin) || u.HasRole(RoleEPotAdmin)
}

// ctxKey is an unexported type used as the context key for User.
type ctxKey struct{}

// WithUser returns a new context with the given user attached.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext retrieves the user from the context. Returns the zero
// value and false if no user is set.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}

// ActorOrSystem returns the context user, or the System marker.
func ActorOrSystem(ctx context.Context) User {
	if u, ok := UserFromContext(ctx); ok && !u.IsZero() {
		return u
	}
	return System
}
