package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Roles(t *testing.T) {
	u := User{Email: "a@b.c", Roles: []string{RoleProviderAdmin}}
	assert.True(t, u.HasRole(RoleProviderAdmin))
	assert.False(t, u.HasRole(RoleAdmin))
	assert.False(t, u.IsAdmin())

	assert.True(t, User{Roles: []string{RoleAdmin}}.IsAdmin())
	assert.True(t, User{Roles: []string{RoleEPotAdmin}}.IsAdmin())
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()

	_, ok := UserFromContext(ctx)
	assert.False(t, ok)
	assert.Equal(t, System, ActorOrSystem(ctx))

	u := User{Email: "alice@example.org", FullName: "Alice"}
	ctx = WithUser(ctx, u)

	got, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, u, got)
	assert.Equal(t, u, ActorOrSystem(ctx))

	// An attached zero user still resolves to the system actor.
	assert.Equal(t, System, ActorOrSystem(WithUser(context.Background(), User{})))
}

func callWith(t *testing.T, decorate func(*http.Request)) User {
	t.Helper()
	mw, err := Middleware(Config{})
	require.NoError(t, err)

	var got User
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	decorate(req)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestMiddleware_HeaderIdentity(t *testing.T) {
	u := callWith(t, func(r *http.Request) {
		r.Header.Set("X-User-Email", "bob@example.org")
		r.Header.Set("X-User-Name", "Bob")
		r.Header.Set("X-User-Roles", "admin, provider-admin")
	})
	assert.Equal(t, "bob@example.org", u.Email)
	assert.Equal(t, "Bob", u.FullName)
	assert.Equal(t, []string{"admin", "provider-admin"}, u.Roles)
	assert.True(t, u.IsAdmin())
}

func TestMiddleware_NoIdentity(t *testing.T) {
	u := callWith(t, func(*http.Request) {})
	assert.True(t, u.IsZero())
}

func TestMiddleware_UnverifiedBearerToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "carol@example.org",
		"name":  "Carol",
		"realm_access": map[string]any{
			"roles": []any{"admin"},
		},
	})
	signed, err := token.SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	u := callWith(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+signed)
	})
	assert.Equal(t, "carol@example.org", u.Email)
	assert.Equal(t, []string{"admin"}, u.Roles)
}

func TestMiddleware_MalformedBearerToken(t *testing.T) {
	u := callWith(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-jwt")
	})
	assert.True(t, u.IsZero())
}
