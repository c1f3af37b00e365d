package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// GetRouterUser extracts the authenticated User attached by the middleware.
func GetRouterUser(ctx router.Context, key string) (*User, bool) {
	if key == "" {
		key = "user" // Default key used by JWT middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*User)
	return user, ok
}

// IsAdmin reports whether the context carries an admin user.
func IsAdmin(ctx context.Context) bool {
	user, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return NormalizeRole(user.RoleName()) == RoleAdmin
}

// IsAdminFromRouter is the router-context variant of IsAdmin.
func IsAdminFromRouter(ctx router.Context, key string) bool {
	user, ok := GetRouterUser(ctx, key)
	if !ok {
		return false
	}
	return NormalizeRole(user.RoleName()) == RoleAdmin
}
