// Package context carries request-scoped identity, store scope and tracing values.
package context

import (
	"context"
	"slices"
)

// UserContext is the authenticated caller.
type UserContext struct {
	UserID      string
	Email       string
	Roles       []string
	Permissions []string
	// StoreIDs lists the stores the caller may act in.
	StoreIDs []string
	IsAdmin  bool
}

// CanAccessStore reports whether the user may operate on storeID.
func (u *UserContext) CanAccessStore(storeID string) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || slices.Contains(u.StoreIDs, storeID)
}

// HasPermission reports whether the user holds perm. Admins hold every permission.
func (u *UserContext) HasPermission(perm string) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || slices.Contains(u.Permissions, perm)
}

type userContextKey struct{}

func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns the caller's ID or "".
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

type storeKey struct{}

// WithStore scopes ctx to a single store.
func WithStore(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, storeKey{}, storeID)
}

// GetStoreID returns the store the request is scoped to, or "".
func GetStoreID(ctx context.Context) string {
	if v, ok := ctx.Value(storeKey{}).(string); ok {
		return v
	}
	return ""
}
