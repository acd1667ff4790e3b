package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserContext_Access(t *testing.T) {
	clerk := &UserContext{UserID: "u1", StoreIDs: []string{"S1"}, Permissions: []string{"inventory:write"}}
	admin := &UserContext{UserID: "root", IsAdmin: true}

	assert.True(t, clerk.CanAccessStore("S1"))
	assert.False(t, clerk.CanAccessStore("S2"))
	assert.True(t, clerk.HasPermission("inventory:write"))
	assert.False(t, clerk.HasPermission("inventory:repair"))

	assert.True(t, admin.CanAccessStore("anything"))
	assert.True(t, admin.HasPermission("inventory:repair"))

	var nobody *UserContext
	assert.False(t, nobody.CanAccessStore("S1"))
}

func TestStoreScope(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetStoreID(ctx))

	ctx = WithStore(ctx, "S1")
	ctx = WithUser(ctx, &UserContext{UserID: "u1"})
	assert.Equal(t, "S1", GetStoreID(ctx))
	assert.Equal(t, "u1", GetUserID(ctx))
}
