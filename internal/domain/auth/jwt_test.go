package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "retailhub/internal/core/context"
)

func TestJWTValidator_RoundTrip(t *testing.T) {
	v := NewJWTValidator(DefaultJWTConfig("test-secret"))
	user := &appctx.UserContext{
		UserID:      "u1",
		Permissions: []string{PermRepairInventory},
		StoreIDs:    []string{"S1", "S2"},
	}

	token, expiresAt, err := v.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	got, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.CanAccessStore("S2"))
	assert.False(t, got.CanAccessStore("S3"))
	assert.True(t, got.HasPermission(PermRepairInventory))
	assert.False(t, got.HasPermission(PermRepairCredits))
}

func TestJWTValidator_Rejects(t *testing.T) {
	v := NewJWTValidator(DefaultJWTConfig("test-secret"))
	token, _, err := v.GenerateAccessToken(&appctx.UserContext{UserID: "u1"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTValidator(DefaultJWTConfig("another-secret"))
		_, err := other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		cfg := DefaultJWTConfig("test-secret")
		cfg.Issuer = "someone-else"
		_, err := NewJWTValidator(cfg).ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewJWTValidator(DefaultJWTConfig("test-secret"))
		late.now = func() time.Time { return time.Now().Add(time.Hour) }
		_, err := late.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
