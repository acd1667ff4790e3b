package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, ":8080", cfg.HTTP.Addr())
	assert.Equal(t, 5, cfg.Ledger.MaxRetries)
	assert.True(t, cfg.Ledger.EnforceSign)
	assert.Equal(t, time.Hour, cfg.Worker.ReconcileInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "Embedded")
	t.Setenv("LEDGER_ENFORCE_SIGN", "false")
	t.Setenv("LEDGER_MAX_RETRIES", "2")
	t.Setenv("CORS_ORIGINS", "https://pos.example.com, https://admin.example.com")
	t.Setenv("WORKER_OUTBOX_INTERVAL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, StorageDriverEmbedded, cfg.Storage.Driver)
	assert.False(t, cfg.Ledger.EnforceSign)
	assert.Equal(t, 2, cfg.Ledger.MaxRetries)
	assert.Equal(t, []string{"https://pos.example.com", "https://admin.example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.OutboxInterval)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "mongo")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("weak secret in production", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "postgres")
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "short")
		_, err := Load()
		assert.Error(t, err)
	})
}
