package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/internal/core/apperror"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"sequence race", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "inventory_movements_key_sequence_uq"}, apperror.CodeConcurrentModification},
		{"idempotency race", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "inventory_movements_idempotency_uq"}, apperror.CodeConcurrentModification},
		{"serialization failure", &pgconn.PgError{Code: pgSerializationFailure}, apperror.CodeConcurrentModification},
		{"deadlock", &pgconn.PgError{Code: pgDeadlockDetected}, apperror.CodeConcurrentModification},
		{"other unique", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "products_sku_uq"}, apperror.CodeConflict},
		{"foreign key", &pgconn.PgError{Code: pgForeignKeyViolation}, apperror.CodeValidation},
		{"check", &pgconn.PgError{Code: pgCheckViolation}, apperror.CodeValidation},
		{"connection refused", errors.New("dial tcp: connection refused"), apperror.CodeStorage},
		{"unknown pg error", &pgconn.PgError{Code: "XX000"}, apperror.CodeStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(fmt.Errorf("insert: %w", tt.err))
			appErr, ok := apperror.AsAppError(mapped)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.ErrorIs(t, mapped, tt.err)
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	assert.NoError(t, MapError(nil))

	nf := apperror.NewNotFound("product", "p1")
	assert.Same(t, nf, MapError(nf))

	wrapped := fmt.Errorf("query: %w", context.Canceled)
	assert.Equal(t, wrapped, MapError(wrapped))
}

func TestAuditCompression(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	small := AuditRecord{Changes: []byte(`[{"key":"p1"}]`), CompressionAlgo: CompressionNone}
	svc.compress(&small)
	assert.Equal(t, CompressionNone, small.CompressionAlgo)
	assert.Nil(t, small.ChangesCompressed)

	payload := []byte("[" + strings.Repeat(`{"key":"p1","kind":"amount_mismatch"},`, 200) + `{}]`)
	large := AuditRecord{Changes: payload, CompressionAlgo: CompressionNone}
	svc.compress(&large)
	assert.Equal(t, CompressionZstd, large.CompressionAlgo)
	assert.Nil(t, large.Changes)
	assert.Less(t, len(large.ChangesCompressed), len(payload))

	require.NoError(t, svc.decompress(&large))
	assert.Equal(t, string(payload), string(large.Changes))
}

func TestOutboxHelpers(t *testing.T) {
	assert.Equal(t, "inventory", aggregateType("inventory.movement_recorded"))
	assert.Equal(t, "standalone", aggregateType("standalone"))

	assert.Equal(t, time.Minute, backoff(0))
	assert.Equal(t, 3*time.Minute, backoff(2))
	assert.Equal(t, time.Hour, backoff(500))
}
