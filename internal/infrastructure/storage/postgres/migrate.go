package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"retailhub/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *Pool) error {
	// No arguments, so pgx sends it over the simple protocol and the
	// multi-statement script runs as one request.
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info(ctx, "database schema applied")
	return nil
}
