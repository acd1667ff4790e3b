// Package embedded is a single-node storage backend on SQLite through gorm.
//
// The database is opened with one connection, so transactions run one at a
// time and ledger writers never race. It suits development, demos and
// single-store installs; multi-node deployments use the PostgreSQL backend.
package embedded

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"retailhub/internal/core/apperror"
)

// Open opens (or creates) the database at path and migrates the schema.
// Use "file::memory:?cache=shared" for a throwaway database.
func Open(ctx context.Context, path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&movementRow{},
		&productRow{},
		&creditSaleRow{},
		&creditPaymentRow{},
		&creditAccountRow{},
		&auditRow{},
	)
	if err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.NewConflict("record already exists").WithCause(err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperror.NewValidation("referenced record does not exist").WithCause(err)
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	return apperror.NewStorage(err)
}
