package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"retailhub/internal/core/apperror"
)

const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Constraints whose violation means another writer won the race.
var raceConstraints = map[string]string{
	"inventory_movements_key_sequence_uq": "inventory_movement",
	"inventory_movements_idempotency_uq":  "inventory_movement",
}

// MapError turns driver errors into application errors. Errors that are
// already *AppError and context errors pass through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperror.NewStorage(err)
	}

	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected:
		return apperror.NewConcurrentModification(pgErr.TableName, pgErr.ConstraintName).WithCause(err)
	case pgUniqueViolation:
		if entity, ok := raceConstraints[pgErr.ConstraintName]; ok {
			return apperror.NewConcurrentModification(entity, pgErr.ConstraintName).WithCause(err)
		}
		return apperror.NewConflict("record already exists").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgForeignKeyViolation:
		return apperror.NewValidation("referenced record does not exist").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgCheckViolation:
		return apperror.NewValidation("value violates a check constraint").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	}
	return apperror.NewStorage(err)
}
