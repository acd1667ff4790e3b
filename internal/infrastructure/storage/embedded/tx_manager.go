package embedded

import (
	"context"

	"gorm.io/gorm"

	"retailhub/internal/core/tx"
)

var (
	_ tx.Manager       = (*TxManager)(nil)
	_ tx.InTransaction = (*TxManager)(nil)
)

// TxManager keeps the active gorm transaction in the context.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

type txKey struct{}

// RunInTransaction runs fn in a transaction, joining one already in ctx.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.InTransaction(ctx) {
		return fn(ctx)
	}

	var fnErr error
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(context.WithValue(ctx, txKey{}, tx))
		return fnErr
	})
	if err != nil && fnErr == nil {
		// Begin or commit failed.
		return mapError(err)
	}
	return err
}

func (m *TxManager) InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// conn returns the transaction in ctx, or the database.
func (m *TxManager) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return m.db.WithContext(ctx)
}

// Ping checks the database connection.
func (m *TxManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
