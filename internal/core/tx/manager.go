// Package tx defines the transaction boundary used by domain services.
// Implementations live in the storage packages and keep the active
// transaction in the context.
package tx

import (
	"context"
)

// Manager runs fn inside a transaction. fn's error rolls back; nil commits.
// A call made while a transaction is already in ctx joins that transaction.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// InTransaction reports whether ctx carries an active transaction.
type InTransaction interface {
	InTransaction(ctx context.Context) bool
}
