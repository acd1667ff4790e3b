// Package inventory is the stock movement ledger: an append-only log of
// signed quantity changes per (product, warehouse, store) that is the source
// of truth for stock levels.
package inventory

import (
	"context"
	"time"

	"retailhub/internal/core/entity"
	"retailhub/internal/core/id"
	"retailhub/internal/core/types"
)

// Repository is the ledger store. It has no update or delete operations.
type Repository interface {
	// LockKey serializes writers of key until the surrounding transaction ends.
	LockKey(ctx context.Context, key entity.ScopeKey) error

	// Latest returns the most recent movement of key, or nil for an empty chain.
	Latest(ctx context.Context, key entity.ScopeKey) (*entity.Movement, error)

	// Append inserts m. A (key, sequence) that is already taken yields
	// CONCURRENT_MODIFICATION.
	Append(ctx context.Context, m *entity.Movement) error

	// FindByIdempotencyKey returns nil when no movement carries key.
	FindByIdempotencyKey(ctx context.Context, storeID, key string) (*entity.Movement, error)

	SumQuantity(ctx context.Context, f Filter) (types.Quantity, error)
	Count(ctx context.Context, f Filter) (int64, error)
	TotalsByType(ctx context.Context, f Filter) ([]TypeTotal, error)

	// Balances returns the latest balance of every warehouse holding the product.
	Balances(ctx context.Context, productID, storeID string) ([]WarehouseBalance, error)

	List(ctx context.Context, opts ListOptions) ([]entity.Movement, error)

	// ProductIDs lists products with at least one movement in the store.
	ProductIDs(ctx context.Context, storeID string) ([]string, error)

	// StoreIDs lists stores with at least one movement.
	StoreIDs(ctx context.Context) ([]string, error)
}

// Filter selects movements of one product in one store. An empty
// WarehouseID covers every warehouse.
type Filter struct {
	ProductID   string
	StoreID     string
	WarehouseID string
	Types       []entity.MovementType
}

// Key returns the scoping key when the filter names a warehouse.
func (f Filter) Key() entity.ScopeKey {
	return entity.ScopeKey{ProductID: f.ProductID, WarehouseID: f.WarehouseID, StoreID: f.StoreID}
}

type Order int

const (
	OrderAsc Order = iota
	OrderDesc
)

// ListOptions pages through movements ordered by (createdAt, sequence, id).
// After is a keyset cursor and is only honoured with OrderAsc.
type ListOptions struct {
	Filter
	Order  Order
	After  *Cursor
	Limit  int
	Offset int
}

// Cursor is the ordering position of a movement.
type Cursor struct {
	CreatedAt time.Time
	Sequence  int64
	ID        id.ID
}

// CursorOf returns the position just after m.
func CursorOf(m *entity.Movement) *Cursor {
	return &Cursor{CreatedAt: m.CreatedAt, Sequence: m.Sequence, ID: m.ID}
}

// TypeTotal aggregates one movement type.
type TypeTotal struct {
	MovementType entity.MovementType `db:"movement_type" json:"movementType"`
	Count        int64               `db:"count" json:"count"`
	Quantity     types.Quantity      `db:"quantity" json:"quantity"`
}

// WarehouseBalance is the running balance of one chain.
type WarehouseBalance struct {
	WarehouseID    string         `db:"warehouse_id" json:"warehouseId"`
	Stock          types.Quantity `db:"new_stock" json:"stock"`
	Sequence       int64          `db:"sequence" json:"sequence"`
	LastMovementAt time.Time      `db:"created_at" json:"lastMovementAt"`
}

// CachedStockStore is the product collaborator's denormalized stock field.
// The recorder never touches it; only explicit repairs write to it.
type CachedStockStore interface {
	GetCachedStock(ctx context.Context, productID, storeID string) (types.Quantity, error)
	SetCachedStock(ctx context.Context, productID, storeID string, qty types.Quantity) error
	ProductIDs(ctx context.Context, storeID string) ([]string, error)
}
