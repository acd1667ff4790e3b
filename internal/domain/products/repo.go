package products

import (
	"context"

	"retailhub/internal/core/types"
)

// Repository persists products. Every stock method returns NOT_FOUND for an
// unknown (productID, storeID).
type Repository interface {
	// Create inserts p. A duplicate id or SKU yields DUPLICATE_ENTRY.
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, productID, storeID string) (*Product, error)

	GetCachedStock(ctx context.Context, productID, storeID string) (types.Quantity, error)
	SetCachedStock(ctx context.Context, productID, storeID string, qty types.Quantity) error
	// AdjustCachedStock adds delta to the cached stock and returns the result.
	AdjustCachedStock(ctx context.Context, productID, storeID string, delta types.Quantity) (types.Quantity, error)

	// ProductIDs lists every product of the store.
	ProductIDs(ctx context.Context, storeID string) ([]string, error)
	// StoreIDs lists stores with at least one product.
	StoreIDs(ctx context.Context) ([]string, error)
}
