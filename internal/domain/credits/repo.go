package credits

import (
	"context"

	"retailhub/internal/core/types"
)

// Repository stores credit sales, payments and the cached accounts.
type Repository interface {
	CreateSale(ctx context.Context, sale *Sale) error
	// GetSale returns nil when the sale does not exist.
	GetSale(ctx context.Context, storeID, saleID string) (*Sale, error)
	// GetSaleForUpdate is GetSale holding a row lock on the sale until the
	// surrounding transaction ends. Payments on one sale serialize on it.
	GetSaleForUpdate(ctx context.Context, storeID, saleID string) (*Sale, error)
	AddPayment(ctx context.Context, p *Payment) error
	// PaidAmount sums the payments of a sale.
	PaidAmount(ctx context.Context, storeID, saleID string) (types.Money, error)

	// GetAccount returns nil when no account row exists.
	GetAccount(ctx context.Context, storeID, saleID string) (*Account, error)
	UpsertAccount(ctx context.Context, a *Account) error

	SaleIDs(ctx context.Context, storeID string) ([]string, error)
	// StoreIDs lists stores with at least one credit sale.
	StoreIDs(ctx context.Context) ([]string, error)
	AccountSaleIDs(ctx context.Context, storeID string) ([]string, error)
}
