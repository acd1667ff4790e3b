package inventorytest

import (
	"context"
	"slices"
	"sync"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/inventory"
)

// CachedStock is an in-memory product stock cache keyed by (product, store).
type CachedStock struct {
	mu     sync.Mutex
	stock  map[[2]string]types.Quantity
	writes int
}

func NewCachedStock() *CachedStock {
	return &CachedStock{stock: map[[2]string]types.Quantity{}}
}

// Put creates or overwrites a product's cached stock without counting as a write.
func (c *CachedStock) Put(productID, storeID string, q types.Quantity) {
	c.mu.Lock()
	c.stock[[2]string{productID, storeID}] = q
	c.mu.Unlock()
}

// Writes counts SetCachedStock calls.
func (c *CachedStock) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func (c *CachedStock) GetCachedStock(_ context.Context, productID, storeID string) (types.Quantity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.stock[[2]string{productID, storeID}]
	if !ok {
		return 0, apperror.NewNotFound("product", productID)
	}
	return q, nil
}

func (c *CachedStock) SetCachedStock(_ context.Context, productID, storeID string, q types.Quantity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := [2]string{productID, storeID}
	if _, ok := c.stock[k]; !ok {
		return apperror.NewNotFound("product", productID)
	}
	c.stock[k] = q
	c.writes++
	return nil
}

func (c *CachedStock) ProductIDs(_ context.Context, storeID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for k := range c.stock {
		if k[1] == storeID {
			ids = append(ids, k[0])
		}
	}
	slices.Sort(ids)
	return ids, nil
}

var _ inventory.CachedStockStore = (*CachedStock)(nil)
