package products_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/inventory"
	"retailhub/internal/domain/inventory/inventorytest"
	"retailhub/internal/domain/products"
)

type memRepo struct {
	mu    sync.Mutex
	items map[[2]string]*products.Product
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[[2]string]*products.Product{}}
}

func (r *memRepo) Create(_ context.Context, p *products.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.StoreID == p.StoreID && existing.SKU == p.SKU {
			return apperror.NewDuplicate("product", "sku", p.SKU)
		}
	}
	cp := *p
	r.items[[2]string{p.ID, p.StoreID}] = &cp
	return nil
}

func (r *memRepo) Get(_ context.Context, productID, storeID string) (*products.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[[2]string{productID, storeID}]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) GetCachedStock(ctx context.Context, productID, storeID string) (types.Quantity, error) {
	p, err := r.Get(ctx, productID, storeID)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

func (r *memRepo) SetCachedStock(_ context.Context, productID, storeID string, qty types.Quantity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[[2]string{productID, storeID}]
	if !ok {
		return apperror.NewNotFound("product", productID)
	}
	p.Stock = qty
	return nil
}

func (r *memRepo) AdjustCachedStock(_ context.Context, productID, storeID string, delta types.Quantity) (types.Quantity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[[2]string{productID, storeID}]
	if !ok {
		return 0, apperror.NewNotFound("product", productID)
	}
	p.Stock += delta
	return p.Stock, nil
}

func (r *memRepo) ProductIDs(_ context.Context, storeID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for k := range r.items {
		if k[1] == storeID {
			ids = append(ids, k[0])
		}
	}
	return ids, nil
}

func (r *memRepo) StoreIDs(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for k := range r.items {
		if !seen[k[1]] {
			seen[k[1]] = true
			ids = append(ids, k[1])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func setup() (*products.Service, *memRepo, *inventorytest.Store) {
	store := inventorytest.NewStore(inventorytest.ModeSerial)
	repo := newMemRepo()
	rec := inventory.NewRecorder(store, store, nil, inventory.DefaultConfig())
	return products.NewService(repo, store, rec), repo, store
}

func TestCreate_RecordsInitialStock(t *testing.T) {
	svc, _, store := setup()
	ctx := context.Background()

	p, m, err := svc.Create(ctx, products.CreateRequest{
		StoreID:      "S1",
		SKU:          "SKU-1",
		Name:         "Coffee beans",
		UnitCost:     types.MustMoney("4.50"),
		InitialStock: types.NewQuantity(25),
		WarehouseID:  "W1",
		UserID:       "u1",
	})
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, types.NewQuantity(25), p.Stock)
	assert.Equal(t, entity.MovementInitialStock, m.MovementType)
	assert.Equal(t, entity.RefProductCreation, m.ReferenceType)
	assert.Equal(t, p.ID, m.ReferenceID)
	assert.Equal(t, types.NewQuantity(25), m.NewStock)
	assert.True(t, types.MustMoney("112.5").Equal(m.TotalValue))
	assert.Len(t, store.All(), 1)
}

func TestCreate_ZeroStockSkipsMovement(t *testing.T) {
	svc, _, store := setup()

	p, m, err := svc.Create(context.Background(), products.CreateRequest{
		ID: "P-7", StoreID: "S1", SKU: "SKU-7", Name: "Tea", UserID: "u1",
	})
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, "P-7", p.ID)
	assert.Empty(t, store.All())
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := setup()

	tests := []struct {
		name  string
		req   products.CreateRequest
		field string
	}{
		{"missing store", products.CreateRequest{SKU: "A", Name: "A", UserID: "u"}, "storeId"},
		{"missing sku", products.CreateRequest{StoreID: "S1", Name: "A", UserID: "u"}, "sku"},
		{"negative stock", products.CreateRequest{StoreID: "S1", SKU: "A", Name: "A", UserID: "u", InitialStock: types.NewQuantity(-1)}, "initialStock"},
		{"stock without warehouse", products.CreateRequest{StoreID: "S1", SKU: "A", Name: "A", UserID: "u", InitialStock: types.NewQuantity(1)}, "warehouseId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Create(context.Background(), tt.req)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestCreate_DuplicateSKURecordsNothing(t *testing.T) {
	svc, _, store := setup()
	ctx := context.Background()
	req := products.CreateRequest{StoreID: "S1", SKU: "DUP", Name: "A", UserID: "u1", InitialStock: types.NewQuantity(3), WarehouseID: "W1"}

	_, _, err := svc.Create(ctx, req)
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, req)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
	assert.Len(t, store.All(), 1)
}

func TestCreate_LedgerFailureIsReturned(t *testing.T) {
	svc, _, store := setup()
	boom := errors.New("disk full")
	store.FailWhen(func(*entity.Movement) error { return boom })

	_, _, err := svc.Create(context.Background(), products.CreateRequest{
		StoreID: "S1", SKU: "X", Name: "X", UserID: "u1", InitialStock: types.NewQuantity(2), WarehouseID: "W1",
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, store.All())
}

func TestSyncCachedStock(t *testing.T) {
	svc, repo, store := setup()
	ctx := context.Background()

	p, _, err := svc.Create(ctx, products.CreateRequest{
		StoreID: "S1", SKU: "SKU-1", Name: "A", UserID: "u1", InitialStock: types.NewQuantity(10), WarehouseID: "W1",
	})
	require.NoError(t, err)

	rec := inventory.NewRecorder(store, store, nil, inventory.DefaultConfig())
	sale, err := rec.RecordMovement(ctx, inventory.MovementRequest{
		ProductID: p.ID, WarehouseID: "W1", StoreID: "S1",
		MovementType: entity.MovementSale, Quantity: types.NewQuantity(-4),
		ReferenceType: entity.RefSaleTransaction, ReferenceID: "SALE-1", UserID: "u1",
	})
	require.NoError(t, err)

	stock, err := svc.SyncCachedStock(ctx, sale)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(6), stock)

	cached, err := repo.GetCachedStock(ctx, p.ID, "S1")
	require.NoError(t, err)
	assert.Equal(t, sale.NewStock, cached)
}
