package embedded

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/id"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/credits"
	"retailhub/internal/domain/inventory"
	"retailhub/internal/domain/products"
	"retailhub/internal/domain/reconcile"
)

type backend struct {
	txm      *TxManager
	ledger   *MovementRepo
	products *ProductRepo
	credits  *CreditRepo
	audit    *AuditLog
	recorder *inventory.Recorder
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	db, err := Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	txm := NewTxManager(db)
	ledger := NewMovementRepo(txm)
	return &backend{
		txm:      txm,
		ledger:   ledger,
		products: NewProductRepo(txm),
		credits:  NewCreditRepo(txm),
		audit:    NewAuditLog(txm),
		recorder: inventory.NewRecorder(ledger, txm, nil, inventory.DefaultConfig()),
	}
}

func qty(n int64) types.Quantity { return types.NewQuantity(n) }

func movement(mt entity.MovementType, ref entity.ReferenceType, n int64) inventory.MovementRequest {
	return inventory.MovementRequest{
		ProductID:     "P1",
		WarehouseID:   "W1",
		StoreID:       "S1",
		MovementType:  mt,
		Quantity:      qty(n),
		ReferenceType: ref,
		ReferenceID:   "REF-1",
		UserID:        "u1",
		UnitCost:      types.MustMoney("2.50"),
	}
}

func TestRecorder_ChainOnSQLite(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	first, err := b.recorder.RecordMovement(ctx, movement(entity.MovementInitialStock, entity.RefProductCreation, 25))
	require.NoError(t, err)
	_, err = b.recorder.RecordMovement(ctx, movement(entity.MovementPurchase, entity.RefPurchaseOrder, 10))
	require.NoError(t, err)
	last, err := b.recorder.RecordMovement(ctx, movement(entity.MovementSale, entity.RefSaleTransaction, -3))
	require.NoError(t, err)

	assert.Equal(t, int64(3), last.Sequence)
	assert.Equal(t, qty(35), last.PreviousStock)
	assert.Equal(t, qty(32), last.NewStock)

	latest, err := b.ledger.Latest(ctx, last.Key())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, last.ID, latest.ID)
	assert.True(t, last.TotalValue.Equal(latest.TotalValue))

	f := inventory.Filter{ProductID: "P1", StoreID: "S1"}
	sum, err := b.ledger.SumQuantity(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, qty(32), sum)

	n, err := b.ledger.Count(ctx, inventory.Filter{ProductID: "P1", StoreID: "S1", Types: []entity.MovementType{entity.MovementSale}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	totals, err := b.ledger.TotalsByType(ctx, f)
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, entity.MovementInitialStock, totals[0].MovementType)
	assert.Equal(t, qty(25), totals[0].Quantity)

	page, err := b.ledger.List(ctx, inventory.ListOptions{Filter: f, After: inventory.CursorOf(first), Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].Sequence)
	assert.Equal(t, int64(3), page[1].Sequence)

	desc, err := b.ledger.List(ctx, inventory.ListOptions{Filter: f, Order: inventory.OrderDesc, Limit: 1})
	require.NoError(t, err)
	require.Len(t, desc, 1)
	assert.Equal(t, last.ID, desc[0].ID)
}

func TestRecorder_IdempotencyOnSQLite(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	req := movement(entity.MovementPurchase, entity.RefPurchaseOrder, 4)
	req.IdempotencyKey = "po-77"
	first, err := b.recorder.RecordMovement(ctx, req)
	require.NoError(t, err)
	again, err := b.recorder.RecordMovement(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	found, err := b.ledger.FindByIdempotencyKey(ctx, "S1", "po-77")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	missing, err := b.ledger.FindByIdempotencyKey(ctx, "S1", "po-78")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAppend_DuplicateSequenceIsConcurrentModification(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	m, err := b.recorder.RecordMovement(ctx, movement(entity.MovementPurchase, entity.RefPurchaseOrder, 4))
	require.NoError(t, err)

	dup := *m
	dup.ID = id.New()
	err = b.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return b.ledger.Append(ctx, &dup)
	})
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestRecorder_ConcurrentWritersOnSQLite(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.recorder.RecordMovement(ctx, movement(entity.MovementPurchase, entity.RefPurchaseOrder, 1))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	latest, err := b.ledger.Latest(ctx, entity.ScopeKey{ProductID: "P1", WarehouseID: "W1", StoreID: "S1"})
	require.NoError(t, err)
	assert.Equal(t, int64(writers), latest.Sequence)
	assert.Equal(t, qty(writers), latest.NewStock)

	insp := inventory.NewInspector(b.ledger, b.products, b.txm, nil)
	chain, err := insp.VerifyChain(ctx, latest.Key())
	require.NoError(t, err)
	assert.True(t, chain.Intact)
}

func TestBalancesAndIDs(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	for _, wh := range []string{"W1", "W2", "W1"} {
		req := movement(entity.MovementPurchase, entity.RefPurchaseOrder, 5)
		req.WarehouseID = wh
		_, err := b.recorder.RecordMovement(ctx, req)
		require.NoError(t, err)
	}
	other := movement(entity.MovementPurchase, entity.RefPurchaseOrder, 1)
	other.StoreID = "S2"
	other.ProductID = "P9"
	_, err := b.recorder.RecordMovement(ctx, other)
	require.NoError(t, err)

	balances, err := b.ledger.Balances(ctx, "P1", "S1")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "W1", balances[0].WarehouseID)
	assert.Equal(t, qty(10), balances[0].Stock)
	assert.Equal(t, int64(2), balances[0].Sequence)
	assert.Equal(t, qty(5), balances[1].Stock)

	productIDs, err := b.ledger.ProductIDs(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, productIDs)

	storeIDs, err := b.ledger.StoreIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, storeIDs)
}

type failingRecorder struct{}

func (failingRecorder) RecordMovement(context.Context, inventory.MovementRequest) (*entity.Movement, error) {
	return nil, errors.New("ledger unavailable")
}

func TestProductCreate_RollsBackWithLedger(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	req := products.CreateRequest{
		ID:           "P1",
		StoreID:      "S1",
		SKU:          "SKU-1",
		Name:         "Widget",
		UnitCost:     types.MustMoney("4.50"),
		InitialStock: qty(25),
		WarehouseID:  "W1",
		UserID:       "u1",
	}

	_, _, err := products.NewService(b.products, b.txm, failingRecorder{}).Create(ctx, req)
	require.Error(t, err)
	_, err = b.products.Get(ctx, "P1", "S1")
	assert.True(t, apperror.IsNotFound(err))

	svc := products.NewService(b.products, b.txm, b.recorder)
	p, opening, err := svc.Create(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, opening)
	assert.Equal(t, qty(25), p.Stock)
	assert.Equal(t, qty(25), opening.NewStock)

	_, _, err = svc.Create(ctx, products.CreateRequest{
		StoreID: "S1", SKU: "SKU-1", Name: "Copy", UserID: "u1",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	stock, err := b.products.AdjustCachedStock(ctx, "P1", "S1", qty(-5))
	require.NoError(t, err)
	assert.Equal(t, qty(20), stock)

	_, err = b.products.AdjustCachedStock(ctx, "nope", "S1", qty(1))
	assert.True(t, apperror.IsNotFound(err))
}

func TestCachedStockReconcileAndRepair(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	svc := products.NewService(b.products, b.txm, b.recorder)
	_, _, err := svc.Create(ctx, products.CreateRequest{
		ID: "P1", StoreID: "S1", SKU: "SKU-1", Name: "Widget",
		UnitCost: types.MustMoney("1.00"), InitialStock: qty(10), WarehouseID: "W1", UserID: "u1",
	})
	require.NoError(t, err)
	require.NoError(t, b.products.SetCachedStock(ctx, "P1", "S1", qty(7)))

	insp := inventory.NewInspector(b.ledger, b.products, b.txm, b.audit)
	report, err := insp.ValidateProductStock(ctx, "P1", "", "S1")
	require.NoError(t, err)
	assert.False(t, report.IsConsistent)
	assert.Equal(t, qty(-3), report.Difference)

	result, err := insp.RepairCachedStock(ctx, "S1", "auditor")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Repaired)

	stock, err := b.products.GetCachedStock(ctx, "P1", "S1")
	require.NoError(t, err)
	assert.Equal(t, qty(10), stock)

	history, err := b.audit.History(ctx, "S1", "inventory.cached_stock", "P1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "auditor", history[0].Actor)
	assert.NotEmpty(t, history[0].Changes)
}

func TestCreditsOnSQLite(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	svc := credits.NewService(b.credits, b.txm, b.audit)

	_, err := svc.RecordSale(ctx, credits.Sale{SaleID: "SALE-1", StoreID: "S1", CustomerID: "C1", Total: types.MustMoney("100.00")})
	require.NoError(t, err)
	acc, err := svc.RecordPayment(ctx, credits.Payment{SaleID: "SALE-1", StoreID: "S1", Amount: types.MustMoney("30.10")})
	require.NoError(t, err)
	assert.Equal(t, credits.StatusPartial, acc.Status)
	acc, err = svc.RecordPayment(ctx, credits.Payment{SaleID: "SALE-1", StoreID: "S1", Amount: types.MustMoney("0.20")})
	require.NoError(t, err)
	assert.Equal(t, "30.30", acc.Paid.StringFixed(2))
	assert.Equal(t, "69.70", acc.Balance.StringFixed(2))

	report, err := svc.Validate(ctx, "S1")
	require.NoError(t, err)
	assert.True(t, report.Consistent())

	// Drift the cached account.
	acc.Paid = types.MustMoney("0")
	acc.Status = credits.StatusPending
	require.NoError(t, b.credits.UpsertAccount(ctx, acc))

	report, err = svc.Validate(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.CountByKind()[reconcile.KindStatusMismatch])

	result, err := svc.Repair(ctx, "S1", "auditor")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Repaired)

	fixed, err := b.credits.GetAccount(ctx, "S1", "SALE-1")
	require.NoError(t, err)
	assert.Equal(t, credits.StatusPartial, fixed.Status)
	assert.Equal(t, "30.30", fixed.Paid.StringFixed(2))
}

func TestStoreIDs_PerSource(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := b.recorder.RecordMovement(ctx, movement(entity.MovementPurchase, entity.RefPurchaseOrder, 4))
	require.NoError(t, err)
	for _, storeID := range []string{"S2", "S1", "S2"} {
		require.NoError(t, b.products.Create(ctx, &products.Product{
			ID: id.New().String(), StoreID: storeID, SKU: id.New().String(), Name: "Widget",
			UnitCost: types.MustMoney("1"), CreatedAt: now, UpdatedAt: now,
		}))
	}
	require.NoError(t, b.credits.CreateSale(ctx, &credits.Sale{
		SaleID: "SALE-9", StoreID: "S3", CustomerID: "C1", Total: types.MustMoney("5"), CreatedAt: now,
	}))

	type storeLister interface {
		StoreIDs(ctx context.Context) ([]string, error)
	}
	tests := []struct {
		name   string
		source storeLister
		want   []string
	}{
		{"ledger", b.ledger, []string{"S1"}},
		{"products", b.products, []string{"S1", "S2"}},
		{"credits", b.credits, []string{"S3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.source.StoreIDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
