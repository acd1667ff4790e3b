package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/tx"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/reconcile"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Inspector reads the ledger back: consistency checks, summaries and
// history. Its only write is RepairCachedStock, and that touches the product
// cache, never the ledger.
type Inspector struct {
	repo   Repository
	stock  CachedStockStore
	engine *reconcile.Engine[string, StockState]
	now    func() time.Time
}

// NewInspector wires the inspector. audit may be nil.
func NewInspector(repo Repository, stock CachedStockStore, txm tx.Manager, audit reconcile.AuditSink) *Inspector {
	return &Inspector{
		repo:   repo,
		stock:  stock,
		engine: reconcile.NewEngine[string, StockState](NewStockSubject(repo, stock), txm, audit),
		now:    time.Now,
	}
}

// ConsistencyReport compares the ledger against the cached product stock.
// The cached stock is store-wide, so Difference is always
// CachedStock - StoreLedgerStock. LedgerStock is scoped to WarehouseID
// when one is given.
type ConsistencyReport struct {
	ProductID        string         `json:"productId"`
	WarehouseID      string         `json:"warehouseId,omitempty"`
	StoreID          string         `json:"storeId"`
	IsConsistent     bool           `json:"isConsistent"`
	LedgerStock      types.Quantity `json:"ledgerStock"`
	StoreLedgerStock types.Quantity `json:"storeLedgerStock"`
	CachedStock      types.Quantity `json:"cachedStock"`
	Difference       types.Quantity `json:"difference"`
	// LatestBalance is the newStock of the latest record (summed over
	// warehouses for a store-wide check). ChainIntact is false when it
	// disagrees with the summed quantities.
	LatestBalance types.Quantity `json:"latestBalance"`
	ChainIntact   bool           `json:"chainIntact"`
	Movements     int64          `json:"movements"`
	CheckedAt     time.Time      `json:"checkedAt"`
}

// ValidateProductStock reconstructs stock from the ledger and compares it
// with the product's cached stock. A warehouseID narrows the ledger and
// chain figures to one warehouse; consistency is still judged against the
// store-wide ledger. It never writes.
func (i *Inspector) ValidateProductStock(ctx context.Context, productID, warehouseID, storeID string) (*ConsistencyReport, error) {
	if productID == "" {
		return nil, apperror.NewRequiredField("productId")
	}
	if storeID == "" {
		return nil, apperror.NewRequiredField("storeId")
	}
	f := Filter{ProductID: productID, WarehouseID: warehouseID, StoreID: storeID}

	ledger, err := i.repo.SumQuantity(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}
	count, err := i.repo.Count(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count movements: %w", err)
	}
	latest, err := i.latestBalance(ctx, f)
	if err != nil {
		return nil, err
	}
	cached, err := i.stock.GetCachedStock(ctx, productID, storeID)
	if err != nil {
		return nil, fmt.Errorf("cached stock: %w", err)
	}

	storeLedger := ledger
	if warehouseID != "" {
		storeLedger, err = i.repo.SumQuantity(ctx, Filter{ProductID: productID, StoreID: storeID})
		if err != nil {
			return nil, fmt.Errorf("sum store ledger: %w", err)
		}
	}

	diff := cached - storeLedger
	return &ConsistencyReport{
		ProductID:        productID,
		WarehouseID:      warehouseID,
		StoreID:          storeID,
		IsConsistent:     diff == 0,
		LedgerStock:      ledger,
		StoreLedgerStock: storeLedger,
		CachedStock:      cached,
		Difference:       diff,
		LatestBalance:    latest,
		ChainIntact:      latest == ledger,
		Movements:        count,
		CheckedAt:        i.now().UTC(),
	}, nil
}

func (i *Inspector) latestBalance(ctx context.Context, f Filter) (types.Quantity, error) {
	if f.WarehouseID != "" {
		last, err := i.repo.Latest(ctx, f.Key())
		if err != nil {
			return 0, fmt.Errorf("latest movement: %w", err)
		}
		if last == nil {
			return 0, nil
		}
		return last.NewStock, nil
	}

	balances, err := i.repo.Balances(ctx, f.ProductID, f.StoreID)
	if err != nil {
		return 0, fmt.Errorf("warehouse balances: %w", err)
	}
	var total types.Quantity
	for _, b := range balances {
		total += b.Stock
	}
	return total, nil
}

// ChainBreak is a record that violates the running-balance chain.
type ChainBreak struct {
	MovementID string `json:"movementId"`
	Sequence   int64  `json:"sequence"`
	Problem    string `json:"problem"`
	Expected   string `json:"expected"`
	Actual     string `json:"actual"`
}

const (
	BreakPreviousStock = "previous_stock_mismatch"
	BreakNewStock      = "new_stock_mismatch"
	BreakSequenceGap   = "sequence_gap"
)

type ChainReport struct {
	Key           entity.ScopeKey `json:"key"`
	Checked       int             `json:"checked"`
	LatestBalance types.Quantity  `json:"latestBalance"`
	Intact        bool            `json:"intact"`
	Breaks        []ChainBreak    `json:"breaks"`
}

// VerifyChain walks the chain of key oldest-first and reports every record
// whose snapshot balances do not line up with its predecessor.
func (i *Inspector) VerifyChain(ctx context.Context, key entity.ScopeKey) (*ChainReport, error) {
	if key.ProductID == "" || key.WarehouseID == "" || key.StoreID == "" {
		return nil, apperror.NewValidation("productId, warehouseId and storeId are required")
	}

	report := &ChainReport{Key: key, Breaks: []ChainBreak{}}
	var (
		prevStock types.Quantity
		prevSeq   int64
	)
	seq := i.ProductMovements(ctx, key.ProductID, key.StoreID, IterOptions{WarehouseID: key.WarehouseID})
	for m, err := range seq {
		if err != nil {
			return nil, err
		}
		report.Checked++
		if m.Sequence != prevSeq+1 {
			report.Breaks = append(report.Breaks, ChainBreak{
				MovementID: m.ID.String(), Sequence: m.Sequence, Problem: BreakSequenceGap,
				Expected: strconv.FormatInt(prevSeq+1, 10), Actual: strconv.FormatInt(m.Sequence, 10),
			})
		}
		if m.PreviousStock != prevStock {
			report.Breaks = append(report.Breaks, ChainBreak{
				MovementID: m.ID.String(), Sequence: m.Sequence, Problem: BreakPreviousStock,
				Expected: prevStock.String(), Actual: m.PreviousStock.String(),
			})
		}
		if !m.BalanceHolds() {
			report.Breaks = append(report.Breaks, ChainBreak{
				MovementID: m.ID.String(), Sequence: m.Sequence, Problem: BreakNewStock,
				Expected: (m.PreviousStock + m.Quantity).String(), Actual: m.NewStock.String(),
			})
		}
		prevStock, prevSeq = m.NewStock, m.Sequence
	}

	report.LatestBalance = prevStock
	report.Intact = len(report.Breaks) == 0
	return report, nil
}

// ReconcileStore validates every product of the store with ledger data or a
// cached stock value. Read only.
func (i *Inspector) ReconcileStore(ctx context.Context, storeID string, productIDs ...string) (*reconcile.Report, error) {
	if storeID == "" {
		return nil, apperror.NewRequiredField("storeId")
	}
	return i.engine.Validate(ctx, reconcile.Scope{StoreID: storeID}, productIDs...)
}

// RepairCachedStock overwrites the cached stock of the given products (all
// products of the store when none are given) with the store-wide ledger
// total. Each applied fix is audited under actor.
func (i *Inspector) RepairCachedStock(ctx context.Context, storeID, actor string, productIDs ...string) (*reconcile.RepairResult, error) {
	if storeID == "" {
		return nil, apperror.NewRequiredField("storeId")
	}
	if actor == "" {
		return nil, apperror.NewRequiredField("actor")
	}
	return i.engine.Repair(ctx, reconcile.Scope{StoreID: storeID}, actor, productIDs...)
}
