package inventory

import (
	"context"
	"fmt"
	"sort"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/reconcile"
)

// StockState is the stock of one product in one store.
type StockState struct {
	Stock types.Quantity
}

// StockSubject reconciles the product cached stock against the ledger total
// of the store. Keys are product IDs.
type StockSubject struct {
	repo  Repository
	stock CachedStockStore
}

func NewStockSubject(repo Repository, stock CachedStockStore) *StockSubject {
	return &StockSubject{repo: repo, stock: stock}
}

func (s *StockSubject) Name() string { return "inventory.cached_stock" }

// Keys is the union of products with ledger data and products with a cache.
func (s *StockSubject) Keys(ctx context.Context, scope reconcile.Scope) ([]string, error) {
	ledger, err := s.repo.ProductIDs(ctx, scope.StoreID)
	if err != nil {
		return nil, err
	}
	cached, err := s.stock.ProductIDs(ctx, scope.StoreID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(ledger)+len(cached))
	keys := make([]string, 0, len(ledger)+len(cached))
	for _, ids := range [][]string{ledger, cached} {
		for _, pid := range ids {
			if _, ok := seen[pid]; ok {
				continue
			}
			seen[pid] = struct{}{}
			keys = append(keys, pid)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *StockSubject) Expected(ctx context.Context, scope reconcile.Scope, productID string) (StockState, bool, error) {
	f := Filter{ProductID: productID, StoreID: scope.StoreID}
	n, err := s.repo.Count(ctx, f)
	if err != nil || n == 0 {
		return StockState{}, false, err
	}
	sum, err := s.repo.SumQuantity(ctx, f)
	if err != nil {
		return StockState{}, false, err
	}
	return StockState{Stock: sum}, true, nil
}

func (s *StockSubject) Actual(ctx context.Context, scope reconcile.Scope, productID string) (StockState, bool, error) {
	q, err := s.stock.GetCachedStock(ctx, productID, scope.StoreID)
	if apperror.IsNotFound(err) {
		return StockState{}, false, nil
	}
	if err != nil {
		return StockState{}, false, err
	}
	return StockState{Stock: q}, true, nil
}

func (s *StockSubject) Diff(productID string, exp StockState, hasExp bool, act StockState, hasAct bool) []reconcile.Discrepancy {
	switch {
	case hasExp && !hasAct:
		return []reconcile.Discrepancy{{
			Key: productID, Kind: reconcile.KindMissingRecord, Field: "product",
			Expected: exp.Stock.String(),
			Reason:   "ledger has movements for a product that does not exist",
		}}
	case !hasExp && hasAct && !act.Stock.IsZero():
		return []reconcile.Discrepancy{{
			Key: productID, Kind: reconcile.KindMissingRecord, Field: "ledger",
			Actual: act.Stock.String(),
			Reason: "cached stock without ledger movements; record an opening balance",
		}}
	case hasExp && hasAct && exp.Stock != act.Stock:
		return []reconcile.Discrepancy{{
			Key: productID, Kind: reconcile.KindAmountMismatch, Field: "stock",
			Expected: exp.Stock.String(), Actual: act.Stock.String(),
			Repairable: true,
		}}
	}
	return nil
}

func (s *StockSubject) Apply(ctx context.Context, scope reconcile.Scope, productID string, exp StockState) error {
	if err := s.stock.SetCachedStock(ctx, productID, scope.StoreID, exp.Stock); err != nil {
		return fmt.Errorf("set cached stock: %w", err)
	}
	return nil
}
