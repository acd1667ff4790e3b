package credits

import (
	"context"
	"fmt"
	"sort"
	"time"

	"retailhub/internal/core/types"
	"retailhub/internal/domain/reconcile"
)

// AccountSubject reconciles credit accounts against credit sales and their
// payments. Keys are sale IDs.
type AccountSubject struct {
	repo Repository
	now  func() time.Time
}

func NewAccountSubject(repo Repository) *AccountSubject {
	return &AccountSubject{repo: repo, now: time.Now}
}

func (s *AccountSubject) Name() string { return "credits.account" }

func (s *AccountSubject) Keys(ctx context.Context, scope reconcile.Scope) ([]string, error) {
	sales, err := s.repo.SaleIDs(ctx, scope.StoreID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.repo.AccountSaleIDs(ctx, scope.StoreID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(sales)+len(accounts))
	var keys []string
	for _, ids := range [][]string{sales, accounts} {
		for _, sid := range ids {
			if _, ok := seen[sid]; !ok {
				seen[sid] = struct{}{}
				keys = append(keys, sid)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *AccountSubject) Expected(ctx context.Context, scope reconcile.Scope, saleID string) (AccountState, bool, error) {
	sale, err := s.repo.GetSale(ctx, scope.StoreID, saleID)
	if err != nil || sale == nil {
		return AccountState{}, false, err
	}
	paid, err := s.repo.PaidAmount(ctx, scope.StoreID, saleID)
	if err != nil {
		return AccountState{}, false, err
	}
	return Derive(sale, paid), true, nil
}

func (s *AccountSubject) Actual(ctx context.Context, scope reconcile.Scope, saleID string) (AccountState, bool, error) {
	acc, err := s.repo.GetAccount(ctx, scope.StoreID, saleID)
	if err != nil || acc == nil {
		return AccountState{}, false, err
	}
	return acc.State(), true, nil
}

func (s *AccountSubject) Diff(saleID string, exp AccountState, hasExp bool, act AccountState, hasAct bool) []reconcile.Discrepancy {
	switch {
	case hasExp && !hasAct:
		return []reconcile.Discrepancy{{
			Key: saleID, Kind: reconcile.KindMissingRecord, Field: "account",
			Expected: exp.Balance.StringFixed(2), Repairable: true,
		}}
	case !hasExp && hasAct:
		return []reconcile.Discrepancy{{
			Key: saleID, Kind: reconcile.KindMissingRecord, Field: "sale",
			Actual: act.Balance.StringFixed(2),
			Reason: "credit account without a credit sale",
		}}
	case !hasExp:
		return nil
	}

	var out []reconcile.Discrepancy
	amounts := []struct {
		field    string
		exp, act types.Money
	}{
		{"total", exp.Total, act.Total},
		{"paid", exp.Paid, act.Paid},
		{"balance", exp.Balance, act.Balance},
	}
	for _, a := range amounts {
		if a.exp.Equal(a.act) {
			continue
		}
		out = append(out, reconcile.Discrepancy{
			Key: saleID, Kind: reconcile.KindAmountMismatch, Field: a.field,
			Expected: a.exp.StringFixed(2), Actual: a.act.StringFixed(2),
			Repairable: true,
		})
	}
	if exp.Status != act.Status {
		out = append(out, reconcile.Discrepancy{
			Key: saleID, Kind: reconcile.KindStatusMismatch, Field: "status",
			Expected: string(exp.Status), Actual: string(act.Status),
			Repairable: true,
		})
	}
	return out
}

func (s *AccountSubject) Apply(ctx context.Context, scope reconcile.Scope, saleID string, exp AccountState) error {
	acc := &Account{
		SaleID:     saleID,
		StoreID:    scope.StoreID,
		CustomerID: exp.CustomerID,
		Total:      exp.Total,
		Paid:       exp.Paid,
		Balance:    exp.Balance,
		Status:     exp.Status,
		UpdatedAt:  s.now().UTC(),
	}
	if err := s.repo.UpsertAccount(ctx, acc); err != nil {
		return fmt.Errorf("upsert credit account: %w", err)
	}
	return nil
}
