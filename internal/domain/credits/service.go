package credits

import (
	"context"
	"strings"
	"time"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/tx"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/reconcile"
)

const CodeOverpayment = "CREDIT_OVERPAYMENT"

type Service struct {
	repo   Repository
	txm    tx.Manager
	engine *reconcile.Engine[string, AccountState]
	now    func() time.Time
}

// NewService wires the service. audit may be nil.
func NewService(repo Repository, txm tx.Manager, audit reconcile.AuditSink) *Service {
	return &Service{
		repo:   repo,
		txm:    txm,
		engine: reconcile.NewEngine[string, AccountState](NewAccountSubject(repo), txm, audit),
		now:    time.Now,
	}
}

// RecordSale stores a credit sale and opens its account.
func (s *Service) RecordSale(ctx context.Context, sale Sale) (*Account, error) {
	if err := sale.validate(); err != nil {
		return nil, err
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = s.now().UTC()
	}

	acc := &Account{
		SaleID:     sale.SaleID,
		StoreID:    sale.StoreID,
		CustomerID: sale.CustomerID,
		Total:      sale.Total,
		Paid:       types.ZeroMoney(),
		Balance:    sale.Total,
		Status:     StatusPending,
		UpdatedAt:  sale.CreatedAt,
	}
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateSale(ctx, &sale); err != nil {
			return err
		}
		return s.repo.UpsertAccount(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// RecordPayment applies a payment to a credit sale. Paying more than the
// outstanding balance is rejected.
func (s *Service) RecordPayment(ctx context.Context, p Payment) (*Account, error) {
	p.SaleID = strings.TrimSpace(p.SaleID)
	p.StoreID = strings.TrimSpace(p.StoreID)
	if p.SaleID == "" {
		return nil, apperror.NewRequiredField("saleId")
	}
	if p.StoreID == "" {
		return nil, apperror.NewRequiredField("storeId")
	}
	if !p.Amount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").WithDetail("field", "amount")
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = s.now().UTC()
	}

	var acc *Account
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.repo.GetSaleForUpdate(ctx, p.StoreID, p.SaleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return apperror.NewNotFound("credit sale", p.SaleID)
		}
		paid, err := s.repo.PaidAmount(ctx, p.StoreID, p.SaleID)
		if err != nil {
			return err
		}
		if paid.Add(p.Amount).GreaterThan(sale.Total) {
			return apperror.NewBusinessRule(CodeOverpayment, "payment exceeds the outstanding balance").
				WithDetail("balance", sale.Total.Sub(paid).StringFixed(2))
		}
		if err := s.repo.AddPayment(ctx, &p); err != nil {
			return err
		}

		state := Derive(sale, paid.Add(p.Amount))
		acc = &Account{
			SaleID:     sale.SaleID,
			StoreID:    sale.StoreID,
			CustomerID: state.CustomerID,
			Total:      state.Total,
			Paid:       state.Paid,
			Balance:    state.Balance,
			Status:     state.Status,
			UpdatedAt:  p.PaidAt,
		}
		return s.repo.UpsertAccount(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// StoreIDs lists stores holding credit sales.
func (s *Service) StoreIDs(ctx context.Context) ([]string, error) {
	return s.repo.StoreIDs(ctx)
}

// Validate diffs the accounts of the store, or only the given sales.
func (s *Service) Validate(ctx context.Context, storeID string, saleIDs ...string) (*reconcile.Report, error) {
	if storeID == "" {
		return nil, apperror.NewRequiredField("storeId")
	}
	return s.engine.Validate(ctx, reconcile.Scope{StoreID: storeID}, saleIDs...)
}

// Repair rewrites drifted accounts from their sales and payments. Orphan
// accounts are reported and left alone.
func (s *Service) Repair(ctx context.Context, storeID, actor string, saleIDs ...string) (*reconcile.RepairResult, error) {
	if storeID == "" {
		return nil, apperror.NewRequiredField("storeId")
	}
	if actor == "" {
		return nil, apperror.NewRequiredField("actor")
	}
	return s.engine.Repair(ctx, reconcile.Scope{StoreID: storeID}, actor, saleIDs...)
}
