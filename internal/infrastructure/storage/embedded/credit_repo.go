package embedded

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/id"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/credits"
)

// CreditRepo implements credits.Repository on SQLite.
type CreditRepo struct {
	txm *TxManager
}

func NewCreditRepo(txm *TxManager) *CreditRepo {
	return &CreditRepo{txm: txm}
}

var _ credits.Repository = (*CreditRepo)(nil)

func (r *CreditRepo) CreateSale(ctx context.Context, sale *credits.Sale) error {
	row := creditSaleRow{
		SaleID:     sale.SaleID,
		StoreID:    sale.StoreID,
		CustomerID: sale.CustomerID,
		Total:      sale.Total,
		CreatedAt:  sale.CreatedAt,
	}
	if err := r.txm.conn(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.NewDuplicate("credit sale", "saleId", sale.SaleID).WithCause(err)
		}
		return mapError(fmt.Errorf("insert credit sale: %w", err))
	}
	return nil
}

func (r *CreditRepo) GetSale(ctx context.Context, storeID, saleID string) (*credits.Sale, error) {
	var row creditSaleRow
	err := r.txm.conn(ctx).Where("store_id = ? AND sale_id = ?", storeID, saleID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(fmt.Errorf("get credit sale: %w", err))
	}
	return &credits.Sale{
		SaleID:     row.SaleID,
		StoreID:    row.StoreID,
		CustomerID: row.CustomerID,
		Total:      row.Total,
		CreatedAt:  row.CreatedAt,
	}, nil
}

// GetSaleForUpdate is GetSale: the single sqlite connection already
// serializes transactions.
func (r *CreditRepo) GetSaleForUpdate(ctx context.Context, storeID, saleID string) (*credits.Sale, error) {
	return r.GetSale(ctx, storeID, saleID)
}

func (r *CreditRepo) AddPayment(ctx context.Context, p *credits.Payment) error {
	row := creditPaymentRow{
		ID:      id.New().String(),
		StoreID: p.StoreID,
		SaleID:  p.SaleID,
		Amount:  p.Amount,
		PaidAt:  p.PaidAt,
	}
	if err := r.txm.conn(ctx).Create(&row).Error; err != nil {
		return mapError(fmt.Errorf("insert credit payment: %w", err))
	}
	return nil
}

// PaidAmount sums in decimal arithmetic: SQLite would add text amounts as
// floats.
func (r *CreditRepo) PaidAmount(ctx context.Context, storeID, saleID string) (types.Money, error) {
	var amounts []types.Money
	err := r.txm.conn(ctx).Model(&creditPaymentRow{}).
		Where("store_id = ? AND sale_id = ?", storeID, saleID).
		Pluck("amount", &amounts).Error
	if err != nil {
		return types.ZeroMoney(), mapError(fmt.Errorf("sum payments: %w", err))
	}

	paid := types.ZeroMoney()
	for _, a := range amounts {
		paid = paid.Add(a)
	}
	return paid, nil
}

func (r *CreditRepo) GetAccount(ctx context.Context, storeID, saleID string) (*credits.Account, error) {
	var row creditAccountRow
	err := r.txm.conn(ctx).Where("store_id = ? AND sale_id = ?", storeID, saleID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(fmt.Errorf("get credit account: %w", err))
	}
	return &credits.Account{
		SaleID:     row.SaleID,
		StoreID:    row.StoreID,
		CustomerID: row.CustomerID,
		Total:      row.Total,
		Paid:       row.Paid,
		Balance:    row.Balance,
		Status:     credits.Status(row.Status),
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func (r *CreditRepo) UpsertAccount(ctx context.Context, a *credits.Account) error {
	row := creditAccountRow{
		SaleID:     a.SaleID,
		StoreID:    a.StoreID,
		CustomerID: a.CustomerID,
		Total:      a.Total,
		Paid:       a.Paid,
		Balance:    a.Balance,
		Status:     string(a.Status),
		UpdatedAt:  a.UpdatedAt,
	}
	err := r.txm.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sale_id"}, {Name: "store_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"customer_id", "total", "paid", "balance", "status", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return mapError(fmt.Errorf("upsert credit account: %w", err))
	}
	return nil
}

func (r *CreditRepo) SaleIDs(ctx context.Context, storeID string) ([]string, error) {
	return r.saleIDs(ctx, &creditSaleRow{}, storeID)
}

func (r *CreditRepo) AccountSaleIDs(ctx context.Context, storeID string) ([]string, error) {
	return r.saleIDs(ctx, &creditAccountRow{}, storeID)
}

func (r *CreditRepo) StoreIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.txm.conn(ctx).Model(&creditSaleRow{}).
		Distinct().
		Order("store_id").
		Pluck("store_id", &ids).Error
	if err != nil {
		return nil, mapError(fmt.Errorf("list store ids: %w", err))
	}
	return ids, nil
}

func (r *CreditRepo) saleIDs(ctx context.Context, model any, storeID string) ([]string, error) {
	var ids []string
	err := r.txm.conn(ctx).Model(model).
		Where("store_id = ?", storeID).
		Order("sale_id").
		Pluck("sale_id", &ids).Error
	if err != nil {
		return nil, mapError(fmt.Errorf("list sale ids: %w", err))
	}
	return ids, nil
}
