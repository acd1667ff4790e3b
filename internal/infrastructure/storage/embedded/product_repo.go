package embedded

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/products"
)

// ProductRepo implements products.Repository on SQLite.
type ProductRepo struct {
	txm *TxManager
}

func NewProductRepo(txm *TxManager) *ProductRepo {
	return &ProductRepo{txm: txm}
}

var _ products.Repository = (*ProductRepo)(nil)

func (r *ProductRepo) Create(ctx context.Context, p *products.Product) error {
	row := productRow{
		ID:        p.ID,
		StoreID:   p.StoreID,
		SKU:       p.SKU,
		Name:      p.Name,
		UnitCost:  p.UnitCost,
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if err := r.txm.conn(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.NewDuplicate("product", "sku", p.SKU).WithCause(err)
		}
		return mapError(fmt.Errorf("insert product: %w", err))
	}
	return nil
}

func (r *ProductRepo) Get(ctx context.Context, productID, storeID string) (*products.Product, error) {
	var row productRow
	err := r.txm.conn(ctx).Where("id = ? AND store_id = ?", productID, storeID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NewNotFound("product", productID)
	}
	if err != nil {
		return nil, mapError(fmt.Errorf("get product: %w", err))
	}
	return &products.Product{
		ID:        row.ID,
		StoreID:   row.StoreID,
		SKU:       row.SKU,
		Name:      row.Name,
		UnitCost:  row.UnitCost,
		Stock:     row.Stock,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *ProductRepo) GetCachedStock(ctx context.Context, productID, storeID string) (types.Quantity, error) {
	p, err := r.Get(ctx, productID, storeID)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

func (r *ProductRepo) SetCachedStock(ctx context.Context, productID, storeID string, qty types.Quantity) error {
	res := r.txm.conn(ctx).Model(&productRow{}).
		Where("id = ? AND store_id = ?", productID, storeID).
		Updates(map[string]any{"stock": qty, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return mapError(fmt.Errorf("set cached stock: %w", res.Error))
	}
	if res.RowsAffected == 0 {
		return apperror.NewNotFound("product", productID)
	}
	return nil
}

// AdjustCachedStock joins or opens a transaction so the update and the
// read-back see the same row.
func (r *ProductRepo) AdjustCachedStock(ctx context.Context, productID, storeID string, delta types.Quantity) (types.Quantity, error) {
	var stock types.Quantity
	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		res := r.txm.conn(ctx).Model(&productRow{}).
			Where("id = ? AND store_id = ?", productID, storeID).
			Updates(map[string]any{
				"stock":      gorm.Expr("stock + ?", delta),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return mapError(fmt.Errorf("adjust cached stock: %w", res.Error))
		}
		if res.RowsAffected == 0 {
			return apperror.NewNotFound("product", productID)
		}
		var err error
		stock, err = r.GetCachedStock(ctx, productID, storeID)
		return err
	})
	return stock, err
}

func (r *ProductRepo) ProductIDs(ctx context.Context, storeID string) ([]string, error) {
	var ids []string
	err := r.txm.conn(ctx).Model(&productRow{}).
		Where("store_id = ?", storeID).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, mapError(fmt.Errorf("list product ids: %w", err))
	}
	return ids, nil
}

func (r *ProductRepo) StoreIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.txm.conn(ctx).Model(&productRow{}).
		Distinct().
		Order("store_id").
		Pluck("store_id", &ids).Error
	if err != nil {
		return nil, mapError(fmt.Errorf("list store ids: %w", err))
	}
	return ids, nil
}
