package embedded

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/inventory"
)

// MovementRepo implements inventory.Repository on SQLite.
type MovementRepo struct {
	txm *TxManager
}

func NewMovementRepo(txm *TxManager) *MovementRepo {
	return &MovementRepo{txm: txm}
}

var _ inventory.Repository = (*MovementRepo)(nil)

// LockKey only checks for a transaction: the single connection already
// serializes writers.
func (r *MovementRepo) LockKey(ctx context.Context, key entity.ScopeKey) error {
	if !r.txm.InTransaction(ctx) {
		return apperror.NewInternal(fmt.Errorf("lock %s: no transaction in context", key))
	}
	return nil
}

func (r *MovementRepo) Latest(ctx context.Context, key entity.ScopeKey) (*entity.Movement, error) {
	var row movementRow
	err := r.txm.conn(ctx).
		Where("store_id = ? AND warehouse_id = ? AND product_id = ?", key.StoreID, key.WarehouseID, key.ProductID).
		Order("sequence DESC").
		Take(&row).Error
	return r.one(&row, err)
}

func (r *MovementRepo) Append(ctx context.Context, m *entity.Movement) error {
	if err := r.txm.conn(ctx).Create(toMovementRow(m)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.NewConcurrentModification("movement", m.Key().String()).WithCause(err)
		}
		return mapError(fmt.Errorf("insert movement: %w", err))
	}
	return nil
}

func (r *MovementRepo) FindByIdempotencyKey(ctx context.Context, storeID, key string) (*entity.Movement, error) {
	var row movementRow
	err := r.txm.conn(ctx).
		Where("store_id = ? AND idempotency_key = ?", storeID, key).
		Take(&row).Error
	return r.one(&row, err)
}

func (r *MovementRepo) SumQuantity(ctx context.Context, f inventory.Filter) (types.Quantity, error) {
	var sum types.Quantity
	err := r.filtered(ctx, f).Select("COALESCE(SUM(quantity), 0)").Scan(&sum).Error
	if err != nil {
		return 0, mapError(fmt.Errorf("sum quantity: %w", err))
	}
	return sum, nil
}

func (r *MovementRepo) Count(ctx context.Context, f inventory.Filter) (int64, error) {
	var n int64
	if err := r.filtered(ctx, f).Count(&n).Error; err != nil {
		return 0, mapError(fmt.Errorf("count movements: %w", err))
	}
	return n, nil
}

func (r *MovementRepo) TotalsByType(ctx context.Context, f inventory.Filter) ([]inventory.TypeTotal, error) {
	var totals []inventory.TypeTotal
	err := r.filtered(ctx, f).
		Select("movement_type, COUNT(*) AS count, COALESCE(SUM(quantity), 0) AS quantity").
		Group("movement_type").
		Order("movement_type").
		Scan(&totals).Error
	if err != nil {
		return nil, mapError(fmt.Errorf("totals by type: %w", err))
	}
	return totals, nil
}

type balanceRow struct {
	WarehouseID string
	NewStock    types.Quantity
	Sequence    int64
	CreatedAtUS int64 `gorm:"column:created_at_us"`
}

func (r *MovementRepo) Balances(ctx context.Context, productID, storeID string) ([]inventory.WarehouseBalance, error) {
	var rows []balanceRow
	err := r.txm.conn(ctx).
		Table("inventory_movements AS m").
		Select("m.warehouse_id, m.new_stock, m.sequence, m.created_at_us").
		Where("m.product_id = ? AND m.store_id = ?", productID, storeID).
		Where(`m.sequence = (
			SELECT MAX(l.sequence) FROM inventory_movements l
			WHERE l.store_id = m.store_id AND l.product_id = m.product_id AND l.warehouse_id = m.warehouse_id
		)`).
		Order("m.warehouse_id").
		Scan(&rows).Error
	if err != nil {
		return nil, mapError(fmt.Errorf("balances: %w", err))
	}

	balances := make([]inventory.WarehouseBalance, len(rows))
	for i, row := range rows {
		balances[i] = inventory.WarehouseBalance{
			WarehouseID:    row.WarehouseID,
			Stock:          row.NewStock,
			Sequence:       row.Sequence,
			LastMovementAt: microsToTime(row.CreatedAtUS),
		}
	}
	return balances, nil
}

func (r *MovementRepo) List(ctx context.Context, opts inventory.ListOptions) ([]entity.Movement, error) {
	q := r.filtered(ctx, opts.Filter)
	if opts.Order == inventory.OrderDesc {
		q = q.Order("created_at_us DESC, sequence DESC, id DESC")
	} else {
		q = q.Order("created_at_us, sequence, id")
		if opts.After != nil {
			q = q.Where("(created_at_us, sequence, id) > (?, ?, ?)",
				opts.After.CreatedAt.UnixMicro(), opts.After.Sequence, opts.After.ID.String())
		}
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	var rows []movementRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, mapError(fmt.Errorf("list movements: %w", err))
	}

	movements := make([]entity.Movement, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toEntity()
		if err != nil {
			return nil, apperror.NewInternal(err)
		}
		movements = append(movements, m)
	}
	return movements, nil
}

func (r *MovementRepo) ProductIDs(ctx context.Context, storeID string) ([]string, error) {
	var ids []string
	err := r.txm.conn(ctx).Model(&movementRow{}).
		Where("store_id = ?", storeID).
		Distinct().
		Order("product_id").
		Pluck("product_id", &ids).Error
	if err != nil {
		return nil, mapError(fmt.Errorf("list product ids: %w", err))
	}
	return ids, nil
}

func (r *MovementRepo) StoreIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.txm.conn(ctx).Model(&movementRow{}).
		Distinct().
		Order("store_id").
		Pluck("store_id", &ids).Error
	if err != nil {
		return nil, mapError(fmt.Errorf("list store ids: %w", err))
	}
	return ids, nil
}

func (r *MovementRepo) filtered(ctx context.Context, f inventory.Filter) *gorm.DB {
	q := r.txm.conn(ctx).Model(&movementRow{}).
		Where("product_id = ? AND store_id = ?", f.ProductID, f.StoreID)
	if f.WarehouseID != "" {
		q = q.Where("warehouse_id = ?", f.WarehouseID)
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		q = q.Where("movement_type IN ?", types)
	}
	return q
}

func (r *MovementRepo) one(row *movementRow, err error) (*entity.Movement, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(fmt.Errorf("query movement: %w", err))
	}
	m, err := row.toEntity()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return &m, nil
}
