package embedded

import (
	"time"

	"retailhub/internal/core/entity"
	"retailhub/internal/core/id"
	"retailhub/internal/core/types"
)

// movementRow stores created_at as Unix microseconds so that ordering and
// keyset comparisons are numeric.
type movementRow struct {
	ID             string         `gorm:"primaryKey;size:36"`
	StoreID        string         `gorm:"not null;uniqueIndex:ux_movements_key_seq,priority:1;uniqueIndex:ux_movements_idem,priority:1;index:ix_movements_history,priority:1"`
	WarehouseID    string         `gorm:"not null;uniqueIndex:ux_movements_key_seq,priority:2"`
	ProductID      string         `gorm:"not null;uniqueIndex:ux_movements_key_seq,priority:3;index:ix_movements_history,priority:2"`
	Sequence       int64          `gorm:"not null;uniqueIndex:ux_movements_key_seq,priority:4"`
	MovementType   string         `gorm:"not null"`
	Quantity       types.Quantity `gorm:"type:integer;not null"`
	UnitCost       types.Money    `gorm:"type:text;not null"`
	TotalValue     types.Money    `gorm:"type:text;not null"`
	ReferenceType  string         `gorm:"not null"`
	ReferenceID    string         `gorm:"not null"`
	BatchID        *string        `gorm:"index"`
	IdempotencyKey *string        `gorm:"uniqueIndex:ux_movements_idem,priority:2"`
	PreviousStock  types.Quantity `gorm:"type:integer;not null"`
	NewStock       types.Quantity `gorm:"type:integer;not null"`
	UserID         string         `gorm:"not null"`
	Notes          *string
	CreatedAtUS    int64 `gorm:"column:created_at_us;not null;index:ix_movements_history,priority:3"`
}

func (movementRow) TableName() string { return "inventory_movements" }

func microsToTime(us int64) time.Time { return time.UnixMicro(us).UTC() }

func toMovementRow(m *entity.Movement) *movementRow {
	return &movementRow{
		ID:             m.ID.String(),
		StoreID:        m.StoreID,
		WarehouseID:    m.WarehouseID,
		ProductID:      m.ProductID,
		Sequence:       m.Sequence,
		MovementType:   string(m.MovementType),
		Quantity:       m.Quantity,
		UnitCost:       m.UnitCost,
		TotalValue:     m.TotalValue,
		ReferenceType:  string(m.ReferenceType),
		ReferenceID:    m.ReferenceID,
		BatchID:        m.BatchID,
		IdempotencyKey: m.IdempotencyKey,
		PreviousStock:  m.PreviousStock,
		NewStock:       m.NewStock,
		UserID:         m.UserID,
		Notes:          m.Notes,
		CreatedAtUS:    m.CreatedAt.UnixMicro(),
	}
}

func (r *movementRow) toEntity() (entity.Movement, error) {
	mid, err := id.Parse(r.ID)
	if err != nil {
		return entity.Movement{}, err
	}
	return entity.Movement{
		ID:             mid,
		ProductID:      r.ProductID,
		WarehouseID:    r.WarehouseID,
		StoreID:        r.StoreID,
		Sequence:       r.Sequence,
		MovementType:   entity.MovementType(r.MovementType),
		Quantity:       r.Quantity,
		UnitCost:       r.UnitCost,
		TotalValue:     r.TotalValue,
		ReferenceType:  entity.ReferenceType(r.ReferenceType),
		ReferenceID:    r.ReferenceID,
		BatchID:        r.BatchID,
		IdempotencyKey: r.IdempotencyKey,
		PreviousStock:  r.PreviousStock,
		NewStock:       r.NewStock,
		UserID:         r.UserID,
		Notes:          r.Notes,
		CreatedAt:      microsToTime(r.CreatedAtUS),
	}, nil
}

type productRow struct {
	ID        string         `gorm:"primaryKey"`
	StoreID   string         `gorm:"primaryKey;uniqueIndex:ux_products_sku,priority:1"`
	SKU       string         `gorm:"not null;uniqueIndex:ux_products_sku,priority:2"`
	Name      string         `gorm:"not null"`
	UnitCost  types.Money    `gorm:"type:text;not null"`
	Stock     types.Quantity `gorm:"type:integer;not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (productRow) TableName() string { return "products" }

type creditSaleRow struct {
	SaleID     string      `gorm:"primaryKey"`
	StoreID    string      `gorm:"primaryKey"`
	CustomerID string      `gorm:"not null"`
	Total      types.Money `gorm:"type:text;not null"`
	CreatedAt  time.Time
}

func (creditSaleRow) TableName() string { return "credit_sales" }

type creditPaymentRow struct {
	ID      string      `gorm:"primaryKey;size:36"`
	StoreID string      `gorm:"not null;index:ix_credit_payments_sale,priority:1"`
	SaleID  string      `gorm:"not null;index:ix_credit_payments_sale,priority:2"`
	Amount  types.Money `gorm:"type:text;not null"`
	PaidAt  time.Time
}

func (creditPaymentRow) TableName() string { return "credit_payments" }

type creditAccountRow struct {
	SaleID     string      `gorm:"primaryKey"`
	StoreID    string      `gorm:"primaryKey"`
	CustomerID string      `gorm:"not null"`
	Total      types.Money `gorm:"type:text;not null"`
	Paid       types.Money `gorm:"type:text;not null"`
	Balance    types.Money `gorm:"type:text;not null"`
	Status     string      `gorm:"not null"`
	UpdatedAt  time.Time   `gorm:"autoUpdateTime:false"`
}

func (creditAccountRow) TableName() string { return "credit_accounts" }

type auditRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	Subject   string `gorm:"not null;index:ix_reconcile_audit_entity,priority:2"`
	EntityKey string `gorm:"not null;index:ix_reconcile_audit_entity,priority:3"`
	StoreID   string `gorm:"not null;index:ix_reconcile_audit_entity,priority:1"`
	Actor     string `gorm:"not null"`
	Changes   string `gorm:"type:text"`
	CreatedAt time.Time
}

func (auditRow) TableName() string { return "sys_reconcile_audit" }
