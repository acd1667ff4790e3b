// Package entity defines the ledger record and its enumerations.
package entity

import (
	"fmt"
	"time"

	"retailhub/internal/core/id"
	"retailhub/internal/core/types"
)

// MovementType classifies a stock change.
type MovementType string

const (
	MovementInitialStock MovementType = "initial_stock"
	MovementPurchase     MovementType = "purchase"
	MovementSale         MovementType = "sale"
	MovementAdjustment   MovementType = "adjustment"
	MovementTransferOut  MovementType = "transfer_out"
	MovementTransferIn   MovementType = "transfer_in"
	MovementReturn       MovementType = "return"
	MovementDamage       MovementType = "damage"
	MovementExpiry       MovementType = "expiry"
)

// MovementTypes lists every movement type in display order.
var MovementTypes = []MovementType{
	MovementInitialStock,
	MovementPurchase,
	MovementSale,
	MovementAdjustment,
	MovementTransferOut,
	MovementTransferIn,
	MovementReturn,
	MovementDamage,
	MovementExpiry,
}

func (t MovementType) Valid() bool {
	for _, v := range MovementTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ReferenceType names the workflow that produced a movement.
type ReferenceType string

const (
	RefProductCreation   ReferenceType = "product_creation"
	RefPurchaseOrder     ReferenceType = "purchase_order"
	RefSaleTransaction   ReferenceType = "sale_transaction"
	RefManualAdjustment  ReferenceType = "manual_adjustment"
	RefWarehouseTransfer ReferenceType = "warehouse_transfer"
	RefCustomerReturn    ReferenceType = "customer_return"
	RefSupplierReturn    ReferenceType = "supplier_return"
)

func (r ReferenceType) Valid() bool {
	switch r {
	case RefProductCreation, RefPurchaseOrder, RefSaleTransaction, RefManualAdjustment,
		RefWarehouseTransfer, RefCustomerReturn, RefSupplierReturn:
		return true
	}
	return false
}

// Sign is the direction a movement type moves stock.
type Sign int

const (
	SignAny      Sign = 0
	SignPositive Sign = 1
	SignNegative Sign = -1
)

// ExpectedSign returns the required quantity sign for a movement type.
// A customer return brings stock back; a supplier return sends it out.
func ExpectedSign(t MovementType, ref ReferenceType) Sign {
	switch t {
	case MovementInitialStock, MovementPurchase, MovementTransferIn:
		return SignPositive
	case MovementSale, MovementTransferOut, MovementDamage, MovementExpiry:
		return SignNegative
	case MovementReturn:
		switch ref {
		case RefCustomerReturn:
			return SignPositive
		case RefSupplierReturn:
			return SignNegative
		}
	}
	return SignAny
}

func (s Sign) Allows(q types.Quantity) bool {
	switch s {
	case SignPositive:
		return q.IsPositive()
	case SignNegative:
		return q.IsNegative()
	}
	return true
}

func (s Sign) String() string {
	switch s {
	case SignPositive:
		return "positive"
	case SignNegative:
		return "negative"
	}
	return "any"
}

// ScopeKey is the (product, warehouse, store) triple that partitions the
// ledger into independent balance chains.
type ScopeKey struct {
	ProductID   string `json:"productId"`
	WarehouseID string `json:"warehouseId"`
	StoreID     string `json:"storeId"`
}

func (k ScopeKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.StoreID, k.WarehouseID, k.ProductID)
}

// Less orders keys for deterministic lock acquisition.
func (k ScopeKey) Less(o ScopeKey) bool {
	if k.StoreID != o.StoreID {
		return k.StoreID < o.StoreID
	}
	if k.WarehouseID != o.WarehouseID {
		return k.WarehouseID < o.WarehouseID
	}
	return k.ProductID < o.ProductID
}

// Movement is one immutable ledger record.
//
// NewStock always equals PreviousStock + Quantity. Within a ScopeKey,
// Sequence starts at 1 and each record's PreviousStock is the NewStock of
// the record with Sequence-1.
type Movement struct {
	ID          id.ID  `db:"id" json:"id"`
	ProductID   string `db:"product_id" json:"productId"`
	WarehouseID string `db:"warehouse_id" json:"warehouseId"`
	StoreID     string `db:"store_id" json:"storeId"`
	Sequence    int64  `db:"sequence" json:"sequence"`

	MovementType MovementType   `db:"movement_type" json:"movementType"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	UnitCost     types.Money    `db:"unit_cost" json:"unitCost"`
	TotalValue   types.Money    `db:"total_value" json:"totalValue"`

	ReferenceType  ReferenceType `db:"reference_type" json:"referenceType"`
	ReferenceID    string        `db:"reference_id" json:"referenceId"`
	BatchID        *string       `db:"batch_id" json:"batchId,omitempty"`
	IdempotencyKey *string       `db:"idempotency_key" json:"idempotencyKey,omitempty"`

	PreviousStock types.Quantity `db:"previous_stock" json:"previousStock"`
	NewStock      types.Quantity `db:"new_stock" json:"newStock"`

	UserID    string    `db:"user_id" json:"userId"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func (m *Movement) Key() ScopeKey {
	return ScopeKey{ProductID: m.ProductID, WarehouseID: m.WarehouseID, StoreID: m.StoreID}
}

// BalanceHolds reports whether NewStock = PreviousStock + Quantity.
func (m *Movement) BalanceHolds() bool {
	return m.NewStock == m.PreviousStock+m.Quantity
}
