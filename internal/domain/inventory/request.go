package inventory

import (
	"strings"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/types"
)

// MovementRequest is the intent to change stock. Quantity is signed.
type MovementRequest struct {
	ProductID     string               `json:"productId"`
	WarehouseID   string               `json:"warehouseId"`
	StoreID       string               `json:"storeId"`
	MovementType  entity.MovementType  `json:"movementType"`
	Quantity      types.Quantity       `json:"quantity"`
	ReferenceType entity.ReferenceType `json:"referenceType"`
	ReferenceID   string               `json:"referenceId"`
	UserID        string               `json:"userId"`

	UnitCost types.Money `json:"unitCost"`
	// TotalValue defaults to UnitCost * |Quantity| when zero.
	TotalValue types.Money `json:"totalValue"`
	Notes      string      `json:"notes,omitempty"`
	BatchID    string      `json:"batchId,omitempty"`

	// IdempotencyKey makes retries of the same call return the first record.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

func (r MovementRequest) Key() entity.ScopeKey {
	return entity.ScopeKey{ProductID: r.ProductID, WarehouseID: r.WarehouseID, StoreID: r.StoreID}
}

func (r *MovementRequest) normalize() {
	r.ProductID = strings.TrimSpace(r.ProductID)
	r.WarehouseID = strings.TrimSpace(r.WarehouseID)
	r.StoreID = strings.TrimSpace(r.StoreID)
	r.ReferenceID = strings.TrimSpace(r.ReferenceID)
	r.UserID = strings.TrimSpace(r.UserID)
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
}

// Validate checks required fields, enums and, when enforceSign is set, that
// the quantity's sign agrees with the movement type.
func (r *MovementRequest) Validate(enforceSign bool) error {
	required := []struct {
		field, value string
	}{
		{"productId", r.ProductID},
		{"warehouseId", r.WarehouseID},
		{"storeId", r.StoreID},
		{"referenceId", r.ReferenceID},
		{"userId", r.UserID},
	}
	for _, f := range required {
		if f.value == "" {
			return apperror.NewRequiredField(f.field)
		}
	}

	if !r.MovementType.Valid() {
		return apperror.NewValidation("unknown movement type").
			WithDetail("field", "movementType").
			WithDetail("value", string(r.MovementType))
	}
	if !r.ReferenceType.Valid() {
		return apperror.NewValidation("unknown reference type").
			WithDetail("field", "referenceType").
			WithDetail("value", string(r.ReferenceType))
	}
	if r.Quantity.IsZero() {
		return apperror.NewValidation("quantity must not be zero").WithDetail("field", "quantity")
	}
	if r.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost must not be negative").WithDetail("field", "unitCost")
	}

	if enforceSign {
		sign := entity.ExpectedSign(r.MovementType, r.ReferenceType)
		if !sign.Allows(r.Quantity) {
			return apperror.NewBusinessRule(apperror.CodeSignMismatch, "quantity sign contradicts movement type").
				WithDetail("movementType", string(r.MovementType)).
				WithDetail("referenceType", string(r.ReferenceType)).
				WithDetail("expectedSign", sign.String()).
				WithDetail("quantity", r.Quantity.String())
		}
	}
	return nil
}

// sameIntent reports whether m was produced by an equivalent request.
func (r *MovementRequest) sameIntent(m *entity.Movement) bool {
	return m.ProductID == r.ProductID &&
		m.WarehouseID == r.WarehouseID &&
		m.StoreID == r.StoreID &&
		m.MovementType == r.MovementType &&
		m.Quantity == r.Quantity &&
		m.ReferenceType == r.ReferenceType &&
		m.ReferenceID == r.ReferenceID
}
