// Package products owns the product record and its denormalized stock field.
//
// The stock field is a cache. The inventory ledger is the source of truth and
// reconciliation reports when the two drift apart.
package products

import (
	"strings"
	"time"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/types"
)

// Product is a sellable item of one store.
type Product struct {
	ID        string         `db:"id" json:"id"`
	StoreID   string         `db:"store_id" json:"storeId"`
	SKU       string         `db:"sku" json:"sku"`
	Name      string         `db:"name" json:"name"`
	UnitCost  types.Money    `db:"unit_cost" json:"unitCost"`
	Stock     types.Quantity `db:"stock" json:"stock"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// CreateRequest creates a product. A non-zero InitialStock is recorded as an
// initial_stock movement in WarehouseID.
type CreateRequest struct {
	ID           string         `json:"id,omitempty"`
	StoreID      string         `json:"storeId"`
	SKU          string         `json:"sku"`
	Name         string         `json:"name"`
	UnitCost     types.Money    `json:"unitCost"`
	InitialStock types.Quantity `json:"initialStock"`
	WarehouseID  string         `json:"warehouseId,omitempty"`
	UserID       string         `json:"userId"`
}

func (r *CreateRequest) normalize() {
	r.ID = strings.TrimSpace(r.ID)
	r.StoreID = strings.TrimSpace(r.StoreID)
	r.SKU = strings.TrimSpace(r.SKU)
	r.Name = strings.TrimSpace(r.Name)
	r.WarehouseID = strings.TrimSpace(r.WarehouseID)
}

// Validate checks required fields.
func (r *CreateRequest) Validate() error {
	switch {
	case r.StoreID == "":
		return apperror.NewRequiredField("storeId")
	case r.SKU == "":
		return apperror.NewRequiredField("sku")
	case r.Name == "":
		return apperror.NewRequiredField("name")
	case r.UserID == "":
		return apperror.NewRequiredField("userId")
	case r.UnitCost.IsNegative():
		return apperror.NewValidation("unit cost must not be negative").WithDetail("field", "unitCost")
	case r.InitialStock.IsNegative():
		return apperror.NewValidation("initial stock must not be negative").WithDetail("field", "initialStock")
	case !r.InitialStock.IsZero() && r.WarehouseID == "":
		return apperror.NewValidation("warehouseId is required with an initial stock").WithDetail("field", "warehouseId")
	}
	return nil
}
