// Package credits tracks receivables created by sales paid on credit.
//
// Credit sales and their payments are the source of truth. A credit account
// row caches the running totals per sale and is reconciled against them.
package credits

import (
	"strings"
	"time"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/types"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

// DeriveStatus maps paid against total to an account status.
func DeriveStatus(total, paid types.Money) Status {
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}

// Sale is a sale whose total was put on the customer's account.
type Sale struct {
	SaleID     string      `db:"sale_id" json:"saleId"`
	StoreID    string      `db:"store_id" json:"storeId"`
	CustomerID string      `db:"customer_id" json:"customerId"`
	Total      types.Money `db:"total" json:"total"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
}

// Payment settles part of a credit sale.
type Payment struct {
	SaleID  string      `json:"saleId"`
	StoreID string      `json:"storeId"`
	Amount  types.Money `json:"amount"`
	PaidAt  time.Time   `json:"paidAt"`
}

// Account is the cached receivable of one credit sale.
type Account struct {
	SaleID     string      `db:"sale_id" json:"saleId"`
	StoreID    string      `db:"store_id" json:"storeId"`
	CustomerID string      `db:"customer_id" json:"customerId"`
	Total      types.Money `db:"total" json:"total"`
	Paid       types.Money `db:"paid" json:"paid"`
	Balance    types.Money `db:"balance" json:"balance"`
	Status     Status      `db:"status" json:"status"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

// AccountState is the comparable part of an account.
type AccountState struct {
	CustomerID string
	Total      types.Money
	Paid       types.Money
	Balance    types.Money
	Status     Status
}

// Derive computes the state a sale and its payments imply.
func Derive(sale *Sale, paid types.Money) AccountState {
	return AccountState{
		CustomerID: sale.CustomerID,
		Total:      sale.Total,
		Paid:       paid,
		Balance:    sale.Total.Sub(paid),
		Status:     DeriveStatus(sale.Total, paid),
	}
}

func (a *Account) State() AccountState {
	return AccountState{
		CustomerID: a.CustomerID,
		Total:      a.Total,
		Paid:       a.Paid,
		Balance:    a.Balance,
		Status:     a.Status,
	}
}

func (s *Sale) validate() error {
	s.SaleID = strings.TrimSpace(s.SaleID)
	s.StoreID = strings.TrimSpace(s.StoreID)
	s.CustomerID = strings.TrimSpace(s.CustomerID)
	switch {
	case s.SaleID == "":
		return apperror.NewRequiredField("saleId")
	case s.StoreID == "":
		return apperror.NewRequiredField("storeId")
	case s.CustomerID == "":
		return apperror.NewRequiredField("customerId")
	case !s.Total.IsPositive():
		return apperror.NewValidation("total must be positive").WithDetail("field", "total")
	}
	return nil
}
