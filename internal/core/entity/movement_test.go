package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retailhub/internal/core/types"
)

func TestExpectedSign(t *testing.T) {
	tests := []struct {
		typ  MovementType
		ref  ReferenceType
		want Sign
	}{
		{MovementInitialStock, RefProductCreation, SignPositive},
		{MovementPurchase, RefPurchaseOrder, SignPositive},
		{MovementTransferIn, RefWarehouseTransfer, SignPositive},
		{MovementSale, RefSaleTransaction, SignNegative},
		{MovementTransferOut, RefWarehouseTransfer, SignNegative},
		{MovementDamage, RefManualAdjustment, SignNegative},
		{MovementExpiry, RefManualAdjustment, SignNegative},
		{MovementReturn, RefCustomerReturn, SignPositive},
		{MovementReturn, RefSupplierReturn, SignNegative},
		{MovementReturn, RefManualAdjustment, SignAny},
		{MovementAdjustment, RefManualAdjustment, SignAny},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ)+"/"+string(tt.ref), func(t *testing.T) {
			assert.Equal(t, tt.want, ExpectedSign(tt.typ, tt.ref))
		})
	}
}

func TestSignAllows(t *testing.T) {
	assert.True(t, SignPositive.Allows(types.NewQuantity(1)))
	assert.False(t, SignPositive.Allows(types.NewQuantity(-1)))
	assert.True(t, SignNegative.Allows(types.NewQuantity(-1)))
	assert.True(t, SignAny.Allows(types.NewQuantity(-7)))
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, MovementExpiry.Valid())
	assert.False(t, MovementType("theft").Valid())
	assert.True(t, RefSupplierReturn.Valid())
	assert.False(t, ReferenceType("").Valid())
}

func TestScopeKeyOrdering(t *testing.T) {
	a := ScopeKey{ProductID: "P2", WarehouseID: "W1", StoreID: "S1"}
	b := ScopeKey{ProductID: "P1", WarehouseID: "W2", StoreID: "S1"}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.Equal(t, "S1/W1/P2", a.String())
}

func TestBalanceHolds(t *testing.T) {
	m := Movement{PreviousStock: types.NewQuantity(35), Quantity: types.NewQuantity(-3), NewStock: types.NewQuantity(32)}
	assert.True(t, m.BalanceHolds())
	m.NewStock = types.NewQuantity(31)
	assert.False(t, m.BalanceHolds())
}
