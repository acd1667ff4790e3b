package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"retailhub/internal/core/entity"
	"retailhub/internal/core/id"
	"retailhub/internal/core/types"
)

type auditedRow struct {
	ID        id.ID     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

type productRow struct {
	auditedRow
	SKU     string `db:"sku"`
	Ignored string `db:"-"`
	Plain   string
}

func TestExtractDBColumns_Movement(t *testing.T) {
	cols := ExtractDBColumns[entity.Movement]()

	assert.Equal(t, "id", cols[0])
	assert.Contains(t, cols, "sequence")
	assert.Contains(t, cols, "idempotency_key")
	assert.Contains(t, cols, "previous_stock")
	assert.Contains(t, cols, "new_stock")
	assert.Len(t, cols, 18)
}

func TestExtractDBColumns_FlattensEmbedded(t *testing.T) {
	cols := ExtractDBColumns[productRow]()
	assert.Equal(t, []string{"id", "created_at", "sku"}, cols)
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	batch := "b-1"
	m := entity.Movement{
		ID:            id.New(),
		ProductID:     "p-1",
		WarehouseID:   "w-1",
		StoreID:       "s-1",
		Sequence:      3,
		MovementType:  entity.MovementSale,
		Quantity:      types.NewQuantity(-2),
		PreviousStock: types.NewQuantity(10),
		NewStock:      types.NewQuantity(8),
		BatchID:       &batch,
		CreatedAt:     now,
	}

	row := StructToMap(&m)

	assert.Equal(t, m.ID, row["id"])
	assert.Equal(t, int64(3), row["sequence"])
	assert.Equal(t, types.NewQuantity(-2), row["quantity"])
	assert.Equal(t, &batch, row["batch_id"])
	assert.Nil(t, row["notes"].(*string))
	assert.Equal(t, now, row["created_at"])

	nested := StructToMap(productRow{auditedRow: auditedRow{CreatedAt: now}, SKU: "A-1"})
	assert.Len(t, nested, 3)
	assert.Equal(t, "A-1", nested["sku"])
}
