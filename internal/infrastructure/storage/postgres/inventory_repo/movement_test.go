package inventory_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/internal/core/entity"
	"retailhub/internal/core/id"
	"retailhub/internal/domain/inventory"
)

func TestListQuery(t *testing.T) {
	repo := NewMovementRepo(nil)
	cols := strings.Join(movementColumns, ", ")
	after := &inventory.Cursor{CreatedAt: time.Unix(1700000000, 0).UTC(), Sequence: 7, ID: id.New()}

	tests := []struct {
		name     string
		opts     inventory.ListOptions
		wantSQL  string
		wantArgs []any
	}{
		{
			name: "store-wide ascending",
			opts: inventory.ListOptions{Filter: inventory.Filter{ProductID: "p1", StoreID: "s1"}, Limit: 10},
			wantSQL: "SELECT " + cols + " FROM inventory_movements WHERE (product_id = $1 AND store_id = $2) " +
				"ORDER BY created_at, sequence, id LIMIT 10",
			wantArgs: []any{"p1", "s1"},
		},
		{
			name: "keyset cursor",
			opts: inventory.ListOptions{
				Filter: inventory.Filter{ProductID: "p1", StoreID: "s1", WarehouseID: "w1"},
				After:  after,
				Limit:  5,
			},
			wantSQL: "SELECT " + cols + " FROM inventory_movements " +
				"WHERE (product_id = $1 AND store_id = $2 AND warehouse_id = $3) AND (created_at, sequence, id) > ($4, $5, $6) " +
				"ORDER BY created_at, sequence, id LIMIT 5",
			wantArgs: []any{"p1", "s1", "w1", after.CreatedAt, int64(7), after.ID},
		},
		{
			name: "newest first with offset ignores cursor",
			opts: inventory.ListOptions{
				Filter: inventory.Filter{ProductID: "p1", StoreID: "s1"},
				Order:  inventory.OrderDesc,
				After:  after,
				Limit:  20,
				Offset: 40,
			},
			wantSQL: "SELECT " + cols + " FROM inventory_movements WHERE (product_id = $1 AND store_id = $2) " +
				"ORDER BY created_at DESC, sequence DESC, id DESC LIMIT 20 OFFSET 40",
			wantArgs: []any{"p1", "s1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.listQuery(tt.opts).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestFilterPredicate_Types(t *testing.T) {
	f := inventory.Filter{
		ProductID: "p1",
		StoreID:   "s1",
		Types:     []entity.MovementType{entity.MovementSale, entity.MovementReturn},
	}

	sql, args, err := filterPredicate(f).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(product_id = ? AND store_id = ? AND movement_type IN (?,?))", sql)
	assert.Equal(t, []any{"p1", "s1", "sale", "return"}, args)
}

func TestKeyPredicate(t *testing.T) {
	sql, args, err := keyPredicate(entity.ScopeKey{ProductID: "p1", WarehouseID: "w1", StoreID: "s1"}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "product_id = ? AND store_id = ? AND warehouse_id = ?", sql)
	assert.Equal(t, []any{"p1", "s1", "w1"}, args)
}
