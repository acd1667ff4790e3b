package credit_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/internal/core/types"
	"retailhub/internal/domain/credits"
)

func TestUpsertAccountQuery(t *testing.T) {
	repo := NewCreditRepo(nil)
	acc := &credits.Account{
		SaleID:     "SALE-1",
		StoreID:    "S1",
		CustomerID: "C1",
		Total:      types.MustMoney("100"),
		Paid:       types.MustMoney("40"),
		Balance:    types.MustMoney("60"),
		Status:     credits.StatusPartial,
		UpdatedAt:  time.Unix(1700000000, 0).UTC(),
	}

	sql, args, err := repo.upsertAccountQuery(acc).ToSql()
	require.NoError(t, err)

	// SetMap orders columns alphabetically.
	assert.True(t, strings.HasPrefix(sql,
		"INSERT INTO credit_accounts (balance,customer_id,paid,sale_id,status,store_id,total,updated_at) "+
			"VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ON CONFLICT (store_id, sale_id) DO UPDATE SET"), sql)
	require.Len(t, args, 8)
	assert.Equal(t, "C1", args[1])
	assert.Equal(t, "SALE-1", args[3])
	assert.Equal(t, credits.StatusPartial, args[4])
}

func TestSaleQuery(t *testing.T) {
	repo := NewCreditRepo(nil)

	tests := []struct {
		name       string
		lock       bool
		wantSuffix string
	}{
		{"plain read", false, "FROM credit_sales WHERE sale_id = $1 AND store_id = $2"},
		{"locking read", true, "FROM credit_sales WHERE sale_id = $1 AND store_id = $2 FOR UPDATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.saleQuery("S1", "SALE-1", tt.lock).ToSql()
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(sql, tt.wantSuffix), sql)
			assert.Equal(t, []any{"SALE-1", "S1"}, args)
		})
	}
}
