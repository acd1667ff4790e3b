//go:build integration

package credit_repo_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/id"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/credits"
	"retailhub/internal/infrastructure/storage/postgres"
	"retailhub/internal/infrastructure/storage/postgres/credit_repo"
)

func TestRecordPayment_ConcurrentOnPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))

	txm := postgres.NewTxManager(pool)
	repo := credit_repo.NewCreditRepo(txm)
	svc := credits.NewService(repo, txm, nil)

	storeID := "it-" + id.New().String()
	_, err = svc.RecordSale(ctx, credits.Sale{SaleID: "SALE-1", StoreID: storeID, CustomerID: "C1", Total: types.MustMoney("100")})
	require.NoError(t, err)

	const workers = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordPayment(ctx, credits.Payment{SaleID: "SALE-1", StoreID: storeID, Amount: types.MustMoney("20")})
			if err != nil {
				assert.True(t, apperror.HasCode(err, credits.CodeOverpayment), err.Error())
				return
			}
			mu.Lock()
			accepted++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	paid, err := repo.PaidAmount(ctx, storeID, "SALE-1")
	require.NoError(t, err)
	assert.True(t, types.MustMoney("100").Equal(paid), paid.String())

	report, err := svc.Validate(ctx, storeID)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
}
