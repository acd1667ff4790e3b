// Package credit_repo provides the PostgreSQL credit account repository.
package credit_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/id"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/credits"
	"retailhub/internal/infrastructure/storage/postgres"
)

const (
	salesTable    = "credit_sales"
	paymentsTable = "credit_payments"
	accountsTable = "credit_accounts"
)

var (
	saleColumns    = postgres.ExtractDBColumns[credits.Sale]()
	accountColumns = postgres.ExtractDBColumns[credits.Account]()
)

// CreditRepo implements credits.Repository.
type CreditRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

func NewCreditRepo(txm *postgres.TxManager) *CreditRepo {
	return &CreditRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ credits.Repository = (*CreditRepo)(nil)

func (r *CreditRepo) CreateSale(ctx context.Context, sale *credits.Sale) error {
	err := r.exec(ctx, r.builder.Insert(salesTable).SetMap(postgres.StructToMap(sale)))
	if apperror.HasCode(err, apperror.CodeConflict) {
		return apperror.NewDuplicate("credit sale", "saleId", sale.SaleID).WithCause(err)
	}
	return err
}

func (r *CreditRepo) GetSale(ctx context.Context, storeID, saleID string) (*credits.Sale, error) {
	return r.getSale(ctx, r.saleQuery(storeID, saleID, false))
}

// GetSaleForUpdate locks the sale row (SELECT ... FOR UPDATE).
// Must be called inside a transaction.
func (r *CreditRepo) GetSaleForUpdate(ctx context.Context, storeID, saleID string) (*credits.Sale, error) {
	return r.getSale(ctx, r.saleQuery(storeID, saleID, true))
}

func (r *CreditRepo) saleQuery(storeID, saleID string, forUpdate bool) squirrel.SelectBuilder {
	q := r.builder.Select(saleColumns...).
		From(salesTable).
		Where(squirrel.Eq{"store_id": storeID, "sale_id": saleID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	return q
}

func (r *CreditRepo) getSale(ctx context.Context, q squirrel.SelectBuilder) (*credits.Sale, error) {
	var sale credits.Sale
	found, err := r.get(ctx, &sale, q)
	if err != nil || !found {
		return nil, err
	}
	return &sale, nil
}

func (r *CreditRepo) AddPayment(ctx context.Context, p *credits.Payment) error {
	return r.exec(ctx, r.builder.Insert(paymentsTable).
		Columns("id", "store_id", "sale_id", "amount", "paid_at").
		Values(id.New(), p.StoreID, p.SaleID, p.Amount, p.PaidAt))
}

func (r *CreditRepo) PaidAmount(ctx context.Context, storeID, saleID string) (types.Money, error) {
	q := r.builder.Select("COALESCE(SUM(amount), 0)").
		From(paymentsTable).
		Where(squirrel.Eq{"store_id": storeID, "sale_id": saleID})

	var paid types.Money
	if _, err := r.get(ctx, &paid, q); err != nil {
		return types.ZeroMoney(), err
	}
	return paid, nil
}

func (r *CreditRepo) GetAccount(ctx context.Context, storeID, saleID string) (*credits.Account, error) {
	q := r.builder.Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"store_id": storeID, "sale_id": saleID})

	var acc credits.Account
	found, err := r.get(ctx, &acc, q)
	if err != nil || !found {
		return nil, err
	}
	return &acc, nil
}

func (r *CreditRepo) UpsertAccount(ctx context.Context, a *credits.Account) error {
	return r.exec(ctx, r.upsertAccountQuery(a))
}

func (r *CreditRepo) upsertAccountQuery(a *credits.Account) squirrel.InsertBuilder {
	return r.builder.Insert(accountsTable).
		SetMap(postgres.StructToMap(a)).
		Suffix(`ON CONFLICT (store_id, sale_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			total = EXCLUDED.total,
			paid = EXCLUDED.paid,
			balance = EXCLUDED.balance,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`)
}

func (r *CreditRepo) SaleIDs(ctx context.Context, storeID string) ([]string, error) {
	return r.ids(ctx, salesTable, storeID)
}

func (r *CreditRepo) AccountSaleIDs(ctx context.Context, storeID string) ([]string, error) {
	return r.ids(ctx, accountsTable, storeID)
}

func (r *CreditRepo) StoreIDs(ctx context.Context) ([]string, error) {
	return r.selectIDs(ctx, salesTable, r.builder.Select("DISTINCT store_id").
		From(salesTable).
		OrderBy("store_id"))
}

func (r *CreditRepo) ids(ctx context.Context, table, storeID string) ([]string, error) {
	return r.selectIDs(ctx, table, r.builder.Select("sale_id").
		From(table).
		Where(squirrel.Eq{"store_id": storeID}).
		OrderBy("sale_id"))
}

func (r *CreditRepo) selectIDs(ctx context.Context, table string, q squirrel.SelectBuilder) ([]string, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []string
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("list %s: %w", table, err))
	}
	return ids, nil
}

func (r *CreditRepo) get(ctx context.Context, dst any, q squirrel.SelectBuilder) (bool, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return false, nil
		}
		return false, postgres.MapError(err)
	}
	return true, nil
}

func (r *CreditRepo) exec(ctx context.Context, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err)
	}
	return nil
}
