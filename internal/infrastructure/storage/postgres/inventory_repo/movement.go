// Package inventory_repo provides the PostgreSQL implementation of the
// movement ledger.
package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/inventory"
	"retailhub/internal/infrastructure/storage/postgres"
)

const movementsTable = "inventory_movements"

var movementColumns = postgres.ExtractDBColumns[entity.Movement]()

// MovementRepo implements inventory.Repository.
type MovementRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

func NewMovementRepo(txm *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ inventory.Repository = (*MovementRepo)(nil)

// LockKey takes a transaction-scoped advisory lock on the key's hash. It is
// released on commit or rollback.
func (r *MovementRepo) LockKey(ctx context.Context, key entity.ScopeKey) error {
	tx := r.txm.GetTx(ctx)
	if tx == nil {
		return apperror.NewInternal(fmt.Errorf("lock %s: no transaction in context", key))
	}
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", key.String()); err != nil {
		return postgres.MapError(fmt.Errorf("advisory lock: %w", err))
	}
	return nil
}

func (r *MovementRepo) Latest(ctx context.Context, key entity.ScopeKey) (*entity.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(keyPredicate(key)).
		OrderBy("sequence DESC").
		Limit(1)

	var m entity.Movement
	if err := r.get(ctx, &m, q); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MovementRepo) Append(ctx context.Context, m *entity.Movement) error {
	sql, args, err := r.builder.Insert(movementsTable).SetMap(postgres.StructToMap(m)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert movement: %w", err))
	}
	return nil
}

func (r *MovementRepo) FindByIdempotencyKey(ctx context.Context, storeID, key string) (*entity.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"store_id": storeID, "idempotency_key": key}).
		Limit(1)

	var m entity.Movement
	if err := r.get(ctx, &m, q); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MovementRepo) SumQuantity(ctx context.Context, f inventory.Filter) (types.Quantity, error) {
	// sum(bigint) is numeric; cast back so it scans into Quantity.
	q := r.builder.Select("COALESCE(SUM(quantity), 0)::bigint").
		From(movementsTable).
		Where(filterPredicate(f))

	var sum types.Quantity
	if err := r.get(ctx, &sum, q); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *MovementRepo) Count(ctx context.Context, f inventory.Filter) (int64, error) {
	q := r.builder.Select("COUNT(*)").
		From(movementsTable).
		Where(filterPredicate(f))

	var n int64
	if err := r.get(ctx, &n, q); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *MovementRepo) TotalsByType(ctx context.Context, f inventory.Filter) ([]inventory.TypeTotal, error) {
	q := r.builder.Select(
		"movement_type",
		"COUNT(*) AS count",
		"COALESCE(SUM(quantity), 0)::bigint AS quantity",
	).From(movementsTable).
		Where(filterPredicate(f)).
		GroupBy("movement_type").
		OrderBy("movement_type")

	var totals []inventory.TypeTotal
	if err := r.selectAll(ctx, &totals, q); err != nil {
		return nil, err
	}
	return totals, nil
}

// Balances reads the newest record of every chain of the product.
func (r *MovementRepo) Balances(ctx context.Context, productID, storeID string) ([]inventory.WarehouseBalance, error) {
	q := r.builder.Select("DISTINCT ON (warehouse_id) warehouse_id", "new_stock", "sequence", "created_at").
		From(movementsTable).
		Where(squirrel.Eq{"product_id": productID, "store_id": storeID}).
		OrderBy("warehouse_id", "sequence DESC")

	var balances []inventory.WarehouseBalance
	if err := r.selectAll(ctx, &balances, q); err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *MovementRepo) List(ctx context.Context, opts inventory.ListOptions) ([]entity.Movement, error) {
	q := r.listQuery(opts)

	var movements []entity.Movement
	if err := r.selectAll(ctx, &movements, q); err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *MovementRepo) listQuery(opts inventory.ListOptions) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(filterPredicate(opts.Filter))

	if opts.Order == inventory.OrderDesc {
		q = q.OrderBy("created_at DESC", "sequence DESC", "id DESC")
	} else {
		q = q.OrderBy("created_at", "sequence", "id")
		if opts.After != nil {
			q = q.Where(squirrel.Expr("(created_at, sequence, id) > (?, ?, ?)",
				opts.After.CreatedAt, opts.After.Sequence, opts.After.ID))
		}
	}
	if opts.Offset > 0 {
		q = q.Offset(uint64(opts.Offset))
	}
	if opts.Limit > 0 {
		q = q.Limit(uint64(opts.Limit))
	}
	return q
}

func (r *MovementRepo) ProductIDs(ctx context.Context, storeID string) ([]string, error) {
	q := r.builder.Select("DISTINCT product_id").
		From(movementsTable).
		Where(squirrel.Eq{"store_id": storeID}).
		OrderBy("product_id")

	var ids []string
	if err := r.selectAll(ctx, &ids, q); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *MovementRepo) StoreIDs(ctx context.Context) ([]string, error) {
	q := r.builder.Select("DISTINCT store_id").
		From(movementsTable).
		OrderBy("store_id")

	var ids []string
	if err := r.selectAll(ctx, &ids, q); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *MovementRepo) get(ctx context.Context, dst any, q squirrel.SelectBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return err
		}
		return postgres.MapError(fmt.Errorf("query %s: %w", movementsTable, err))
	}
	return nil
}

func (r *MovementRepo) selectAll(ctx context.Context, dst any, q squirrel.SelectBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), dst, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("select %s: %w", movementsTable, err))
	}
	return nil
}

func keyPredicate(key entity.ScopeKey) squirrel.Eq {
	return squirrel.Eq{
		"product_id":   key.ProductID,
		"warehouse_id": key.WarehouseID,
		"store_id":     key.StoreID,
	}
}

func filterPredicate(f inventory.Filter) squirrel.And {
	and := squirrel.And{squirrel.Eq{"product_id": f.ProductID, "store_id": f.StoreID}}
	if f.WarehouseID != "" {
		and = append(and, squirrel.Eq{"warehouse_id": f.WarehouseID})
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		and = append(and, squirrel.Eq{"movement_type": types})
	}
	return and
}
