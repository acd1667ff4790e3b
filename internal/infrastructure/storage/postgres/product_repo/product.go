// Package product_repo provides the PostgreSQL product repository.
package product_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/products"
	"retailhub/internal/infrastructure/storage/postgres"
)

const productsTable = "products"

var productColumns = postgres.ExtractDBColumns[products.Product]()

// ProductRepo implements products.Repository.
type ProductRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ products.Repository = (*ProductRepo)(nil)

func (r *ProductRepo) Create(ctx context.Context, p *products.Product) error {
	sql, args, err := r.builder.Insert(productsTable).SetMap(postgres.StructToMap(p)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		mapped := postgres.MapError(fmt.Errorf("insert product: %w", err))
		if apperror.HasCode(mapped, apperror.CodeConflict) {
			return apperror.NewDuplicate("product", "sku", p.SKU).WithCause(err)
		}
		return mapped
	}
	return nil
}

func (r *ProductRepo) Get(ctx context.Context, productID, storeID string) (*products.Product, error) {
	sql, args, err := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID, "store_id": storeID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p products.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID)
		}
		return nil, postgres.MapError(fmt.Errorf("get product: %w", err))
	}
	return &p, nil
}

func (r *ProductRepo) GetCachedStock(ctx context.Context, productID, storeID string) (types.Quantity, error) {
	sql, args, err := r.builder.Select("stock").
		From(productsTable).
		Where(squirrel.Eq{"id": productID, "store_id": storeID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var stock types.Quantity
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &stock, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return 0, apperror.NewNotFound("product", productID)
		}
		return 0, postgres.MapError(fmt.Errorf("get cached stock: %w", err))
	}
	return stock, nil
}

func (r *ProductRepo) SetCachedStock(ctx context.Context, productID, storeID string, qty types.Quantity) error {
	sql, args, err := r.builder.Update(productsTable).
		Set("stock", qty).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": productID, "store_id": storeID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("set cached stock: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID)
	}
	return nil
}

func (r *ProductRepo) AdjustCachedStock(ctx context.Context, productID, storeID string, delta types.Quantity) (types.Quantity, error) {
	sql, args, err := r.builder.Update(productsTable).
		Set("stock", squirrel.Expr("stock + ?", delta)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": productID, "store_id": storeID}).
		Suffix("RETURNING stock").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	var stock types.Quantity
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &stock, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return 0, apperror.NewNotFound("product", productID)
		}
		return 0, postgres.MapError(fmt.Errorf("adjust cached stock: %w", err))
	}
	return stock, nil
}

func (r *ProductRepo) ProductIDs(ctx context.Context, storeID string) ([]string, error) {
	sql, args, err := r.builder.Select("id").
		From(productsTable).
		Where(squirrel.Eq{"store_id": storeID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []string
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("list product ids: %w", err))
	}
	return ids, nil
}

func (r *ProductRepo) StoreIDs(ctx context.Context) ([]string, error) {
	sql, args, err := r.builder.Select("DISTINCT store_id").
		From(productsTable).
		OrderBy("store_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []string
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("list store ids: %w", err))
	}
	return ids, nil
}
