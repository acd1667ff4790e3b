package products

import (
	"context"
	"fmt"
	"time"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/id"
	"retailhub/internal/core/tx"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/inventory"
	"retailhub/pkg/logger"
)

// MovementRecorder appends to the inventory ledger.
type MovementRecorder interface {
	RecordMovement(ctx context.Context, req inventory.MovementRequest) (*entity.Movement, error)
}

type Service struct {
	repo     Repository
	txm      tx.Manager
	recorder MovementRecorder
	now      func() time.Time
}

func NewService(repo Repository, txm tx.Manager, recorder MovementRecorder) *Service {
	return &Service{repo: repo, txm: txm, recorder: recorder, now: time.Now}
}

// Create inserts the product and, in the same transaction, records its
// opening balance. Either both are stored or neither is. The returned
// movement is nil when the initial stock is zero.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Product, *entity.Movement, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	p := &Product{
		ID:        req.ID,
		StoreID:   req.StoreID,
		SKU:       req.SKU,
		Name:      req.Name,
		UnitCost:  req.UnitCost,
		Stock:     req.InitialStock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.ID == "" {
		p.ID = id.New().String()
	}

	var opening *entity.Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		if req.InitialStock.IsZero() {
			return nil
		}

		m, err := s.recorder.RecordMovement(ctx, inventory.MovementRequest{
			ProductID:     p.ID,
			WarehouseID:   req.WarehouseID,
			StoreID:       p.StoreID,
			MovementType:  entity.MovementInitialStock,
			Quantity:      req.InitialStock,
			ReferenceType: entity.RefProductCreation,
			ReferenceID:   p.ID,
			UserID:        req.UserID,
			UnitCost:      req.UnitCost,
			Notes:         "Initial stock on product creation",
		})
		if err != nil {
			return fmt.Errorf("record initial stock: %w", err)
		}
		opening = m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "product created",
		"product_id", p.ID,
		"store_id", p.StoreID,
		"initial_stock", p.Stock.String(),
	)
	return p, opening, nil
}

func (s *Service) Get(ctx context.Context, productID, storeID string) (*Product, error) {
	if productID == "" {
		return nil, apperror.NewRequiredField("productId")
	}
	return s.repo.Get(ctx, productID, storeID)
}

// SyncCachedStock applies a recorded movement to the product's cached stock.
// The ledger never calls this; callers opt in.
func (s *Service) SyncCachedStock(ctx context.Context, m *entity.Movement) (types.Quantity, error) {
	stock, err := s.repo.AdjustCachedStock(ctx, m.ProductID, m.StoreID, m.Quantity)
	if err != nil {
		return 0, fmt.Errorf("sync cached stock of %s: %w", m.ProductID, err)
	}
	return stock, nil
}

// GetCachedStock, SetCachedStock and ProductIDs let the service stand in for
// inventory.CachedStockStore.
func (s *Service) GetCachedStock(ctx context.Context, productID, storeID string) (types.Quantity, error) {
	return s.repo.GetCachedStock(ctx, productID, storeID)
}

func (s *Service) SetCachedStock(ctx context.Context, productID, storeID string, qty types.Quantity) error {
	return s.repo.SetCachedStock(ctx, productID, storeID, qty)
}

func (s *Service) ProductIDs(ctx context.Context, storeID string) ([]string, error) {
	return s.repo.ProductIDs(ctx, storeID)
}

func (s *Service) StoreIDs(ctx context.Context) ([]string, error) {
	return s.repo.StoreIDs(ctx)
}

var _ inventory.CachedStockStore = (*Service)(nil)
