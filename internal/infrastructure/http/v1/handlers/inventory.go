package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"retailhub/internal/core/apperror"
	"retailhub/internal/core/entity"
	"retailhub/internal/core/types"
	"retailhub/internal/domain/inventory"
	"retailhub/internal/infrastructure/http/v1/dto"
	"retailhub/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

// StockSyncer applies a recorded movement to the product's cached stock.
type StockSyncer interface {
	SyncCachedStock(ctx context.Context, m *entity.Movement) (types.Quantity, error)
}

// InventoryHandler serves the movement ledger.
type InventoryHandler struct {
	*BaseHandler
	recorder  *inventory.Recorder
	inspector *inventory.Inspector
	stock     StockSyncer
	renderer  ReportRenderer
}

func NewInventoryHandler(
	base *BaseHandler,
	recorder *inventory.Recorder,
	inspector *inventory.Inspector,
	stock StockSyncer,
	renderer ReportRenderer,
) *InventoryHandler {
	return &InventoryHandler{
		BaseHandler: base,
		recorder:    recorder,
		inspector:   inspector,
		stock:       stock,
		renderer:    renderer,
	}
}

// RecordMovement appends one movement.
// POST /inventory/movements?syncCache=true
func (h *InventoryHandler) RecordMovement(c *gin.Context) {
	var req inventory.MovementRequest
	if !h.BindJSON(c, &req) || !h.prepare(c, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(HeaderIdempotencyKey)
	}

	ctx := c.Request.Context()
	m, err := h.recorder.RecordMovement(ctx, req)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.MovementResponse{Movement: m}
	if h.ParseBoolQuery(c, "syncCache") && h.stock != nil {
		stock, err := h.stock.SyncCachedStock(ctx, m)
		if err != nil {
			// The movement is durable; a stale cache is caught by reconciliation.
			logger.Warn(ctx, "cached stock sync failed", "movement_id", m.ID.String(), "error", err)
		} else {
			resp.CachedStock = &stock
		}
	}
	h.Created(c, resp)
}

// RecordBatch appends several movements.
// POST /inventory/movements/batch
func (h *InventoryHandler) RecordBatch(c *gin.Context) {
	var req inventory.BatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	for i := range req.Items {
		if !h.prepare(c, &req.Items[i]) {
			return
		}
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(HeaderIdempotencyKey)
	}

	result, err := h.recorder.RecordBatch(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromBatchResult(result))
}

// prepare binds the request to the caller's store and identity.
func (h *InventoryHandler) prepare(c *gin.Context, req *inventory.MovementRequest) bool {
	if !h.scopeStore(c, &req.StoreID) {
		return false
	}
	req.UserID = h.UserID(c)
	return true
}

// ListMovements pages through a product's movements oldest-first.
// GET /inventory/movements?productId=&warehouseId=&type=&limit=&after=
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	var q dto.ListMovementsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.ProductID == "" {
		h.Error(c, apperror.NewRequiredField("productId"))
		return
	}

	items, next, err := h.inspector.ListPage(c.Request.Context(), q.Filter(h.StoreID(c)), q.After, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.PageResponse[entity.Movement]{Items: items, NextCursor: next})
}

// Summary returns per-type totals, balances and a page of history.
// GET /inventory/products/:productId/summary?warehouseId=&limit=&offset=
func (h *InventoryHandler) Summary(c *gin.Context) {
	var q struct {
		WarehouseID string `form:"warehouseId"`
		Limit       int    `form:"limit"`
		Offset      int    `form:"offset"`
	}
	if !h.BindQuery(c, &q) {
		return
	}

	summary, err := h.inspector.GetMovementSummary(c.Request.Context(), inventory.SummaryQuery{
		ProductID:   c.Param("productId"),
		StoreID:     h.StoreID(c),
		WarehouseID: q.WarehouseID,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// Consistency compares the ledger with the cached stock. Read only.
// GET /inventory/products/:productId/consistency?warehouseId=
func (h *InventoryHandler) Consistency(c *gin.Context) {
	report, err := h.inspector.ValidateProductStock(c.Request.Context(),
		c.Param("productId"), c.Query("warehouseId"), h.StoreID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// Chain walks one chain and reports every broken link.
// GET /inventory/products/:productId/chain?warehouseId=
func (h *InventoryHandler) Chain(c *gin.Context) {
	report, err := h.inspector.VerifyChain(c.Request.Context(), entity.ScopeKey{
		ProductID:   c.Param("productId"),
		WarehouseID: c.Query("warehouseId"),
		StoreID:     h.StoreID(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// ValidateReconciliation diffs cached stock against the ledger.
// POST /inventory/reconciliation/validate
func (h *InventoryHandler) ValidateReconciliation(c *gin.Context) {
	var req dto.KeysRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	report, err := h.inspector.ReconcileStore(c.Request.Context(), h.StoreID(c), req.Keys...)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// RepairReconciliation overwrites drifted cached stock with ledger totals.
// POST /inventory/reconciliation/repair
func (h *InventoryHandler) RepairReconciliation(c *gin.Context) {
	var req dto.KeysRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	result, err := h.inspector.RepairCachedStock(c.Request.Context(), h.StoreID(c), h.UserID(c), req.Keys...)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// ReconciliationReport renders the validate report as PDF.
// GET /inventory/reconciliation/report.pdf
func (h *InventoryHandler) ReconciliationReport(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := h.inspector.ReconcileStore(ctx, h.StoreID(c), c.QueryArray("productId")...)
	if err != nil {
		h.Error(c, err)
		return
	}
	doc, err := h.renderer.Render(ctx, report)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	h.PDF(c, reportFilename("inventory", report.StoreID, report.GeneratedAt), doc)
}

func reportFilename(subject, storeID string, at time.Time) string {
	return fmt.Sprintf("reconciliation-%s-%s-%s.pdf", subject, storeID, at.UTC().Format("20060102T150405"))
}
