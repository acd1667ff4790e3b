package handlers

import (
	"github.com/gin-gonic/gin"

	"retailhub/internal/core/apperror"
	"retailhub/internal/domain/credits"
	"retailhub/internal/infrastructure/http/v1/dto"
)

// CreditHandler serves credit sales and their reconciliation.
type CreditHandler struct {
	*BaseHandler
	service  *credits.Service
	renderer ReportRenderer
}

func NewCreditHandler(base *BaseHandler, service *credits.Service, renderer ReportRenderer) *CreditHandler {
	return &CreditHandler{BaseHandler: base, service: service, renderer: renderer}
}

// RecordSale opens a receivable.
// POST /credits/sales
func (h *CreditHandler) RecordSale(c *gin.Context) {
	var sale credits.Sale
	if !h.BindJSON(c, &sale) || !h.scopeStore(c, &sale.StoreID) {
		return
	}
	acc, err := h.service.RecordSale(c.Request.Context(), sale)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, acc)
}

// RecordPayment settles part of a sale.
// POST /credits/sales/:saleId/payments
func (h *CreditHandler) RecordPayment(c *gin.Context) {
	var p credits.Payment
	if !h.BindJSON(c, &p) || !h.scopeStore(c, &p.StoreID) {
		return
	}
	p.SaleID = c.Param("saleId")

	acc, err := h.service.RecordPayment(c.Request.Context(), p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, acc)
}

// ValidateReconciliation diffs credit accounts against sales and payments.
// POST /credits/reconciliation/validate
func (h *CreditHandler) ValidateReconciliation(c *gin.Context) {
	var req dto.KeysRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	report, err := h.service.Validate(c.Request.Context(), h.StoreID(c), req.Keys...)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// RepairReconciliation rewrites drifted accounts.
// POST /credits/reconciliation/repair
func (h *CreditHandler) RepairReconciliation(c *gin.Context) {
	var req dto.KeysRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	result, err := h.service.Repair(c.Request.Context(), h.StoreID(c), h.UserID(c), req.Keys...)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// ReconciliationReport renders the validate report as PDF.
// GET /credits/reconciliation/report.pdf
func (h *CreditHandler) ReconciliationReport(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := h.service.Validate(ctx, h.StoreID(c), c.QueryArray("saleId")...)
	if err != nil {
		h.Error(c, err)
		return
	}
	doc, err := h.renderer.Render(ctx, report)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	h.PDF(c, reportFilename("credits", report.StoreID, report.GeneratedAt), doc)
}
