package handlers

import (
	"github.com/gin-gonic/gin"

	"retailhub/internal/core/entity"
	"retailhub/internal/domain/products"
)

type ProductHandler struct {
	*BaseHandler
	service *products.Service
}

func NewProductHandler(base *BaseHandler, service *products.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

type createProductResponse struct {
	Product      *products.Product `json:"product"`
	InitialStock *entity.Movement  `json:"initialStock,omitempty"`
}

// Create inserts a product and records its opening balance.
// POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	var req products.CreateRequest
	if !h.BindJSON(c, &req) || !h.scopeStore(c, &req.StoreID) {
		return
	}
	req.UserID = h.UserID(c)

	p, opening, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, createProductResponse{Product: p, InitialStock: opening})
}

// Get returns a product with its cached stock.
// GET /products/:productId
func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("productId"), h.StoreID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}
