// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"retailhub/internal/core/apperror"
	appctx "retailhub/internal/core/context"
	"retailhub/internal/domain/reconcile"
)

// ReportRenderer renders a reconciliation report as a document.
type ReportRenderer interface {
	Render(ctx context.Context, r *reconcile.Report) ([]byte, error)
}

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds the request body. It reports false after registering a
// validation error.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindOptionalJSON binds the request body when there is one.
func (h *BaseHandler) BindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.BindJSON(c, obj)
}

func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err and aborts. middleware.ErrorHandler writes the response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseBoolQuery parses a boolean query parameter; anything unparsable is false.
func (h *BaseHandler) ParseBoolQuery(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}

// StoreID is the store resolved by middleware.StoreScope.
func (h *BaseHandler) StoreID(c *gin.Context) string {
	return appctx.GetStoreID(c.Request.Context())
}

func (h *BaseHandler) UserID(c *gin.Context) string {
	return appctx.GetUserID(c.Request.Context())
}

// scopeStore fills an empty body storeId from the header scope and rejects
// a different one.
func (h *BaseHandler) scopeStore(c *gin.Context, bodyStoreID *string) bool {
	scoped := h.StoreID(c)
	switch *bodyStoreID {
	case "":
		*bodyStoreID = scoped
	case scoped:
	default:
		h.Error(c, apperror.NewValidation("storeId does not match the X-Store-ID header").
			WithDetail("storeId", *bodyStoreID))
		return false
	}
	return true
}

func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// PDF sends an inline PDF document.
func (h *BaseHandler) PDF(c *gin.Context, filename string, doc []byte) {
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}
