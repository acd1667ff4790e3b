package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"retailhub/internal/core/apperror"
	appctx "retailhub/internal/core/context"
	"retailhub/pkg/logger"
)

const HeaderStoreID = "X-Store-ID"

// StoreScope resolves the store from X-Store-ID and checks that the caller
// may act in it. Must run after Auth.
func StoreScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := strings.TrimSpace(c.GetHeader(HeaderStoreID))
		if storeID == "" {
			abort(c, apperror.NewValidation("store is required").WithDetail("header", HeaderStoreID))
			return
		}

		ctx := c.Request.Context()
		user := appctx.GetUser(ctx)
		if !user.CanAccessStore(storeID) {
			logger.Warn(ctx, "store access denied", "store_id", storeID)
			abort(c, apperror.NewForbidden("no access to store").WithDetail("storeId", storeID))
			return
		}

		c.Request = c.Request.WithContext(appctx.WithStore(ctx, storeID))
		c.Next()
	}
}
