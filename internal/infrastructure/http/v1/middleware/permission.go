package middleware

import (
	"github.com/gin-gonic/gin"

	"retailhub/internal/core/apperror"
	appctx "retailhub/internal/core/context"
)

// RequirePermission rejects callers without permission. Admins hold every
// permission.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		if user == nil {
			abort(c, apperror.NewUnauthorized("authentication required"))
			return
		}
		if !user.HasPermission(permission) {
			abort(c, apperror.NewForbidden("insufficient permissions").
				WithDetail("required_permission", permission))
			return
		}
		c.Next()
	}
}
