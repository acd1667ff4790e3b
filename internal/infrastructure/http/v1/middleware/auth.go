package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"retailhub/internal/core/apperror"
	appctx "retailhub/internal/core/context"
)

// JWTValidator validates a bearer token.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

const KeyUserID = "user_id"

// Auth requires a valid bearer token and puts the caller in the context.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, apperror.NewUnauthorized("missing authorization header"))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			abort(c, apperror.NewUnauthorized("invalid authorization header format"))
			return
		}

		user, err := validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			abort(c, apperror.NewUnauthorized("invalid token").WithCause(err))
			return
		}

		c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
		c.Set(KeyUserID, user.UserID)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
