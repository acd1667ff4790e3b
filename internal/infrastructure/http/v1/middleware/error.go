package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"retailhub/internal/core/apperror"
	"retailhub/pkg/logger"
)

// ErrorHandler renders the last error of the request as
// {"error": {"code", "message", "details"}}. Internal causes are logged and
// never sent to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		respond(c)
	}
}

func respond(c *gin.Context) {
	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	err := c.Errors.Last().Err
	ctx := c.Request.Context()

	appErr, ok := apperror.AsAppError(err)
	switch {
	case ok:
	case errors.Is(err, context.DeadlineExceeded):
		appErr = &apperror.AppError{
			Code:       apperror.CodeStorage,
			Message:    "Request timed out",
			HTTPStatus: http.StatusServiceUnavailable,
		}
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the answer.
		c.Status(499)
		return
	default:
		logger.Error(ctx, "unhandled error", "error", err)
		appErr = &apperror.AppError{
			Code:       apperror.CodeInternal,
			Message:    "Internal server error",
			Details:    map[string]any{"request_id": c.GetString(KeyRequestID)},
			HTTPStatus: http.StatusInternalServerError,
		}
	}

	if appErr.Err != nil {
		log := logger.Warn
		if appErr.HTTPStatus >= 500 {
			log = logger.Error
		}
		log(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
	}

	c.JSON(appErr.HTTPStatus, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		},
	})
}
