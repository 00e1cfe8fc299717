package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "monbudget/internal/errors"
	"monbudget/internal/logger"
	"monbudget/internal/metrics"
)

// ErrorHandler logs and counts the errors handlers record with c.Error. When a
// handler records an error without answering, the last one is written as the
// JSON error body; unexpected errors never leak their details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID, _ := c.Get(requestIDKey)
		for _, ginErr := range c.Errors {
			appErr := apperrors.ErrInternalServer
			if !errors.As(ginErr.Err, &appErr) {
				logger.Get().Errorw("unexpected error",
					"error", ginErr.Err.Error(),
					"request_id", requestID,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
				)
			} else if appErr.Internal != nil {
				logger.Get().Errorw("app error",
					"code", appErr.Code,
					"internal", appErr.Internal.Error(),
					"request_id", requestID,
					"user_id", c.GetString("userID"),
					"path", c.Request.URL.Path,
				)
			}
			metrics.HTTPErrors.WithLabelValues(appErr.Code).Inc()
		}

		if c.Writer.Written() {
			return
		}
		appErr := apperrors.ErrInternalServer
		errors.As(c.Errors.Last().Err, &appErr)
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
	}
}
