package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

// ErrorHandler отдает последнюю ошибку из c.Errors в виде {"error": ...}.
// Текст внутренних ошибок клиенту не показывается.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		statusCode := errors.HTTPStatusFromError(err.Err)

		message := err.Error()
		if statusCode >= http.StatusInternalServerError {
			log.Error("Request failed", "error", err.Err, "method", c.Request.Method, "path", c.FullPath())
			message = http.StatusText(statusCode)
		}

		c.JSON(statusCode, gin.H{"error": message})
	}
}
