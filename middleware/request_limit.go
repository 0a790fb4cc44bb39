package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"elearning-chat-platform/utils"
)

// RequestSizeLimit rejects request bodies above maxSize before reading them.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge,
				"request_too_large",
				"Request body exceeds maximum size",
				gin.H{
					"max_size_mb": maxSize / (1024 * 1024),
					"received":    c.Request.ContentLength,
				})
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
