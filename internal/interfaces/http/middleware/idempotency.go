package middleware

import (
	"net/http"

	"github.com/backoffice/installments/internal/infrastructure/logger"
	"github.com/backoffice/installments/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader lets a client retry a payment registration safely
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyKeyContextKey is the gin context key of the accepted header value
	IdempotencyKeyContextKey = "idempotency_key"

	maxIdempotencyKeyLength = 255
)

// IdempotencyKey validates the Idempotency-Key header when present and stores it
// in the gin context. Requests without the header pass through untouched.
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength || !isPrintableASCII(key) {
			logger.L(c.Request.Context()).Warn("rejected malformed Idempotency-Key", zap.Int("length", len(key)))
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeInvalidInput,
				"Idempotency-Key must be 1-255 printable ASCII characters")
			return
		}
		c.Set(IdempotencyKeyContextKey, key)
		c.Next()
	}
}

// GetIdempotencyKey returns the key accepted by IdempotencyKey, or "" when the request has none
func GetIdempotencyKey(c *gin.Context) string {
	return c.GetString(IdempotencyKeyContextKey)
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
