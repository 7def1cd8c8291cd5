package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// gin context keys written by the HTTP middleware package. They are read
// here by name because that package already imports this one.
const (
	ginRequestIDKey = "request_id"
	ginErrorCodeKey = "error_code"
)

// GinMiddleware writes one access log line per request and puts the request
// logger and its correlation fields in the request context, so services
// reached through c.Request.Context() log with the same fields via L.
func GinMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		ctx := WithCorrelation(req.Context(), Correlation{
			RequestID:      c.GetString(ginRequestIDKey),
			ObligationID:   c.Param("id"),
			IdempotencyKey: req.Header.Get("Idempotency-Key"),
		})
		ctx = WithContext(ctx, logger.With(
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
		))
		c.Request = req.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", req.UserAgent()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if route := c.FullPath(); route != "" {
			fields = append(fields, zap.String("route", route))
		}
		if query := req.URL.RawQuery; query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if code := c.GetString(ginErrorCodeKey); code != "" {
			fields = append(fields, zap.String("error_code", code))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		L(ctx).Log(accessLevel(status), "HTTP Request", fields...)
	}
}

// accessLevel is Error for 5xx, Warn for 4xx and Info otherwise
func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// Recovery turns a panic in a later handler into a 500 error envelope and
// logs the panic value with its stack.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			ForContext(c.Request.Context(), logger).Error("Panic recovered",
				zap.String("request_id", c.GetString(ginRequestIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", recovered),
				zap.Stack("stacktrace"),
			)
			c.Set(ginErrorCodeKey, "ERR_INTERNAL")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "ERR_INTERNAL",
					"message":    "An unexpected error occurred",
					"request_id": c.GetString(ginRequestIDKey),
				},
			})
		}()
		c.Next()
	}
}
