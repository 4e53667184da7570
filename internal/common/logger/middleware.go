// internal/common/logger/middleware.go
package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request id in and out.
const RequestIDHeader = "X-Request-ID"

const requestLoggerKey = "requestLogger"

// GinMiddleware logs one line per request and attaches a request-scoped
// logger to the context.
func GinMiddleware(log Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		reqLog := log.WithFields(map[string]interface{}{"requestId": requestID})
		c.Set(requestLoggerKey, reqLog)

		c.Next()

		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.FullPath(),
			"uri":       c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
			"clientIp":  c.ClientIP(),
		}
		switch {
		case c.Writer.Status() >= 500:
			reqLog.Error("Request completed", fields)
		case c.Writer.Status() >= 400:
			reqLog.Warn("Request completed", fields)
		default:
			reqLog.Info("Request completed", fields)
		}
	}
}

// FromContext returns the request logger set by GinMiddleware, or fallback.
func FromContext(c *gin.Context, fallback Logger) Logger {
	if v, ok := c.Get(requestLoggerKey); ok {
		if l, ok := v.(Logger); ok {
			return l
		}
	}
	return fallback
}
