// internal/common/errors/handler.go
package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Renderer writes the response for a request that failed with stdErr.
// status is the value HTTPStatus picked for the code.
type Renderer func(c *gin.Context, status int, stdErr *StandardError)

// Handler is gin middleware that turns the last error attached with
// c.Error into a response. Handlers that already wrote a response are left
// alone.
func Handler(logger Logger, render Renderer) gin.HandlerFunc {
	if render == nil {
		render = renderJSON
	}
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		stdErr := Normalize(c.Errors.Last().Err)
		status := HTTPStatus(stdErr.Code)

		fields := map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"category":  GetErrorCategory(stdErr.Code),
			"details":   stdErr.Details,
			"retryable": stdErr.Retryable,
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
			"status":    status,
		}
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", fields)
		} else {
			logger.Warn("Request rejected", fields)
		}

		if c.Writer.Written() {
			return
		}
		render(c, status, stdErr)
	}
}

func renderJSON(c *gin.Context, status int, stdErr *StandardError) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":      stdErr.Code,
		"message":   stdErr.Message,
		"retryable": stdErr.Retryable,
	})
}
