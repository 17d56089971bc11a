package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ingredient-analyzer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Timeout 為每個請求設置超時；處理器尚未回應時回傳 504
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.Writer.Header().Get("X-Request-ID")),
				zap.Duration("timeout", timeout),
			)
			if !c.Writer.Written() {
				common.WriteError(c, common.ErrGatewayTimeout, timeout.String())
			}
		}
	}
}

// MethodNotAllowed 不支援的 HTTP 方法
func MethodNotAllowed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"error": common.ErrMethodNotAllowed.Message})
}
