package middleware

import (
	"time"

	"ingredient-analyzer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger 請求日誌：記錄路由、分析模式與分類錯誤種類，依狀態碼決定級別
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.Writer.Header().Get("X-Request-ID")),
		}
		if mode := c.GetString(common.ContextKeyMode); mode != "" {
			fields = append(fields, zap.String("mode", mode))
		}
		if kind := c.GetString(common.ContextKeyErrorKind); kind != "" {
			fields = append(fields, zap.String("error_kind", kind))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= 500:
			common.LogError("伺服器錯誤", fields...)
		case status == 422:
			// 分類器明確拒絕，屬正常結果
			common.LogInfo("分析被拒絕", fields...)
		case status >= 400:
			common.LogWarn("用戶端錯誤", fields...)
		default:
			common.LogInfo("請求完成", fields...)
		}
	}
}

// Recovery 恢復中間件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				common.LogError("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)

				common.WriteError(c, common.ErrInternalError, "")
			}
		}()

		c.Next()
	}
}
