package common

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// WriteError 寫入錯誤響應並中止處理鏈
func WriteError(c *gin.Context, e *CustomError, details string) {
	c.AbortWithStatusJSON(e.Status, e.Response(details))
}

type requestIDKey struct{}

// WithRequestID 將請求 ID 放入 context，供下游日誌使用
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom 取出請求 ID，沒有時回傳空字串
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// gin.Context 內供請求日誌讀取的鍵
const (
	ContextKeyMode      = "analysis_mode"
	ContextKeyErrorKind = "error_kind"
)
