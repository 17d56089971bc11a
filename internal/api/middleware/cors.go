package middleware

import (
	"github.com/gin-gonic/gin"
)

// AllowAllOrigins 所有回應都帶上 Access-Control-Allow-Origin: *；
// gin-contrib/cors 只在請求帶 Origin 時設定標頭
func AllowAllOrigins() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}
