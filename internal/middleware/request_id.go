package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 上下文键
const (
	ContextRequestID   = "request_id"
	ContextUserID      = "user_id"
	ContextUserName    = "user_name"
	ContextUserEmail   = "user_email"
	ContextRoles       = "roles"
	ContextPermissions = "permissions"
	ContextClaims      = "claims"
)

// RequestID 请求ID中间件
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(ContextRequestID, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}
