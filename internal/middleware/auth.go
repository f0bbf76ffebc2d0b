package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// 权限点
const (
	PermRead  = "pcf:read"
	PermWrite = "pcf:write"
	PermAdmin = "pcf:admin"
)

// JWTClaims JWT claims
type JWTClaims struct {
	UserID      string   `json:"uid"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"perms"`
	jwt.RegisteredClaims
}

// IssueToken 签发访问令牌
func IssueToken(secret, issuer string, claims JWTClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	if claims.Roles == nil {
		claims.Roles = []string{}
	}
	if claims.Permissions == nil {
		claims.Permissions = []string{}
	}
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// JWTAuth JWT认证中间件
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// 回退到 query param（SSE 场景使用）
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			abortAuth(c, http.StatusUnauthorized, 40100, "Authorization is required")
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			abortAuth(c, http.StatusUnauthorized, 40102, "Invalid or expired token")
			return
		}
		if claims.UserID == "" {
			abortAuth(c, http.StatusUnauthorized, 40103, "Invalid token claims")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserName, claims.Name)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextRoles, claims.Roles)
		c.Set(ContextPermissions, claims.Permissions)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequirePermission 权限检查中间件，支持 "*" 与 "pcf:*" 通配
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		perms, ok := c.Get(ContextPermissions)
		if !ok {
			abortAuth(c, http.StatusForbidden, 40300, "No permissions found")
			return
		}
		list, ok := perms.([]string)
		if !ok {
			abortAuth(c, http.StatusForbidden, 40301, "Invalid permissions format")
			return
		}
		if HasPermission(list, permission) {
			c.Next()
			return
		}
		abortAuth(c, http.StatusForbidden, 40302, "Permission denied: "+permission)
	}
}

// HasPermission 判断权限列表是否覆盖指定权限
func HasPermission(perms []string, permission string) bool {
	for _, p := range perms {
		if p == permission || p == "*" || p == PermAdmin {
			return true
		}
		if strings.HasSuffix(p, ":*") && strings.HasPrefix(permission, strings.TrimSuffix(p, "*")) {
			return true
		}
	}
	return false
}

func abortAuth(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
