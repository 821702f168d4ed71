package middleware

import (
	"net/http"
	"strings"

	"github.com/AgriDirect/AgriDirect/internal/common/auth"
	"github.com/AgriDirect/AgriDirect/internal/common/config"
	"github.com/AgriDirect/AgriDirect/internal/common/logger"
	"github.com/gin-gonic/gin"
)

const (
	ctxKeyUserID = "user_id"
	ctxKeyRole   = "role"
)

// JWTAuth 校验 Bearer token 并将 subject / role 写入 gin context。
// cfg.Enabled=false 时直接放行（本地调试用）。
func JWTAuth(cfg config.AuthConfig, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}
		if strings.TrimSpace(cfg.JWTSecret) == "" {
			if log != nil {
				log.Warn("auth enabled but jwt_secret is empty")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": "UNAUTHORIZED", "message": "auth not configured",
			})
			return
		}

		tokenStr := BearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": "UNAUTHORIZED", "message": "missing authorization",
			})
			return
		}

		claims, err := auth.ParseAccessToken(cfg, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": "UNAUTHORIZED", "message": "invalid token",
			})
			return
		}

		c.Set(ctxKeyUserID, claims.Subject)
		c.Set(ctxKeyRole, claims.Role)
		c.Next()
	}
}

// RequireRole 要求 token 角色命中 allowed 之一（大小写不敏感）。
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": "FORBIDDEN", "message": "role missing in context",
			})
			return
		}
		for _, r := range allowed {
			if strings.EqualFold(role, r) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code": "FORBIDDEN", "message": "role not allowed",
		})
	}
}

// UserID 取出当前请求的用户 ID（JWTAuth 之后可用）。
func UserID(c *gin.Context) string {
	return c.GetString(ctxKeyUserID)
}

// Role 取出当前请求的角色。
func Role(c *gin.Context) string {
	return c.GetString(ctxKeyRole)
}
