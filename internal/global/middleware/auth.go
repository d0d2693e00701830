package middleware

import (
	"extension-portal/internal/global/cache"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/response"
	"extension-portal/internal/model"
	"strings"

	"github.com/gin-gonic/gin"
)

// Auth 校验 Bearer 令牌和角色等级，账号被删除后令牌立即失效
func Auth(minRoleID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.ErrTokenInvalid)
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		payload, valid := jwt.ParseToken(token)
		if !valid {
			response.Fail(c, response.ErrAuthExpired)
			return
		}
		if revoked(c, payload.UserID) {
			response.Fail(c, response.ErrAuthExpired.WithTips("账号已被删除"))
			return
		}
		if payload.RoleID < minRoleID {
			response.Fail(c, response.ErrUnauthorized)
			return
		}
		c.Set("payload", payload)
		c.Next()
	}
}

// revoked 有 Redis 时查吊销标记，否则查账号是否还在
func revoked(c *gin.Context, userID uint) bool {
	if cache.Client != nil {
		return cache.IsRevoked(c.Request.Context(), userID)
	}
	if database.DB == nil {
		return false
	}
	var n int64
	if err := database.DB.WithContext(c.Request.Context()).Model(&model.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return false
	}
	return n == 0
}
