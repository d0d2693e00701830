package account

import (
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

// InitRouter 账号只能由管理员维护
func (m *ModuleAccount) InitRouter(r *gin.RouterGroup) {
	accountGroup := r.Group("/accounts")
	accountGroup.Use(middleware.Auth(jwt.RoleAdmin))
	{
		accountGroup.GET("", ListAccounts)
		accountGroup.POST("", CreateAccount)
		accountGroup.DELETE("/:id", DeleteAccount)
	}
}
