package user

import (
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (u *ModuleUser) InitRouter(r *gin.RouterGroup) {
	userGroup := r.Group("/user")

	userGroup.POST("/login", Login)

	userGroup.Use(middleware.Auth(jwt.RoleImplementor))
	{
		userGroup.GET("/me", GetMe)
		userGroup.PUT("/password", ChangePassword)
	}
}
