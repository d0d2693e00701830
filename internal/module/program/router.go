package program

import (
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (m *ModuleProgram) InitRouter(r *gin.RouterGroup) {
	programGroup := r.Group("/programs")
	programGroup.Use(middleware.Auth(jwt.RoleImplementor))
	{
		programGroup.GET("", ListPrograms)
		programGroup.POST("", CreateProgram)
		programGroup.GET("/:id", GetProgram)
		programGroup.PUT("/:id", UpdateProgram)
		programGroup.DELETE("/:id", DeleteProgram)
	}

	proposalGroup := r.Group("/proposals")
	proposalGroup.Use(middleware.Auth(jwt.RoleImplementor))
	{
		proposalGroup.GET("/:id/status", GetStatus)
		proposalGroup.POST("/:id/submit", Submit)
		proposalGroup.POST("/:id/resubmit", Resubmit)
	}

	proposalGroup.Use(middleware.Auth(jwt.RoleReviewer))
	{
		proposalGroup.POST("/:id/decision", Decide)
	}

	proposalGroup.Use(middleware.Auth(jwt.RoleAdmin))
	{
		proposalGroup.POST("/:id/finalize", Finalize)
	}
}
