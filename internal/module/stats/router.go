package stats

import (
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (*ModuleStats) InitRouter(r *gin.RouterGroup) {
	adminGroup := r.Group("/stats")
	adminGroup.Use(middleware.Auth(jwt.RoleAdmin))
	{
		adminGroup.GET("/overview", Overview)
		adminGroup.GET("/workload", Workload)
		adminGroup.GET("/workload/export", WorkloadExport)
	}
}
