package assignment

import (
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

// InitRouter 评审人分配仅管理员可操作
func (m *ModuleAssignment) InitRouter(r *gin.RouterGroup) {
	assignmentGroup := r.Group("/assignments")
	assignmentGroup.Use(middleware.Auth(jwt.RoleAdmin))
	{
		assignmentGroup.GET("", ListAssignments)
		assignmentGroup.POST("", CreateAssignment)
		assignmentGroup.DELETE("/:id", DeleteAssignment)
		assignmentGroup.GET("/export", ExportAssignments)
	}
}
