package reviewer

import (
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (m *ModuleReviewer) InitRouter(r *gin.RouterGroup) {
	reviewerGroup := r.Group("/reviewers")
	reviewerGroup.Use(middleware.Auth(jwt.RoleAdmin))
	{
		reviewerGroup.GET("", ListReviewers)
	}
}
