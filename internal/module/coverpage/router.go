package coverpage

import (
	"extension-portal/internal/global/jwt"
	"extension-portal/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (m *ModuleCoverPage) InitRouter(r *gin.RouterGroup) {
	coverGroup := r.Group("/cover-pages")
	coverGroup.Use(middleware.Auth(jwt.RoleImplementor))
	{
		coverGroup.GET("", ListCoverPages)
		coverGroup.POST("", CreateCoverPage)
		coverGroup.GET("/:id/file", DownloadCoverPage)
	}
}
