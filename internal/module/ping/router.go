package ping

import (
	"extension-portal/internal/global/cache"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/response"

	"github.com/gin-gonic/gin"
)

const version = "1.0.0"

func (p *ModulePing) InitRouter(r *gin.RouterGroup) {
	r.GET("/ping", Ping)
}

// Ping 存活检查，顺带报告数据库和 Redis 是否可用
func Ping(c *gin.Context) {
	ctx := c.Request.Context()
	result := map[string]any{
		"message":  "pong",
		"version":  version,
		"database": "ok",
		"redis":    "disabled",
	}
	if sqlDB, err := database.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		log.Warn("数据库不可用", "error", err)
		result["database"] = "unavailable"
	}
	if cache.Client != nil {
		result["redis"] = "ok"
		if err := cache.Client.Ping(ctx).Err(); err != nil {
			log.Warn("Redis 不可用", "error", err)
			result["redis"] = "unavailable"
		}
	}
	response.Success(c, result)
}
