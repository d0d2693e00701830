package server

import (
	"context"
	"extension-portal/config"
	"extension-portal/internal/global/cache"
	"extension-portal/internal/global/database"
	"extension-portal/internal/global/logger"
	"extension-portal/internal/global/middleware"
	"extension-portal/internal/global/sentry"
	"extension-portal/internal/global/storage"
	"extension-portal/internal/module"
	"extension-portal/tools"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

var log *slog.Logger

func Init() {
	config.Init()
	log = logger.New("Server")

	if err := sentry.Init(); err != nil {
		log.Error("Sentry 初始化失败", "error", err)
	}

	database.Init()

	ctx := context.Background()
	if err := cache.Init(ctx); err != nil {
		// 没有 Redis 时吊销检查改为查库
		log.Error("Redis 初始化失败", "error", err)
	}
	tools.PanicOnErr(storage.Init(ctx))

	InitModules()
}

// InitModules 初始化各业务模块
func InitModules() {
	if log == nil {
		log = logger.New("Server")
	}
	for _, m := range module.Modules {
		log.Info(fmt.Sprintf("Init Module: %s", m.GetName()))
		m.Init()
	}
}

// NewRouter 组装中间件和全部模块路由
func NewRouter() *gin.Engine {
	cfg := config.Get()
	gin.SetMode(string(cfg.Mode))
	r := gin.New()

	r.Use(sentry.Middleware())
	r.Use(middleware.SentryEnrichIP())
	switch cfg.Mode {
	case config.ModeRelease:
		r.Use(middleware.Logger(logger.Get()))
	case config.ModeDebug:
		r.Use(gin.Logger())
	}
	r.Use(middleware.Cors())
	r.Use(middleware.Recovery())

	group := r.Group("/" + cfg.Prefix)
	for _, m := range module.Modules {
		m.InitRouter(group)
	}
	return r
}

func Run() {
	r := NewRouter()
	defer sentry.Flush(2 * time.Second)

	addr := config.Get().Host + ":" + config.Get().Port
	log.Info("Server started", "addr", addr, "prefix", config.Get().Prefix)
	err := r.Run(addr)
	tools.PanicOnErr(err)
}
