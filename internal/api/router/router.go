package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pages-cd/internal/api/handler"
	"pages-cd/internal/api/middleware"
	"pages-cd/internal/pkg/config"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Build *handler.BuildHandler
	Job   *handler.JobHandler
}

// Setup 设置路由
func Setup(cfg *config.ServerConfig, handlers Handlers, logger *zap.Logger) *gin.Engine {
	// 设置Gin模式
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(logger))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("/:name/run", handlers.Job.Run)
		}

		builds := v1.Group("/builds")
		{
			builds.POST("/:id/status", handlers.Build.PublishStatus)
			builds.GET("/:id/content", handlers.Build.Content)
		}
	}

	return r
}
