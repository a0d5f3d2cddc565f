package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jengzang/regps-supervision-go/internal/config"
	"github.com/jengzang/regps-supervision-go/internal/handler"
	"github.com/jengzang/regps-supervision-go/internal/middleware"
)

// Handlers bundles the HTTP handlers mounted by SetupRouter
type Handlers struct {
	Supervision  *handler.SupervisionHandler
	DailyMetrics *handler.DailyMetricsHandler
	Segments     *handler.SegmentHandler
	Tasks        *handler.AnalysisTaskHandler
	Health       *handler.HealthHandler
}

// SetupRouter 设置路由. limiter may be nil to disable rate limiting.
func SetupRouter(cfg *config.Config, h Handlers, limiter *middleware.RateLimiter, log *logrus.Entry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	if limiter != nil {
		r.Use(middleware.RateLimit(limiter))
	}

	// 健康检查
	r.GET("/health", h.Health.Health)

	// API 路由组
	api := r.Group("/api/v1")
	if cfg.AuthEnabled {
		api.Use(middleware.Auth(cfg.JWTSecret))
	}
	{
		api.POST("/predict/eta", h.Supervision.PredictETA)
		api.POST("/detect/anomaly", h.Supervision.DetectAnomaly)
		api.POST("/classify/behavior", h.Supervision.ClassifyBehavior)
		api.POST("/verify/geofence", h.Supervision.VerifyGeofence)

		api.GET("/metrics/daily", h.DailyMetrics.List)

		// 批处理结果
		api.GET("/segments", h.Segments.GetSegments)
		api.GET("/segments/:id", h.Segments.GetSegmentByID)
		api.GET("/anomalies", h.Segments.GetAnomalyEvents)

		// 批处理任务
		tasks := api.Group("/analysis/tasks")
		{
			tasks.POST("", h.Tasks.CreateTask)
			tasks.GET("", h.Tasks.ListTasks)
			tasks.GET("/:id", h.Tasks.GetTask)
			tasks.DELETE("/:id", h.Tasks.CancelTask)
		}
	}

	return r
}
