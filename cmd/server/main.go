package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jengzang/regps-supervision-go/internal/analysis"
	"github.com/jengzang/regps-supervision-go/internal/api"
	"github.com/jengzang/regps-supervision-go/internal/bootstrap"
	"github.com/jengzang/regps-supervision-go/internal/config"
	"github.com/jengzang/regps-supervision-go/internal/database"
	"github.com/jengzang/regps-supervision-go/internal/handler"
	"github.com/jengzang/regps-supervision-go/internal/middleware"
	"github.com/jengzang/regps-supervision-go/internal/repository"
	"github.com/jengzang/regps-supervision-go/internal/service"

	// Import batch jobs to register them
	_ "github.com/jengzang/regps-supervision-go/internal/analysis/batch"
)

func main() {
	// 加载配置
	cfg := config.Load()

	log, err := config.ConfigureLogging("regps-supervision", cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("invalid log level")
	}

	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.DBPath}, log); err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer database.Close()
	db := database.GetDB()

	models := bootstrap.LoadModels(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profiles, closeStore := bootstrap.SpeedProfiles(ctx, cfg, db, log)
	defer closeStore()

	tasks := service.NewAnalysisTaskService(repository.NewAnalysisTaskRepository(db), analysis.Deps{
		DB:      db,
		Models:  models,
		Options: bootstrap.Options(cfg),
		Log:     log,
	})

	handlers := api.Handlers{
		Supervision: handler.NewSupervisionHandler(
			service.NewETAService(profiles, models.ETA, cfg.Timezone),
			service.NewAnomalyService(),
			service.NewBehaviorService(),
			service.NewGeofenceService(repository.NewZoneRepository(db, cfg.Timezone)),
		),
		DailyMetrics: handler.NewDailyMetricsHandler(service.NewDailyMetricsService(repository.NewDailyMetricsRepository(db))),
		Segments:     handler.NewSegmentHandler(service.NewSegmentService(
			repository.NewSegmentRepository(db),
			repository.NewAnomalyRepository(db),
		)),
		Tasks:  handler.NewAnalysisTaskHandler(tasks),
		Health: handler.NewHealthHandler(db, bootstrap.ModelsLoaded(models)),
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go limiter.Run(ctx.Done())
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(cfg, handlers, limiter, log)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		log.WithFields(logrus.Fields{
			"addr": cfg.Port,
			"auth": cfg.AuthEnabled,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}

	// let in-flight batch jobs record their final status
	tasks.Wait()
}
