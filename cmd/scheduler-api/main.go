package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/k1035130/course-scheduler-api/api/swagger"
	"github.com/k1035130/course-scheduler-api/internal/handler"
	"github.com/k1035130/course-scheduler-api/internal/middleware"
	"github.com/k1035130/course-scheduler-api/internal/models"
	"github.com/k1035130/course-scheduler-api/internal/repository"
	"github.com/k1035130/course-scheduler-api/internal/service"
	"github.com/k1035130/course-scheduler-api/pkg/cache"
	"github.com/k1035130/course-scheduler-api/pkg/config"
	"github.com/k1035130/course-scheduler-api/pkg/database"
	"github.com/k1035130/course-scheduler-api/pkg/export"
	"github.com/k1035130/course-scheduler-api/pkg/jobs"
	"github.com/k1035130/course-scheduler-api/pkg/logger"
	corsmiddleware "github.com/k1035130/course-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/k1035130/course-scheduler-api/pkg/middleware/requestid"
)

// @title Course Scheduler API
// @version 1.0.0
// @description Section assignment and conflict resolution for course timetables
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional: without it every schedule request is computed fresh.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, result caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	catalogRepo := repository.NewCatalogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	catalogSvc := service.NewCatalogService(catalogRepo, validate, logr)
	if err := catalogSvc.Load(context.Background()); err != nil {
		logr.Sugar().Fatalw("failed to load catalog", "error", err)
	}

	schedulerSvc := service.NewSchedulerService(catalogSvc, cacheRepo, metricsSvc, logr, service.SchedulerConfig{
		MaxOptionsPerCourse:  cfg.Scheduler.MaxOptionsPerCourse,
		ContinuousGapMinutes: cfg.Scheduler.ContinuousGapMinutes,
		ResultCacheTTL:       cfg.Scheduler.ResultCacheTTL,
	})
	exportSvc := service.NewExportService(export.NewCSVExporter(), export.NewPDFExporter(), validate, logr, cfg.Exports.MaxEntries)

	reloadQueue := jobs.NewQueue("catalog", func(ctx context.Context, job jobs.Job) error {
		if err := catalogSvc.Load(ctx); err != nil {
			return err
		}
		if err := cacheRepo.DeleteByPattern(ctx, "schedule:*"); err != nil {
			logr.Warn("failed to invalidate cached schedules after reload", zap.Error(err))
		}
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.Catalog.ReloadWorkers,
		MaxRetries: cfg.Catalog.ReloadRetries,
		Logger:     logr,
	})
	reloadQueue.Start(context.Background())
	defer reloadQueue.Stop()

	scheduleHandler := handler.NewScheduleHandler(schedulerSvc, exportSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc, reloadQueue)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/schedule", scheduleHandler.Schedule)
		if cfg.Exports.Enabled {
			api.POST("/schedule/export", scheduleHandler.Export)
		}
		api.GET("/courses", catalogHandler.ListCourses)
		api.GET("/catalog/health", catalogHandler.Health)
		api.POST("/catalog/reload",
			middleware.JWT(cfg.JWT.Secret),
			middleware.RequireRole(models.RoleAdmin),
			catalogHandler.Reload)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
