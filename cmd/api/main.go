package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/escolar-api/api/swagger"
	"github.com/noah-isme/escolar-api/internal/handler"
	"github.com/noah-isme/escolar-api/internal/middleware"
	"github.com/noah-isme/escolar-api/internal/repository"
	"github.com/noah-isme/escolar-api/internal/service"
	"github.com/noah-isme/escolar-api/pkg/cache"
	"github.com/noah-isme/escolar-api/pkg/config"
	"github.com/noah-isme/escolar-api/pkg/database"
	"github.com/noah-isme/escolar-api/pkg/jobs"
	"github.com/noah-isme/escolar-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/escolar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/escolar-api/pkg/middleware/requestid"
	"github.com/noah-isme/escolar-api/pkg/storage"
)

// @title Escolar API
// @version 0.1.0
// @description School administration data service
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

	db, err := database.NewSQLite(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to open database", "error", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := repository.EnsureSchema(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to apply schema", "error", err)
	}
	if !cfg.Database.SkipSeed {
		if err := repository.SeedIfEmpty(ctx, db, cfg.AdminPassword); err != nil {
			logr.Sugar().Fatalw("failed to seed database", "error", err)
		}
	}

	var cacheRepo *repository.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	lifecycleRepo := repository.NewLifecycleRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})

	var directorySvc *service.DirectoryService
	if cacheRepo != nil {
		directorySvc = service.NewDirectoryService(studentRepo, classRepo, enrollmentRepo, cacheRepo, cfg.Cache.TTL, metricsSvc, logr)
	} else {
		directorySvc = service.NewDirectoryService(studentRepo, classRepo, enrollmentRepo, nil, cfg.Cache.TTL, metricsSvc, logr)
	}

	studentSvc := service.NewStudentService(studentRepo, directorySvc, cfg.School, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, classRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, teacherRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, classRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, validate, logr)
	lifecycleSvc := service.NewLifecycleService(lifecycleRepo, authSvc, userRepo, directorySvc, metricsSvc, cfg.School, validate, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to open export archive", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(enrollmentRepo, classRepo, studentRepo, exportStore, exportSigner, cfg.APIPrefix, logr)
	snapshotSvc := service.NewSnapshotService(studentRepo, teacherRepo, classRepo, enrollmentRepo, notificationRepo, snapshotRepo, userRepo, exportStore, directorySvc, logr)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			removed, err := exportSvc.Cleanup(cfg.Exports.ResultTTL)
			if err != nil {
				logr.Sugar().Warnw("export cleanup failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				logr.Sugar().Infow("expired exports removed", "count", len(removed))
			}
		}
	}()

	dispatchQueue := jobs.NewQueue("notification-dispatch", service.DispatchHandler(logr), jobs.QueueConfig{
		Workers:    cfg.Dispatch.Workers,
		BufferSize: cfg.Dispatch.BufferSize,
		MaxRetries: cfg.Dispatch.MaxRetries,
		RetryDelay: cfg.Dispatch.RetryDelay,
		Logger:     logr,
	})
	dispatchQueue.Start(ctx)
	defer dispatchQueue.Stop()

	notificationSvc := service.NewNotificationService(notificationRepo, studentRepo, classRepo, dispatchQueue, cfg.School, validate, logr)

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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, authSvc, handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Students:      handler.NewStudentHandler(studentSvc, exportSvc),
		Teachers:      handler.NewTeacherHandler(teacherSvc),
		Classes:       handler.NewClassHandler(classSvc, directorySvc, exportSvc, enrollmentSvc),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentSvc),
		Directory:     handler.NewDirectoryHandler(directorySvc),
		Lifecycle:     handler.NewLifecycleHandler(lifecycleSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Attendance:    handler.NewAttendanceHandler(attendanceSvc),
		Admin:         handler.NewAdminHandler(snapshotSvc, metricsSvc),
		Exports:       handler.NewExportHandler(exportSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
