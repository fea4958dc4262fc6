package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/classtrackhq/classtrack-api/api/swagger"
	"github.com/classtrackhq/classtrack-api/internal/handler"
	"github.com/classtrackhq/classtrack-api/internal/middleware"
	"github.com/classtrackhq/classtrack-api/internal/repository"
	"github.com/classtrackhq/classtrack-api/internal/service"
	"github.com/classtrackhq/classtrack-api/pkg/cache"
	"github.com/classtrackhq/classtrack-api/pkg/config"
	"github.com/classtrackhq/classtrack-api/pkg/database"
	"github.com/classtrackhq/classtrack-api/pkg/jobs"
	"github.com/classtrackhq/classtrack-api/pkg/logger"
	corsmiddleware "github.com/classtrackhq/classtrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classtrackhq/classtrack-api/pkg/middleware/requestid"
	"github.com/classtrackhq/classtrack-api/pkg/storage"
)

// @title ClassTrack API
// @version 1.0.0
// @description Class session scheduling and attendance tracking
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	classRepo := repository.NewClassRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "classtrack-api",
	})
	generatorService := service.NewSessionGeneratorService(classRepo, semesterRepo, sessionRepo, classRepo, validate, logr)
	classService := service.NewClassService(classRepo, generatorService, validate, logr)
	sessionService := service.NewSessionService(sessionRepo, validate, logr)
	semesterService := service.NewSemesterService(semesterRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, classRepo, studentRepo, validate, logr)
	attendanceService := service.NewAttendanceService(
		studentRepo, enrollmentRepo, sessionRepo, attendanceRepo, cacheRepo,
		validate, logr, service.AttendanceConfig{
			StudentCacheTTL: cfg.Scanner.StudentCacheTTL,
			SummaryCacheTTL: cfg.Scanner.SummaryCacheTTL,
		})

	exportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	var reportService *service.ReportService
	reportQueue := jobs.NewQueue("reports", func(ctx context.Context, job jobs.Job) error {
		return reportService.Process(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportService = service.NewReportService(
		reportJobRepo, attendanceRepo, classRepo, reportQueue,
		exportStorage, signer, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
		})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reportQueue.Start(ctx)
	defer reportQueue.Stop()
	if err := reportService.RecoverPendingJobs(ctx); err != nil {
		logr.Warn("report job recovery failed", zap.Error(err))
	}
	reportService.StartCleanup(ctx)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Semester:   handler.NewSemesterHandler(semesterService),
		Student:    handler.NewStudentHandler(studentService),
		Class:      handler.NewClassHandler(classService),
		Session:    handler.NewSessionHandler(sessionService),
		Enrollment: handler.NewEnrollmentHandler(enrollmentService),
		Attendance: handler.NewAttendanceHandler(attendanceService, metrics),
		Report:     handler.NewReportHandler(reportService),
		Metrics:    handler.NewMetricsHandler(metrics),
	}
	handler.RegisterRoutes(r, cfg.APIPrefix, authService, handlers)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
