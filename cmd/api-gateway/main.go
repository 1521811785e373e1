package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/uni-registrar-api/internal/dispatch"
	"github.com/noah-isme/uni-registrar-api/internal/handler"
	"github.com/noah-isme/uni-registrar-api/internal/idempotency"
	"github.com/noah-isme/uni-registrar-api/internal/metrics"
	"github.com/noah-isme/uni-registrar-api/internal/middleware"
	"github.com/noah-isme/uni-registrar-api/internal/pipeline"
	"github.com/noah-isme/uni-registrar-api/internal/query"
	"github.com/noah-isme/uni-registrar-api/internal/repository"
	"github.com/noah-isme/uni-registrar-api/internal/service"
	"github.com/noah-isme/uni-registrar-api/pkg/cache"
	"github.com/noah-isme/uni-registrar-api/pkg/clock"
	"github.com/noah-isme/uni-registrar-api/pkg/config"
	"github.com/noah-isme/uni-registrar-api/pkg/database"
	"github.com/noah-isme/uni-registrar-api/pkg/export"
	"github.com/noah-isme/uni-registrar-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-registrar-api/pkg/middleware/requestid"
)

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	now := clock.System()
	validate := validator.New()
	m := metrics.New()

	students := repository.NewStudentRepository(db, now)
	offerings := repository.NewOfferingRepository(db)
	courses := repository.NewCourseRepository(db)
	readStore := repository.NewEnrollmentReadRepository(db)

	idemStore := idempotency.NewRedisStore(redisClient, "registrar:idem", now)

	notifications := service.NewNotificationQueue(logr)
	notifications.Start(context.Background())
	defer notifications.Stop()

	dispatcher := dispatch.NewDispatcher(cfg.Registrar.DispatchRetries, logr)
	service.RegisterReactions(dispatcher, notifications, nil)

	commandPipeline := pipeline.New(
		students, offerings, courses, idemStore, dispatcher,
		pipeline.Config{
			CreditCeiling:   cfg.Registrar.CreditCeiling,
			IdempotencyTTL:  cfg.Registrar.IdempotencyTTL,
			ConflictRetries: cfg.Registrar.ConflictRetries,
		},
		validate, logr, m, now,
	)

	queries := query.NewProcessor(readStore, cfg.Registrar.DefaultPageSize, cfg.Registrar.MaxPageSize)

	registrar := service.NewRegistrarService(commandPipeline, queries, students, logr)
	transcripts := service.NewTranscriptService(queries, registrar, export.NewPDFExporter(), export.NewCSVExporter(), cfg.Registrar.TranscriptFooter, logr)

	enrollmentHandler := handler.NewEnrollmentHandler(registrar)
	studentHandler := handler.NewStudentHandler(registrar, transcripts)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(m))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group(cfg.APIPrefix)
	api.GET("/enrollments", enrollmentHandler.List)
	api.GET("/students/:id/gpa", studentHandler.GPA)
	api.GET("/students/:id/transcript", studentHandler.Transcript)

	mutations := api.Group("")
	mutations.Use(middleware.Auth(cfg.JWT))
	mutations.POST("/enrollments", enrollmentHandler.Create)
	mutations.POST("/enrollments/:id/grade", enrollmentHandler.AssignGrade)
	mutations.POST("/enrollments/:id/withdraw", enrollmentHandler.Withdraw)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
