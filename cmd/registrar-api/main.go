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

	_ "github.com/noah-isme/uni-registrar-api/api/swagger"
	"github.com/noah-isme/uni-registrar-api/internal/handler"
	"github.com/noah-isme/uni-registrar-api/internal/middleware"
	"github.com/noah-isme/uni-registrar-api/internal/models"
	"github.com/noah-isme/uni-registrar-api/internal/repository"
	"github.com/noah-isme/uni-registrar-api/internal/service"
	"github.com/noah-isme/uni-registrar-api/pkg/cache"
	"github.com/noah-isme/uni-registrar-api/pkg/config"
	"github.com/noah-isme/uni-registrar-api/pkg/database"
	"github.com/noah-isme/uni-registrar-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-registrar-api/pkg/middleware/requestid"
)

// @title University Registrar API
// @version 0.1.0
// @description Course enrollment and waitlist promotion service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	termRepo := repository.NewTermRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)
	tokenSvc := service.NewTokenService(cfg.JWT)
	termSvc := service.NewTermService(termRepo, validate, logr)
	eligibilitySvc := service.NewEligibilityService(enrollmentRepo, courseRepo, time.Now, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, cfg.Notifications, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, waitlistRepo, sectionRepo, studentRepo, termSvc, eligibilitySvc, notificationSvc, cacheSvc, metricsSvc, validate, logr)
	waitlistSvc := service.NewWaitlistService(waitlistRepo, sectionRepo, notificationSvc, cacheSvc, metricsSvc, validate, logr)

	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	termHandler := handler.NewTermHandler(termSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	waitlistHandler := handler.NewWaitlistHandler(waitlistSvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	api.GET("/enroll", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.Overview)
	api.POST("/enroll", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.Enroll)

	api.GET("/waitlists", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), waitlistHandler.List)
	api.POST("/waitlists", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), waitlistHandler.Act)

	api.GET("/terms", termHandler.List)
	api.GET("/terms/current", termHandler.Current)
	api.POST("/terms", middleware.RequireRoles(models.RoleAdmin), termHandler.Create)
	api.PUT("/terms/:id", middleware.RequireRoles(models.RoleAdmin), termHandler.Update)
	api.PUT("/terms/:id/activate", middleware.RequireRoles(models.RoleAdmin), termHandler.Activate)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
