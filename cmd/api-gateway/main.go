package main

import (
	"context"
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

	_ "github.com/dcc-ufba/monitoria-api/api/swagger"
	"github.com/dcc-ufba/monitoria-api/internal/handler"
	"github.com/dcc-ufba/monitoria-api/internal/middleware"
	"github.com/dcc-ufba/monitoria-api/internal/models"
	"github.com/dcc-ufba/monitoria-api/internal/repository"
	"github.com/dcc-ufba/monitoria-api/internal/service"
	"github.com/dcc-ufba/monitoria-api/pkg/cache"
	"github.com/dcc-ufba/monitoria-api/pkg/config"
	"github.com/dcc-ufba/monitoria-api/pkg/database"
	"github.com/dcc-ufba/monitoria-api/pkg/export"
	"github.com/dcc-ufba/monitoria-api/pkg/jobs"
	"github.com/dcc-ufba/monitoria-api/pkg/logger"
	corsmiddleware "github.com/dcc-ufba/monitoria-api/pkg/middleware/cors"
	reqidmiddleware "github.com/dcc-ufba/monitoria-api/pkg/middleware/requestid"
	"github.com/dcc-ufba/monitoria-api/pkg/storage"
)

// @title Monitoria API
// @version 0.1.0
// @description Teaching assistantship program management
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
		logr.Sugar().Warnw("redis unavailable, ranking cache disabled", "error", err)
		redisClient = nil
	}

	documentStorage, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	urlSigner := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	vacancyRepo := repository.NewVacancyRepository(db)
	signatureRepo := repository.NewSignatureRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	selectionRepo := repository.NewSelectionRecordRepository(db)
	notificationLogRepo := repository.NewNotificationLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var sender service.Sender = service.NopSender{}
	if cfg.Notifications.Enabled {
		sender = &service.SMTPSender{
			Host:     cfg.Notifications.SMTPHost,
			Port:     cfg.Notifications.SMTPPort,
			Username: cfg.Notifications.SMTPUser,
			Password: cfg.Notifications.SMTPPassword,
			From:     cfg.Notifications.FromAddress,
		}
	}
	notifier := service.NewNotifierService(sender, notificationLogRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		MaxRetries: cfg.Notifications.WorkerRetries,
		Logger:     logr,
	}, logr)

	var scorer service.Scorer
	if cfg.Scoring.Strategy == "mean" {
		scorer = service.MeanScorer{}
	} else {
		scorer = service.WeightedScorer{
			DisciplineWeight:  cfg.Scoring.DisciplineWeight,
			SelectionWeight:   cfg.Scoring.SelectionWeight,
			CoefficientWeight: cfg.Scoring.CoefficientWeight,
		}
	}

	renderer := export.NewPDFRenderer()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "monitoria-api",
	})
	signatureSvc := service.NewSignatureService(signatureRepo, validate, logr)
	rankingSvc := service.NewRankingService(applicationRepo, cacheRepo, scorer, cfg.Ranking.CacheTTL, logr)
	projectSvc := service.NewProjectService(projectRepo, signatureSvc, userRepo, notifier, metricsSvc, validate, logr)
	applicationSvc := service.NewApplicationService(applicationRepo, projectRepo, periodRepo, rankingSvc, userRepo, notifier, metricsSvc, validate, logr)
	selectionSvc := service.NewSelectionService(projectRepo, applicationRepo, rankingSvc, selectionRepo, userRepo, renderer, documentStorage, notifier, metricsSvc, logr)
	documentSvc := service.NewDocumentService(projectRepo, applicationRepo, vacancyRepo, userRepo, renderer, documentStorage, urlSigner, logr)
	vacancySvc := service.NewVacancyService(vacancyRepo, logr)
	periodSvc := service.NewPeriodService(periodRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	projectHandler := handler.NewProjectHandler(projectSvc, rankingSvc, selectionSvc, documentSvc)
	applicationHandler := handler.NewApplicationHandler(applicationSvc, documentSvc)
	vacancyHandler := handler.NewVacancyHandler(vacancySvc)
	periodHandler := handler.NewPeriodHandler(periodSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier.Start(ctx)
	defer notifier.Stop()

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		protected := auth.Group("")
		protected.Use(middleware.JWT(authSvc))
		protected.POST("/logout", authHandler.Logout)
		protected.POST("/change-password", authHandler.ChangePassword)
		protected.GET("/me", authHandler.Me)
	}

	admin := string(models.RoleAdmin)
	professor := string(models.RoleProfessor)
	student := string(models.RoleStudent)

	projects := api.Group("/projects")
	projects.Use(middleware.JWT(authSvc))
	{
		projects.GET("", projectHandler.List)
		projects.GET("/:id", projectHandler.Get)
		projects.POST("", middleware.RBAC(professor), projectHandler.Create)
		projects.POST("/import", middleware.RBAC(admin), projectHandler.Import)
		projects.PUT("/:id", middleware.RBAC(professor), projectHandler.Update)
		projects.DELETE("/:id", middleware.RBAC(professor, admin), projectHandler.Delete)
		projects.POST("/:id/sign", middleware.RBAC(professor),
			middleware.Audit(userRepo, models.AuditActionProjectSign, "projects"), projectHandler.Sign)
		projects.POST("/:id/submit", middleware.RBAC(professor),
			middleware.Audit(userRepo, models.AuditActionProjectSubmit, "projects"), projectHandler.Submit)
		projects.POST("/:id/approve", middleware.RBAC(admin),
			middleware.Audit(userRepo, models.AuditActionProjectApprove, "projects"), projectHandler.Approve)
		projects.POST("/:id/reject", middleware.RBAC(admin),
			middleware.Audit(userRepo, models.AuditActionProjectReject, "projects"), projectHandler.Reject)
		projects.GET("/:id/ranking", middleware.RBAC(professor, admin), projectHandler.Ranking)
		projects.GET("/:id/applications", middleware.RBAC(professor, admin), applicationHandler.ListByProject)
		projects.POST("/:id/minutes", middleware.RBAC(professor, admin), projectHandler.GenerateMinutes)
		projects.POST("/:id/notify-results", middleware.RBAC(professor, admin), projectHandler.NotifyResults)
		projects.POST("/:id/proposal-document", middleware.RBAC(professor, admin), projectHandler.ProposalDocument)
	}

	applications := api.Group("/applications")
	applications.Use(middleware.JWT(authSvc))
	{
		applications.POST("", middleware.RBAC(student), applicationHandler.Apply)
		applications.GET("/mine", middleware.RBAC(student), applicationHandler.Mine)
		applications.GET("/:id", applicationHandler.Get)
		applications.POST("/:id/evaluate", middleware.RBAC(professor), applicationHandler.Evaluate)
		applications.POST("/:id/select", middleware.RBAC(professor),
			middleware.Audit(userRepo, models.AuditActionApplicationSelect, "applications"), applicationHandler.Select)
		applications.POST("/:id/reject", middleware.RBAC(professor), applicationHandler.Reject)
		applications.POST("/:id/respond", middleware.RBAC(student),
			middleware.Audit(userRepo, models.AuditActionApplicationRespond, "applications"), applicationHandler.Respond)
		applications.POST("/:id/commitment-term", applicationHandler.CommitmentTerm)
	}

	vacancies := api.Group("/vacancies")
	vacancies.Use(middleware.JWT(authSvc))
	{
		vacancies.GET("", vacancyHandler.List)
	}

	periods := api.Group("/periods")
	periods.Use(middleware.JWT(authSvc))
	{
		periods.GET("", periodHandler.List)
		periods.GET("/current", periodHandler.Current)
		periods.POST("", middleware.RBAC(admin), periodHandler.Create)
		periods.PUT("/:id", middleware.RBAC(admin), periodHandler.Update)
	}

	// Downloads are authorized by the signed token itself.
	api.GET("/documents/download", documentHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
