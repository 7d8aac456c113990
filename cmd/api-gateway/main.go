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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ripetiamo/backoffice-api/api/swagger"
	"github.com/ripetiamo/backoffice-api/internal/handler"
	"github.com/ripetiamo/backoffice-api/internal/middleware"
	"github.com/ripetiamo/backoffice-api/internal/models"
	"github.com/ripetiamo/backoffice-api/internal/repository"
	"github.com/ripetiamo/backoffice-api/internal/service"
	"github.com/ripetiamo/backoffice-api/pkg/cache"
	"github.com/ripetiamo/backoffice-api/pkg/config"
	"github.com/ripetiamo/backoffice-api/pkg/database"
	"github.com/ripetiamo/backoffice-api/pkg/jobs"
	"github.com/ripetiamo/backoffice-api/pkg/logger"
	corsmiddleware "github.com/ripetiamo/backoffice-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ripetiamo/backoffice-api/pkg/middleware/requestid"
	"github.com/ripetiamo/backoffice-api/pkg/storage"
)

// @title Ripetiamo Back Office API
// @version 1.0.0
// @description Tutoring back office: prepaid lesson ledger, follow-up scheduling and reporting
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	contactRepo := repository.NewContactRepository(db)
	leadCycleRepo := repository.NewLeadCycleRepository(db)
	callTypeRepo := repository.NewCallTypeRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)

	ledgerSvc := service.NewLedgerService(service.LedgerConfig{
		DefaultDurationMinutes: cfg.Ledger.DefaultDurationMinutes,
	}, logr)
	followUpSvc := service.NewFollowUpService(service.FollowUpConfig{
		DefaultOffsetDays: cfg.FollowUp.DefaultOffsetDays,
		UpcomingPageSize:  cfg.FollowUp.UpcomingPageSize,
	}, logr)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "backoffice-api",
	})
	studentSvc := service.NewStudentService(studentRepo, ledgerSvc, cacheSvc, nil, logr, nil)
	callTypeSvc := service.NewCallTypeService(callTypeRepo, nil, logr)
	bookingSvc := service.NewBookingService(bookingRepo, studentRepo, callTypeRepo, ledgerSvc, cacheSvc, metricsSvc, nil, logr, nil)
	contactSvc := service.NewContactService(contactRepo, leadCycleRepo, followUpSvc, cacheSvc, metricsSvc, nil, logr, nil)

	var dashboardSvc *service.DashboardService
	if cfg.Dashboard.Enabled {
		dashboardSvc = service.NewDashboardService(service.DashboardServiceParams{
			Contacts:  contactRepo,
			Bookings:  bookingSvc,
			Calendar:  bookingRepo,
			FollowUps: followUpSvc,
			Ledger:    ledgerSvc,
			Cache:     cacheSvc,
			Logger:    logr,
			Config: service.DashboardServiceConfig{
				CacheTTL: cfg.Dashboard.CacheTTL,
			},
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("report storage init failed", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(bookingSvc, contactSvc, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)

		worker := service.NewReportWorker(reportJobRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		reportSvc = service.NewReportService(reportJobRepo, queue, exportSvc, nil, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	contactHandler := handler.NewContactHandler(contactSvc)
	callTypeHandler := handler.NewCallTypeHandler(callTypeSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	var reportHandler *handler.ReportHandler
	if reportSvc != nil {
		reportHandler = handler.NewReportHandler(reportSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	if reportHandler != nil {
		// Download is authorized by the signed token embedded in the URL.
		api.GET("/reports/download/:token", reportHandler.Download)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)
	authed.POST("/auth/register", middleware.RequireRoles(models.RoleSuperAdmin), authHandler.Register)

	staff := authed.Group("")
	staff.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTutor))

	staff.GET("/students", studentHandler.List)
	staff.GET("/students/:id", studentHandler.Get)
	staff.GET("/students/:id/balance", studentHandler.Balance)
	staff.GET("/bookings", bookingHandler.List)
	staff.GET("/bookings/unmatched", bookingHandler.Unmatched)
	staff.GET("/bookings/:id", bookingHandler.Get)
	staff.GET("/contacts", contactHandler.List)
	staff.GET("/contacts/buckets", contactHandler.Buckets)
	staff.GET("/contacts/:id", contactHandler.Get)
	staff.GET("/call-types", callTypeHandler.List)
	staff.GET("/call-types/:slug", callTypeHandler.Get)
	if dashboardSvc != nil {
		staff.GET("/dashboard", dashboardHandler.Overview)
		staff.GET("/calendar/month", dashboardHandler.Month)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))

	admin.POST("/students", studentHandler.Create)
	admin.PUT("/students/:id", studentHandler.Update)
	admin.POST("/students/:id/top-up", studentHandler.TopUp)
	admin.POST("/bookings", bookingHandler.Create)
	admin.POST("/bookings/preview-unpaid", bookingHandler.PreviewUnpaid)
	admin.PUT("/bookings/:id", bookingHandler.Update)
	admin.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	admin.POST("/bookings/:id/complete", bookingHandler.Complete)
	admin.POST("/contacts", contactHandler.Create)
	admin.PUT("/contacts/:id", contactHandler.Update)
	admin.DELETE("/contacts/:id", contactHandler.Delete)
	admin.POST("/contacts/:id/advance", contactHandler.Advance)
	admin.POST("/contacts/:id/pause", contactHandler.Pause)
	admin.POST("/contacts/:id/resume", contactHandler.Resume)
	admin.POST("/contacts/:id/complete", contactHandler.Complete)
	admin.POST("/contacts/:id/restart-cycle", contactHandler.RestartCycle)
	admin.POST("/call-types", callTypeHandler.Create)
	admin.PUT("/call-types/:slug", callTypeHandler.Update)
	if reportHandler != nil {
		admin.POST("/reports", reportHandler.Create)
		admin.GET("/reports/:id", reportHandler.Status)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
