package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	bulkapp "github.com/adsync/backend/internal/application/bulk"
	campaignapp "github.com/adsync/backend/internal/application/campaign"
	syncapp "github.com/adsync/backend/internal/application/sync"
	webhookapp "github.com/adsync/backend/internal/application/webhook"
	"github.com/adsync/backend/internal/domain/shared"
	"github.com/adsync/backend/internal/domain/webhook"
	"github.com/adsync/backend/internal/infrastructure/cache"
	"github.com/adsync/backend/internal/infrastructure/config"
	"github.com/adsync/backend/internal/infrastructure/event"
	"github.com/adsync/backend/internal/infrastructure/lock"
	"github.com/adsync/backend/internal/infrastructure/logger"
	"github.com/adsync/backend/internal/infrastructure/notify"
	"github.com/adsync/backend/internal/infrastructure/persistence"
	"github.com/adsync/backend/internal/infrastructure/platform"
	"github.com/adsync/backend/internal/infrastructure/retry"
	"github.com/adsync/backend/internal/infrastructure/storage"
	"github.com/adsync/backend/internal/infrastructure/telemetry"
	"github.com/adsync/backend/internal/interfaces/http/handler"
	"github.com/adsync/backend/internal/interfaces/http/middleware"
	"github.com/adsync/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// Optionally tee log entries into the OTLP pipeline
	logsProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize logs provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := logsProvider.Shutdown(ctx); err != nil {
			log.Error("failed to shutdown logs provider", zap.Error(err))
		}
	}()
	if logsProvider.IsEnabled() {
		log = telemetry.BridgeLogger(log, logsProvider, cfg.Telemetry.ServiceName, zapcore.InfoLevel)
	}

	log.Info("starting adsync backend",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	// Connect to the database with GORM logging mapped to the app log level
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", zap.Error(err))
		}
	}()

	// Repositories
	campaignRepo := persistence.NewGormCampaignRepository(db.DB)
	creativeRepo := persistence.NewGormCreativeRepository(db.DB)
	jobRepo := persistence.NewGormSyncJobRepository(db.DB)
	bindingRepo := persistence.NewGormBindingRepository(db.DB)
	bulkRepo := persistence.NewGormBulkOperationRepository(db.DB)
	webhookRepo := persistence.NewGormWebhookEventRepository(db.DB)

	// One keyed mutex guards every writer of campaign aggregates so
	// API writes, sync jobs and bulk ingests serialize per campaign
	commits := lock.NewKeyedMutex()

	// Event bus with an idempotent webhook emitter subscribed
	eventBus := event.NewInMemoryEventBus(log)

	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis)
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Warn("redis idempotency store unavailable, using in-memory store", zap.Error(err))
		idempotencyStore = storeFactory.CreateInMemoryStore()
	}

	var deliverer webhook.Deliverer
	if len(cfg.Webhook.Endpoints) > 0 {
		deliverer = notify.NewHTTPDeliverer(cfg.Webhook.Endpoints, cfg.Webhook.Timeout, log)
	} else {
		deliverer = notify.NewLoggingDeliverer(log)
	}

	emitter := webhookapp.NewEmitter(webhookRepo, deliverer, log)
	eventBus.Subscribe(event.NewIdempotentHandler(emitter, idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     cfg.Webhook.IdempotencyTTL,
			Enabled: true,
		})))

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(ctx); err != nil {
			log.Error("failed to stop event bus", zap.Error(err))
		}
	}()

	// Platform adapters. A missing credential only disables that
	// platform; the rest of the API stays up.
	adapters := platform.NewRegistry()

	kargoCfg := platform.NewKargoConfig(cfg.Kargo.APIKey)
	kargoCfg.APIBaseURL = cfg.Kargo.APIBaseURL
	kargoCfg.TimeoutSeconds = cfg.Kargo.TimeoutSeconds
	if kargoAdapter, err := platform.NewKargoAdapter(kargoCfg); err != nil {
		log.Warn("kargo adapter disabled", zap.Error(err))
	} else {
		adapters.Register(kargoAdapter)
	}

	amazonCfg := platform.NewAmazonConfig(cfg.Amazon.ClientID, cfg.Amazon.AccessToken, cfg.Amazon.ProfileID)
	amazonCfg.APIBaseURL = cfg.Amazon.APIBaseURL
	amazonCfg.TimeoutSeconds = cfg.Amazon.TimeoutSeconds
	if amazonAdapter, err := platform.NewAmazonAdapter(amazonCfg); err != nil {
		log.Warn("amazon adapter disabled", zap.Error(err))
	} else {
		adapters.Register(amazonAdapter)
	}

	retrier := retry.NewController(log)

	// Object storage for bulk sheet artifacts
	var objectStorage bulkapp.ObjectStorageService
	if cfg.Storage.Provider == "s3" {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage)
		if err != nil {
			log.Fatal("failed to initialize object storage", zap.Error(err))
		}
		objectStorage = s3Storage
	} else {
		log.Info("using in-memory object storage", zap.String("provider", cfg.Storage.Provider))
		objectStorage = storage.NewMemoryObjectStorage()
	}

	// Application services
	campaignService := campaignapp.NewService(campaignRepo, creativeRepo, bindingRepo, commits, eventBus, log)
	orchestrator := syncapp.NewOrchestrator(jobRepo, bindingRepo, campaignRepo, creativeRepo,
		adapters, retrier, commits, eventBus, log,
		cfg.Sync.MaxConcurrentJobs, cfg.Sync.JobTimeout)
	transcoder := bulkapp.NewTranscoder(bulkRepo, campaignRepo, creativeRepo, objectStorage,
		commits, eventBus, log,
		cfg.Bulk.MaxRows, cfg.Bulk.ValidationWorkers, cfg.Storage.KeyPrefix)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := orchestrator.Stop(ctx); err != nil {
			log.Error("failed to stop sync orchestrator", zap.Error(err))
		}
		if err := emitter.Stop(ctx); err != nil {
			log.Error("failed to stop webhook emitter", zap.Error(err))
		}
	}()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer provider", zap.Error(err))
		}
	}()
	if cfg.Telemetry.SpanProfiles {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Error("failed to enable span profiles", zap.Error(err))
		}
	}
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        "postgresql",
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Error("failed to register database tracing", zap.Error(err))
		}
	}

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("failed to shutdown meter provider", zap.Error(err))
		}
	}()

	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.Enabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Error("failed to register database metrics", zap.Error(err))
	} else if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(context.Background())
		defer dbMetrics.Stop()
	}

	// HTTP handlers
	campaignHandler := handler.NewCampaignHandler(campaignService)
	syncHandler := handler.NewSyncHandler(orchestrator, adapters)
	bulkHandler := handler.NewBulkHandler(transcoder)
	webhookHandler := handler.NewWebhookHandler(emitter)
	systemHandler := handler.NewSystemHandler()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("failed to set trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitRequests > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
	}

	engine.GET("/health", healthHandler(db))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	campaignRoutes := router.NewDomainGroup("campaigns", "/campaigns")
	campaignRoutes.POST("", campaignHandler.Create)
	campaignRoutes.GET("", campaignHandler.List)
	campaignRoutes.GET("/:id", campaignHandler.GetByID)
	campaignRoutes.PUT("/:id", campaignHandler.Update)
	campaignRoutes.DELETE("/:id", campaignHandler.Archive)
	campaignRoutes.POST("/:id/activate", campaignHandler.Activate)
	campaignRoutes.POST("/:id/pause", campaignHandler.Pause)
	campaignRoutes.POST("/:id/complete", campaignHandler.Complete)
	campaignRoutes.POST("/:id/creatives", campaignHandler.AddCreative)
	campaignRoutes.GET("/:id/creatives", campaignHandler.ListCreatives)
	campaignRoutes.GET("/:id/creatives/:creative_id", campaignHandler.GetCreative)
	campaignRoutes.PUT("/:id/creatives/:creative_id/status", campaignHandler.SetCreativeStatus)
	campaignRoutes.POST("/:id/creatives/:creative_id/process", campaignHandler.ProcessCreative)
	campaignRoutes.POST("/:id/sync", syncHandler.Submit)
	campaignRoutes.GET("/:id/sync/history", syncHandler.History)
	campaignRoutes.GET("/:id/bindings", syncHandler.ListBindings)

	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.GET("/jobs/:id", syncHandler.Status)
	syncRoutes.POST("/jobs/:id/cancel", syncHandler.Cancel)
	syncRoutes.POST("/jobs/:id/retry", syncHandler.RetryFailed)
	syncRoutes.GET("/platforms", syncHandler.ListPlatforms)

	bulkRoutes := router.NewDomainGroup("bulk", "/bulk")
	bulkRoutes.POST("/sheets", bulkHandler.Generate)
	bulkRoutes.POST("/sheets/ingest", bulkHandler.Ingest)
	bulkRoutes.GET("/operations", bulkHandler.ListOperations)
	bulkRoutes.GET("/operations/:id", bulkHandler.GetOperation)
	bulkRoutes.GET("/operations/:id/artifact-url", bulkHandler.ArtifactURL)

	webhookRoutes := router.NewDomainGroup("webhooks", "/webhooks")
	webhookRoutes.GET("/events", webhookHandler.ListRecent)
	webhookRoutes.GET("/events/:id", webhookHandler.GetByID)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)

	r.Register(campaignRoutes).
		Register(syncRoutes).
		Register(bulkRoutes).
		Register(webhookRoutes).
		Register(systemRoutes)

	r.Setup()

	engine.GET("/api/v1/ping", systemHandler.Ping)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

// healthHandler reports liveness including database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.GetGinLogger(c).Error("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
