package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/backoffice/installments/docs"
	appinstallment "github.com/backoffice/installments/internal/application/installment"
	"github.com/backoffice/installments/internal/domain/installment"
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/backoffice/installments/internal/infrastructure/cache"
	"github.com/backoffice/installments/internal/infrastructure/config"
	"github.com/backoffice/installments/internal/infrastructure/event"
	"github.com/backoffice/installments/internal/infrastructure/logger"
	"github.com/backoffice/installments/internal/infrastructure/migration"
	"github.com/backoffice/installments/internal/infrastructure/persistence"
	"github.com/backoffice/installments/internal/infrastructure/scheduler"
	"github.com/backoffice/installments/internal/infrastructure/telemetry"
	"github.com/backoffice/installments/internal/interfaces/http/handler"
	"github.com/backoffice/installments/internal/interfaces/http/middleware"
	"github.com/backoffice/installments/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

//	@title			Installments API
//	@version		1.0
//	@description	Installment obligations and multi-method payment reconciliation

//	@contact.name	Back Office Team

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
		Env:        cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Telemetry: traces, metrics, log export and continuous profiling
	collector := telemetry.Endpoint{
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
	}
	identity := telemetry.ServiceIdentity{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.App.Version,
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Endpoint:        collector,
		ServiceIdentity: identity,
		Enabled:         cfg.Telemetry.Enabled,
		SamplingRatio:   cfg.Telemetry.SamplingRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Endpoint:        collector,
		ServiceIdentity: identity,
		Enabled:         cfg.Telemetry.MetricsEnabled,
		ExportInterval:  cfg.Telemetry.MetricsExportInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Endpoint:        collector,
		ServiceIdentity: identity,
		Enabled:         cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdown(log, "logger provider", loggerProvider.Shutdown)
	log = telemetry.BridgeLogger(log, loggerProvider, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.PyroscopeAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.PyroscopeUser,
		BasicAuthPassword: cfg.Telemetry.PyroscopePassword,
		ProfileTypes:      cfg.Telemetry.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if cfg.Telemetry.SpanProfilesEnabled && profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	log.Info("Starting installments service",
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
		zap.Bool("tracing", tracerProvider.IsEnabled()),
		zap.Bool("metrics", meterProvider.IsEnabled()),
	)

	// Initialize database connection with a zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.ParseGormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := migrateSchema(ctx, cfg, db, log); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	dbSystem := "postgresql"
	if db.Driver() == persistence.DriverSQLite {
		dbSystem = "sqlite"
	}
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, dbMetricsCfg, log)
	if err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		defer func() { _ = dbMetrics.Close() }()
	}

	// Idempotency store for payment submissions and event redelivery
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(
		cfg.Reconciliation.IdempotencyBackend,
		cfg.Redis,
		cache.WithLogger(log),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Event serialization and the transactional outbox
	eventSerializer := event.NewInstallmentEventSerializer()
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	repoOpts := []persistence.ObligationRepositoryOption{}
	if cfg.Event.OutboxEnabled {
		repoOpts = append(repoOpts, persistence.WithEventWriter(
			event.NewOutboxPublisher(eventSerializer, event.WithMaxRetries(cfg.Event.MaxRetries))))
	}
	obligationRepo := persistence.NewGormObligationRepository(db.DB, repoOpts...)

	// Event bus and subscribers; redelivered events are dropped by the idempotent wrapper
	eventBus := event.NewInMemoryEventBus(log)
	settlementAudit := event.NewIdempotentHandler(
		appinstallment.NewSettlementAuditHandler(log),
		idempotencyStore,
		log,
		event.WithDeliveryMeter(meterProvider.Meter("installments.events")),
	)
	eventBus.Subscribe(settlementAudit)
	log.Info("Event handlers registered",
		zap.Strings("settlement_audit_events", settlementAudit.EventTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Event.OutboxEnabled {
		outboxConfig := event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			StaleAfter:       cfg.Event.StaleAfter,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  cfg.Event.CleanupInterval,
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxConfig, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
	}

	// Application service
	location, err := cfg.Reconciliation.Location()
	if err != nil {
		log.Fatal("Invalid business time zone", zap.Error(err))
	}
	defaultCurrency, _ := valueobject.ParseCurrency(cfg.Reconciliation.DefaultCurrency)
	installmentService := appinstallment.NewService(
		obligationRepo,
		installment.NewSystemClock(location),
		appinstallment.ServiceConfig{
			DueSoonHorizonDays: cfg.Reconciliation.DueSoonHorizonDays,
			DefaultCurrency:    defaultCurrency,
			IdempotencyTTL:     cfg.Reconciliation.IdempotencyTTL,
		},
		log,
	)
	installmentService.SetIdempotencyStore(idempotencyStore)
	if !cfg.Event.OutboxEnabled {
		installmentService.SetEventPublisher(eventBus)
	}

	if meterProvider.IsEnabled() {
		installmentMetrics, err := telemetry.NewInstallmentMetrics(telemetry.InstallmentMetricsConfig{
			Meter:             meterProvider.Meter("installments"),
			Logger:            log,
			PortfolioProvider: installmentService,
		})
		if err != nil {
			log.Warn("Failed to create installment metrics", zap.Error(err))
		} else {
			installmentService.SetMetrics(installmentMetrics)
			if cfg.Reconciliation.PortfolioMetricsInterval > 0 {
				installmentMetrics.StartPeriodicCollection(ctx, cfg.Reconciliation.PortfolioMetricsInterval)
			}
			defer installmentMetrics.Stop()
		}
	}

	// Daily status sweep
	sweepConfig := scheduler.DefaultSweepTriggerConfig()
	sweepConfig.Enabled = cfg.Reconciliation.SweepEnabled
	sweepConfig.Location = location
	sweepConfig.Hour, sweepConfig.Minute, err = scheduler.ParseDailySchedule(cfg.Reconciliation.SweepSchedule)
	if err != nil {
		log.Fatal("Invalid sweep schedule", zap.Error(err))
	}
	sweepTrigger := scheduler.NewSweepTrigger(sweepConfig, installmentService, log)
	if err := sweepTrigger.Start(ctx); err != nil {
		log.Fatal("Failed to start status sweep", zap.Error(err))
	}
	defer func() {
		if err := sweepTrigger.Stop(context.Background()); err != nil {
			log.Error("Error stopping status sweep", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	installmentHandler := handler.NewInstallmentHandler(installmentService)
	systemOpts := []handler.SystemHandlerOption{
		handler.WithHealthCheck("database", db),
		handler.WithOutboxStats(outboxRepo),
		handler.WithStatusSweeper(sweepTrigger),
	}
	if pinger, ok := idempotencyStore.(handler.Pinger); ok {
		systemOpts = append(systemOpts, handler.WithHealthCheck("redis", pinger))
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, systemOpts...)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - Server spans, request attributes and 5xx marking
	// 5. Metrics and profiling labels
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.MetricsEnabled,
	}))
	profilingConfig := middleware.DefaultProfilingConfig()
	profilingConfig.Enabled = profiler.IsEnabled()
	engine.Use(middleware.ProfilingWithConfig(profilingConfig))

	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	// Swagger documentation endpoint
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.Secure())
	r.Register(router.ObligationRoutes(installmentHandler)).
		Register(router.DocumentRoutes(installmentHandler)).
		Register(router.SystemRoutes(systemHandler))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	log.Info("Server exited gracefully")
}

// migrateSchema brings the schema up to date. sqlite uses the GORM models,
// postgres runs the embedded SQL migrations.
func migrateSchema(ctx context.Context, cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	if db.Driver() == persistence.DriverSQLite {
		return db.AutoMigrate(ctx)
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	migrator, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	// closing the migrator would close the shared pool
	return migrator.Up()
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
