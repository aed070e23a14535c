package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncapp "github.com/mediator/backend/internal/application/sync"
	domain "github.com/mediator/backend/internal/domain/sync"
	"github.com/mediator/backend/internal/infrastructure/config"
	"github.com/mediator/backend/internal/infrastructure/fulfil"
	"github.com/mediator/backend/internal/infrastructure/logger"
	"github.com/mediator/backend/internal/infrastructure/persistence"
	"github.com/mediator/backend/internal/infrastructure/scheduler"
	"github.com/mediator/backend/internal/infrastructure/shiphero"
	"github.com/mediator/backend/internal/interfaces/http/handler"
	"github.com/mediator/backend/internal/interfaces/http/middleware"
	"github.com/mediator/backend/internal/interfaces/http/router"
)

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
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("mode", cfg.Sync.Mode),
	)

	// Initialize database connection
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	cursorRepo := persistence.NewGormCursorRepository(db.DB)
	tokenRepo := persistence.NewGormTokenRepository(db.DB)
	settingRepo := persistence.NewGormSettingRepository(db.DB, domain.Settings{
		PollInterval:   cfg.Sync.PollInterval,
		PageSize:       cfg.Sync.PageSize,
		MaxRetries:     cfg.Sync.MaxRetries,
		BaseRetryDelay: cfg.Sync.BaseRetryDelay,
		Mode:           domain.Mode(cfg.Sync.Mode),
	})

	// Source gateway (catalog API) with live and test tenant credentials
	sourceClient, err := fulfil.NewClient(&fulfil.Config{
		BaseURL:        cfg.Source.BaseURL,
		TimeoutSeconds: int(cfg.Source.Timeout / time.Second),
		Live: fulfil.Credentials{
			Subdomain: cfg.Source.Live.Subdomain,
			APIKey:    cfg.Source.Live.APIKey,
		},
		Test: fulfil.Credentials{
			Subdomain: cfg.Source.Test.Subdomain,
			APIKey:    cfg.Source.Test.APIKey,
		},
	}, log)
	if err != nil {
		log.Fatal("Failed to create source client", zap.Error(err))
	}
	sourceClient.UseMode(domain.Mode(cfg.Sync.Mode))

	// Destination gateway (fulfillment API) with managed OAuth tokens
	destConfig := &shiphero.Config{
		GraphQLURL:     cfg.Destination.GraphQLURL,
		AuthURL:        cfg.Destination.AuthURL,
		TimeoutSeconds: int(cfg.Destination.Timeout / time.Second),
		TokenMargin:    cfg.Destination.TokenMargin,
		MaxRetries:     cfg.Sync.MaxRetries,
		BaseRetryDelay: cfg.Sync.BaseRetryDelay,
		Live: shiphero.Credentials{
			RefreshToken: cfg.Destination.Live.RefreshToken,
		},
		Test: shiphero.Credentials{
			RefreshToken: cfg.Destination.Test.RefreshToken,
		},
	}
	tokenManager := shiphero.NewTokenManager(destConfig, tokenRepo, log)
	destClient, err := shiphero.NewClient(destConfig, tokenManager, log)
	if err != nil {
		log.Fatal("Failed to create destination client", zap.Error(err))
	}
	destClient.UseMode(domain.Mode(cfg.Sync.Mode))

	// Sync engine and scheduler
	engine := syncapp.NewEngine(sourceClient, destClient, productRepo, cursorRepo, auditRepo, settingRepo, log)

	trigger := scheduler.NewIntervalTrigger(scheduler.IntervalTriggerConfig{
		DefaultInterval: cfg.Sync.PollInterval,
	}, engine, settingRepo, log)
	if err := trigger.Start(context.Background()); err != nil {
		log.Fatal("Failed to start sync scheduler", zap.Error(err))
	}
	defer func() {
		if err := trigger.Stop(context.Background()); err != nil {
			log.Error("Error stopping sync scheduler", zap.Error(err))
		}
	}()
	log.Info("Sync scheduler started", zap.Duration("poll_interval", cfg.Sync.PollInterval))

	statusService := syncapp.NewStatusService(productRepo, auditRepo, destClient, settingRepo, trigger, log)

	// HTTP surface
	syncHandler := handler.NewSyncHandler(engine, statusService)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ginEngine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	ginEngine.Use(middleware.RequestID())
	ginEngine.Use(logger.Recovery(log))
	ginEngine.Use(logger.GinMiddleware(log))
	ginEngine.Use(middleware.Secure())
	ginEngine.Use(middleware.CORS())

	r := router.NewRouter(ginEngine, router.WithAPIVersion("v1"))
	r.Register(syncHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
