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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insighted/schoolprofile/internal/config"
	"github.com/insighted/schoolprofile/internal/database"
	"github.com/insighted/schoolprofile/internal/handlers"
	"github.com/insighted/schoolprofile/internal/logger"
	"github.com/insighted/schoolprofile/internal/metrics"
	"github.com/insighted/schoolprofile/internal/reference"
	"github.com/insighted/schoolprofile/internal/repository"
	"github.com/insighted/schoolprofile/internal/services"
	"github.com/insighted/schoolprofile/internal/tracing"
)

const (
	shutdownTimeout = 30 * time.Second
	warmupTimeout   = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env, logger.WithLevel(cfg.Log.Level))
	log.Info("Starting school profile API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"store":       cfg.Store.Driver,
	})

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Server.Env, log, tracing.WithVersion(handlers.APIVersion))
	if err != nil {
		log.Fatal("Failed to initialize tracing", err, nil)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open profile store", err, map[string]interface{}{
			"driver": cfg.Store.Driver,
		})
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		log.Fatal("Failed to apply schema", err, nil)
	}

	// Reference data is optional at startup: profile endpoints work without it.
	source, err := reference.NewSource(ctx, cfg.Reference.Source, reference.S3Config{
		Region:    cfg.Reference.S3Region,
		Endpoint:  cfg.Reference.S3Endpoint,
		PathStyle: cfg.Reference.S3PathStyle,
	})
	if err != nil {
		log.Fatal("Invalid reference source", err, map[string]interface{}{
			"source": cfg.Reference.Source,
		})
	}
	loader := reference.NewLoader(source, log, reference.WithOnLoad(func(st reference.Status) {
		m.SetReferenceRows(st.Rows)
	}))
	warmCtx, cancelWarm := context.WithTimeout(ctx, warmupTimeout)
	if _, err := loader.Index(warmCtx); err != nil {
		log.Warn("Reference dataset unavailable; school lookup disabled until reload", map[string]interface{}{
			"source": source.Name(),
			"error":  err.Error(),
		})
	}
	cancelWarm()

	// Initialize service layer
	referenceService := services.NewReferenceService(loader, m, log)
	profileService := services.NewProfileService(store, m, log,
		services.WithActivityPageSize(cfg.Activity.PageSize))

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.Tracing.ServiceName
	}
	router := handlers.NewRouter(handlers.RouterConfig{
		Logger:           log,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		CORSOrigins:      cfg.CORS.Origins,
		ServiceName:      serviceName,
		Health:           handlers.NewHealthHandler(store, loader.Status, cfg.Server.Env),
		ReferenceService: referenceService,
		ProfileService:   profileService,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", err, nil)
	}

	log.Info("Server exited", nil)
}

// openStore connects the profile store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.ProfileStore, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("SQLite store opened", map[string]interface{}{
			"path": cfg.Store.SQLitePath,
		})
		return repository.NewSQLiteStore(db), nil
	default:
		db, err := database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		log.Info("Database connection established", map[string]interface{}{
			"host":     cfg.Database.Host,
			"port":     cfg.Database.Port,
			"database": cfg.Database.Name,
			"pool_min": cfg.Database.PoolMin,
			"pool_max": cfg.Database.PoolMax,
		})
		return repository.NewPostgresStore(db.Pool), nil
	}
}
