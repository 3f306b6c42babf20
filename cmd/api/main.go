package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-dashboard/internal/config"
	dashboardHandler "github.com/jwalitptl/clinic-dashboard/internal/handler/dashboard"
	"github.com/jwalitptl/clinic-dashboard/internal/handler/health"
	"github.com/jwalitptl/clinic-dashboard/internal/loader"
	"github.com/jwalitptl/clinic-dashboard/internal/middleware"
	"github.com/jwalitptl/clinic-dashboard/internal/router"
	dashboardService "github.com/jwalitptl/clinic-dashboard/internal/service/dashboard"
	"github.com/jwalitptl/clinic-dashboard/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-dashboard/pkg/logger"
	"github.com/jwalitptl/clinic-dashboard/pkg/metrics"
)

func main() {
	// A local .env may carry DASHBOARD_* settings; real environment wins.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level := logger.ParseLevel(cfg.Log.Level)
	zerolog.SetGlobalLevel(level)
	appLogger := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05Z07:00",
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	})
	if !cfg.Log.JSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	if level > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer, cfg.Monitoring.MetricsPrefix, "data")

	// Initialize loaders
	workbookLoader := loader.NewLoader(cfg.Data, appLogger, m)
	if cfg.Data.BreakerFailures > 0 {
		workbookLoader.WithBreaker(circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "workbook",
			MaxFailures: cfg.Data.BreakerFailures,
			Timeout:     cfg.Data.BreakerTimeout,
		}))
	}
	cachedLoader := loader.NewCachedLoader(workbookLoader, loader.CacheConfig{TTL: cfg.Data.CacheTTL}, m)

	// Initialize services
	dashboardSvc := dashboardService.NewService(cachedLoader, appLogger, m)

	// Warm the cache; a missing workbook is reported but does not stop the server.
	if _, err := dashboardSvc.Summary(context.Background()); err != nil {
		appLogger.Warn("dataset not loaded at startup", "error", err.Error(), "path", cfg.Data.Path)
	}

	// Initialize handlers
	healthH := health.NewHandler(dashboardSvc, prometheus.DefaultGatherer)
	dashboardH := dashboardHandler.NewHandler(dashboardSvc)

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}

	// Setup router
	r := router.NewRouter(healthH, dashboardH, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        cfg.RateLimit.RequestsPerSecond,
		RateBurst:        cfg.RateLimit.Burst,
		CORSConfig:       corsConfig,
		CacheConfig:      middleware.DefaultCacheConfig(),
		RequestTimeout:   cfg.Server.RequestTimeout,
		MetricsPrefix:    cfg.Monitoring.MetricsPrefix,
		Registerer:       prometheus.DefaultRegisterer,
	})
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		appLogger.Info("starting server", "addr", srv.Addr, "data_path", cfg.Data.Path)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
