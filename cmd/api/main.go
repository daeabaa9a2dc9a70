package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/api/router"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/app/bootstrap"
	appconfig "github.com/yaronhayo/contractor-clone-craft-sub000/internal/config"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/observability/metrics"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/relay"
	"github.com/yaronhayo/contractor-clone-craft-sub000/pkg/logging"
)

func main() {
	// Local development convenience; production reads real env vars.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting lead relay API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	location, err := time.LoadLocation(cfg.TimestampZone)
	if err != nil {
		logger.Warn("invalid timestamp zone, using UTC", "zone", cfg.TimestampZone, "error", err)
		location = time.UTC
	}

	registry := prometheus.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(registry)

	sender := bootstrap.BuildEmailSender(ctx, cfg, logger)
	verifier := bootstrap.BuildVerifier(cfg, logger)
	limiter := bootstrap.BuildLimiter(ctx, cfg, logger)

	relayHandler := relay.NewHandler(relay.Config{
		FromEmail:       cfg.EmailFrom,
		FromName:        cfg.EmailFromName,
		ToEmail:         cfg.EmailTo,
		DispatchTimeout: cfg.DispatchTimeout,
		Location:        location,
	}, sender, verifier, limiter, relayMetrics, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		RelayHandler:       relayHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminAuthSecret:    cfg.AdminJWTSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
