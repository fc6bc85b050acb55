package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dhruvshibhare/droulette/internal/core/services"
	httphandlers "github.com/dhruvshibhare/droulette/internal/handlers/http"
	"github.com/dhruvshibhare/droulette/internal/infrastructure/middleware"
	"github.com/dhruvshibhare/droulette/internal/infrastructure/monitoring"
	"github.com/dhruvshibhare/droulette/internal/infrastructure/repositories"
	signalws "github.com/dhruvshibhare/droulette/internal/infrastructure/signal"
	"github.com/dhruvshibhare/droulette/pkg/config"
	"github.com/dhruvshibhare/droulette/pkg/logger"
	"github.com/dhruvshibhare/droulette/pkg/tracing"
)

func main() {
	cfg := config.LoadFirst(
		"configs/config.yaml",
		"/etc/droulette/config.yaml",
		"config.yaml",
	)

	// Initialize logger
	zapLogger := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := logger.Named(zapLogger, "signal")

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "droulette-signal",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: os.Getenv("DROULETTE_ENV"),
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	waitingPool := repoFactory.CreateWaitingPoolRepository()
	roomRepo := repoFactory.CreateRoomRepository()

	// Initialize services
	matchmaker := services.NewMatchmaker(waitingPool, roomRepo, log)

	// Initialize monitoring
	var collector *monitoring.PrometheusCollector
	if cfg.Monitoring.PrometheusEnabled {
		collector = monitoring.NewPrometheusCollector()
	}

	// Initialize signaling server
	wsOpts := signalws.ServerOptions{
		PingInterval: cfg.Signal.PingInterval,
		PongTimeout:  cfg.Signal.PongTimeout,
		WriteTimeout: cfg.Signal.WriteTimeout,
	}
	if cfg.RateLimiting.Enabled {
		wsOpts.RateLimit = cfg.RateLimiting.WebSocket.MessagesPerSecond
		wsOpts.RateBurst = cfg.RateLimiting.WebSocket.Burst
		wsOpts.MaxMessageSize = cfg.RateLimiting.WebSocket.MaxMessageSizeBytes
	}
	wsServer := signalws.NewServer(matchmaker, collector, wsOpts, log)

	wsMux := http.NewServeMux()
	wsMux.HandleFunc(cfg.Signal.Path, wsServer.HandleWebSocket)
	signalSrv := &http.Server{
		Addr:    cfg.Signal.Address,
		Handler: wsMux,
	}

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	statusHandler := httphandlers.NewStatusHandler(matchmaker, repoFactory, wsServer)
	statusHandler.SetupRoutes(router)

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	httpSrv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 2)
	go func() {
		log.Infof("Starting signaling server on %s%s", cfg.Signal.Address, cfg.Signal.Path)
		if err := signalSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	go func() {
		log.Infof("Starting status server on %s", cfg.Server.Address)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := signalSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during signaling server shutdown", "error", err)
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during status server shutdown", "error", err)
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer", "error", err)
	}

	if err := repoFactory.Close(); err != nil {
		log.Errorw("error closing repository factory", "error", err)
	}

	log.Info("signaling server stopped")
}
