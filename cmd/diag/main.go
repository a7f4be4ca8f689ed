package main

import (
	"context"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"callview/internal/core/domain"
	"callview/internal/core/services"
	httphandlers "callview/internal/handlers/http"
	"callview/internal/infrastructure/middleware"
	"callview/internal/infrastructure/monitoring"
	"callview/internal/infrastructure/signal"
	"callview/internal/statefulclient"
	"callview/pkg/config"
	"callview/pkg/logger"
	"callview/pkg/tracing"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func main() {
	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/callview/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "callview",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	userID := domain.UserID(envOr("CALLVIEW_USER_ID", "local-user"))
	displayName := envOr("CALLVIEW_DISPLAY_NAME", "Local User")
	callID := domain.CallID(envOr("CALLVIEW_CALL_ID", "lobby"))

	// Stateful client with coalesced notifications
	client := statefulclient.New(userID, displayName,
		statefulclient.WithLogger(zapLogger),
		statefulclient.WithNotifyLimit(rate.Limit(cfg.Notify.RatePerSecond), cfg.Notify.Burst),
	)

	collector := monitoring.NewPrometheusCollector()
	unsubscribe := client.OnStateChange(func(state *domain.CallClientState) {
		collector.RecordNotification(state.Generation)
	})
	defer unsubscribe()

	// Join token for the state feed dial
	tokenService := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JoinTokenTTL)
	joinToken, err := tokenService.GenerateJoinToken(userID, callID, displayName)
	if err != nil {
		log.Fatalw("failed to mint join token", "error", err)
	}

	feed := signal.NewStateFeed(client, cfg.Feed.URL, joinToken,
		signal.WithFeedLogger(zapLogger),
		signal.WithFeedMetrics(collector),
		signal.WithKeepalive(cfg.Feed.PingInterval, cfg.Feed.PongTimeout),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Keep the feed alive until shutdown; Run returns on disconnect.
	go func() {
		for {
			if err := feed.Run(rootCtx); err != nil && rootCtx.Err() == nil {
				log.Warnw("state feed stopped, reconnecting", "error", err)
			}
			select {
			case <-rootCtx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()

	health := monitoring.NewHealthChecker()
	health.AddCheck("feed", func(ctx context.Context) (bool, error) {
		return feed.IsConnected(), nil
	}, 2*time.Second)

	diagHandler := httphandlers.NewDiagHandler(client, health, cfg.Gallery.MaxVisibleTiles, collector)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TracingMiddleware(logger.NewContextLogger(zapLogger)))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	diagHandler.SetupRoutes(router)

	srv := &http.Server{
		Addr:         cfg.Diag.Address,
		Handler:      router,
		ReadTimeout:  cfg.Diag.ReadTimeout,
		WriteTimeout: cfg.Diag.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting callview diag server on %s", cfg.Diag.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	ossignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down callview diag server...")
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Diag.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}

	log.Info("callview diag server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
