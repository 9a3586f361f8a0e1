package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pricetracker-service/internal/bootstrap"
	"pricetracker-service/internal/domain"
	infracfg "pricetracker-service/internal/infrastructure/config"
	"pricetracker-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, cleanup, err := bootstrap.InitApp(ctx)
	if err != nil {
		logger.Fatal("bootstrap", zap.Error(err))
	}
	defer cleanup()
	cfg := app.Config

	go app.Janitor.Start(ctx)

	if cfg.TrackAutostart {
		tc, err := domain.NewTrackingConfig(cfg.TrackAssets, cfg.TrackIntervalSeconds)
		if err != nil {
			logger.Fatal("tracking config", zap.Error(err))
		}
		if err := app.Scheduler.Start(tc); err != nil {
			logger.Fatal("start tracking", zap.Error(err))
		}
	}

	port := cfg.Port
	if port == "" {
		port = infracfg.DefaultHTTPPort
	}
	addr := ":" + port
	server := &http.Server{Addr: addr, Handler: app.Handler}
	go func() {
		logger.Info("server started", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = infracfg.DefaultShutdownTimeout
	}
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), timeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	app.Scheduler.Stop()
	cancel()
	logger.Info("server stopped")
}
