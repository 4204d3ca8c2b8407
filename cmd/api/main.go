package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/genai-chat/internal/app"
	"github.com/markdave123-py/genai-chat/internal/config"
)

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	cfg, cfgErr := config.LoadConfig()
	level := "info"
	if cfg != nil {
		level = cfg.LogLevel
	}
	logger := newLogger(level)
	defer func() { _ = logger.Sync() }()

	if cfgErr != nil {
		logger.Fatal("invalid configuration", zap.Error(cfgErr))
	}

	// Handle SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close", zap.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(application.Server.Start)
	if application.Reaper != nil {
		g.Go(func() error { return application.Reaper.Start(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return application.Server.Shutdown(shutdownCtx)
	})

	logger.Info("chat service running", zap.String("backend", string(cfg.Backend)), zap.String("port", cfg.Port))
	if err := g.Wait(); err != nil {
		logger.Error("stopped with error", zap.Error(err))
	}
	logger.Info("shut down")
}
