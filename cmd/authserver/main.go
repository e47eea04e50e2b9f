package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Mathew-Seliverstov/projectAuthServer/config"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/app"
	"github.com/Mathew-Seliverstov/projectAuthServer/internal/lib/logger/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const (
	_shutdownPeriod      = 15 * time.Second
	_readinessDrainDelay = 5 * time.Second
)

var isShuttingDown atomic.Bool

func main() {
	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	log.Info("authserver", "env", cfg.Env)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(rootCtx, log, cfg)
	if err != nil {
		panic(err)
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTP.Port)
		application.HTTPServer.MustRun()
	}()

	// Waiting for SIGINT (pkill -2) or SIGTERM
	<-rootCtx.Done()
	stop()

	isShuttingDown.Store(true)
	log.Info("received shutdown signal, shutting down gracefully")

	// Give time for readiness check to propagate
	time.Sleep(_readinessDrainDelay)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), _shutdownPeriod)
	defer cancel()

	if err := application.HTTPServer.Stop(shutdownCtx); err != nil {
		log.Error("stopping http server", sl.Err(err))
	}

	if err := application.Stop(); err != nil {
		log.Error("closing storage", sl.Err(err))
	}

	log.Info("server shut down gracefully")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
