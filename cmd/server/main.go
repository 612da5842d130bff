package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skipsee/skipsee-backend/internal/config"
	"github.com/skipsee/skipsee-backend/internal/infrastructure/container"
	"github.com/skipsee/skipsee-backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Server, &cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize dependency injection container
	app, err := container.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize application", zap.Error(err))
	}

	app.StartHousekeeping(ctx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error("server error", zap.Error(err))
		}
	}

	// Graceful shutdown
	if err := app.Shutdown(context.Background()); err != nil {
		log.Error("shutdown error", zap.Error(err))
		os.Exit(1)
	}

	log.Info("server exited properly")
}
