package app

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"supplement-scout/internal/common/logging"
	"supplement-scout/internal/config"
)

// Run is the main entry point for the application
func Run() error {
	// Load environment variables
	_ = godotenv.Load()

	runtime.GOMAXPROCS(runtime.NumCPU())

	// Initialize logging
	logging.InitGlobalLogger()
	defer logging.MustSync()

	logging.Info("Starting supplement scout",
		logging.Field{Key: "cpus", Value: runtime.NumCPU()},
	)

	// Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	// Initialize application
	app, err := New(cfg)
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}
	defer app.Cleanup()

	app.Dispatcher.Start(context.Background())
	logging.Info("Dispatcher: Started",
		logging.Field{Key: "workers", Value: cfg.WorkerCount},
		logging.Field{Key: "queue_size", Value: cfg.JobQueueSize},
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down...")

	// Graceful drain: queued jobs finish, new submits are rejected
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Dispatcher.Stop(ctx); err != nil {
		logging.Warn("Dispatcher did not drain cleanly", logging.Field{Key: "error", Value: err.Error()})
	}

	logging.Info("Exited")
	return nil
}
