package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/route-composer/internal/app"
	"github.com/route-composer/internal/config"
	"github.com/route-composer/internal/pkg/logger"
	redisRepo "github.com/route-composer/internal/repository/redis"
	"github.com/route-composer/internal/worker"
	"github.com/route-composer/internal/worker/route"
	"github.com/route-composer/internal/worker/sweeper"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Route Compute Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int64("batch_size", cfg.Worker.BatchSize),
		zap.Int("max_retries", cfg.Worker.MaxRetries))

	// 3. Redis (streams), catalog, provider gateway and use cases
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	components, err := app.Build(ctx, cfg, app.Options{RequireRedis: true}, log)
	cancel()
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer components.Close()

	streamRepo := redisRepo.NewStreamRepository(components.Redis.Client(), cfg.Worker.StreamReadTimeout, log)

	// 4. Workers
	workerManager := worker.NewWorkerManager(worker.DefaultShutdownTimeout, log)
	workerManager.Register(route.NewComputeWorker(
		streamRepo,
		components.Routes,
		components.Defaults,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.BatchSize,
		cfg.Worker.MaxRetries,
		cfg.Worker.ClaimIdle,
		log,
	))
	workerManager.Register(sweeper.NewCacheSweeper(cfg.Route.SweepInterval, log, components.SweepTargets...))

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	if err := workerManager.Start(workerCtx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 5. Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	stopWorkers()
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}
