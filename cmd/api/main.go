package main

// @title Route Composer API
// @version 1.0.0
// @description Сервис построения многоэтапных маршрутов по полюсам (hubs) и перифериям (satellites).
// @description
// @description Основные возможности:
// @description - Рабочие сессии: выбор локаций, полос, ручное закрепление периферий
// @description - Воздушные участки между полюсами и дорожные участки через провайдера
// @description - Кэширование ответов провайдера и маршрутов, защита квоты
// @description - Экспорт маршрута в JSON и GeoJSON

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/route-composer/docs"
	"github.com/route-composer/internal/app"
	"github.com/route-composer/internal/config"
	httpDelivery "github.com/route-composer/internal/delivery/http"
	"github.com/route-composer/internal/delivery/http/handler"
	"github.com/route-composer/internal/pkg/logger"
	"github.com/route-composer/internal/worker"
	"github.com/route-composer/internal/worker/sweeper"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Route Composer")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("catalog", cfg.Catalog.Source),
		zap.String("cache_backend", cfg.Gateway.CacheBackend),
	)

	// 3. Storage, provider gateway and use cases
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	components, err := app.Build(ctx, cfg, app.Options{}, log)
	cancel()
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer components.Close()

	var checks []httpDelivery.HealthCheck
	if components.Redis != nil {
		checks = append(checks, httpDelivery.HealthCheck{Name: "redis", Check: components.Redis.Health})
	}
	if components.DB != nil {
		checks = append(checks, httpDelivery.HealthCheck{Name: "postgres", Check: components.DB.Health})
	}

	// 4. Background cleanup of caches and idle sessions
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	workerManager := worker.NewWorkerManager(10*time.Second, log)
	workerManager.Register(sweeper.NewCacheSweeper(cfg.Route.SweepInterval, log, components.SweepTargets...))
	if err := workerManager.Start(workerCtx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 5. HTTP server
	server := httpDelivery.NewServer(
		cfg,
		log,
		handler.NewSessionHandler(components.Sessions, log),
		handler.NewRouteHandler(components.Routes, components.Defaults, log),
		handler.NewGatewayHandler(components.Gateway, log),
		checks...,
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	stopWorkers()
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
