// Package app собирает граф зависимостей, общий для API и воркера.
package app

import (
	"context"
	"fmt"

	"github.com/route-composer/internal/config"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/domain/repository"
	"github.com/route-composer/internal/infrastructure/mapbox"
	"github.com/route-composer/internal/pkg/clock"
	"github.com/route-composer/internal/repository/cache"
	"github.com/route-composer/internal/repository/geojson"
	"github.com/route-composer/internal/repository/postgres"
	"github.com/route-composer/internal/usecase"
	"github.com/route-composer/internal/worker/sweeper"
	"go.uber.org/zap"
)

// Options - какие внешние подключения обязательны
type Options struct {
	// RequireRedis - подключаться к Redis даже при кэше в памяти (нужен стримам воркера)
	RequireRedis bool
}

// App - собранные компоненты
type App struct {
	Redis *cache.Redis
	DB    *postgres.DB

	Defaults   domain.RouteConfiguration
	Gateway    *usecase.ProviderGateway
	RouteCache *usecase.RouteCache
	Routes     *usecase.RouteUsecase
	Sessions   *usecase.RouteSessionUsecase

	// SweepTargets - кэши с явной очисткой для sweeper-воркера
	SweepTargets []sweeper.Target

	logger *zap.Logger
}

// Build подключается к хранилищам и собирает usecase-слой.
// При ошибке уже открытые подключения закрываются.
func Build(ctx context.Context, cfg *config.Config, opts Options, log *zap.Logger) (_ *App, err error) {
	a := &App{logger: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	clk := clock.Real()

	if opts.RequireRedis || cfg.Gateway.CacheBackend == "redis" {
		if a.Redis, err = cache.NewRedis(&cfg.Redis, log); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("Redis connected")
	}

	var responses repository.ResponseCache
	switch cfg.Gateway.CacheBackend {
	case "redis":
		responses = cache.NewRedisCache(a.Redis)
	case "memory", "":
		memory := cache.NewMemoryCache(clk, log)
		responses = memory
		a.SweepTargets = append(a.SweepTargets, sweeper.Target{Name: "provider-responses", Sweeper: memory})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Gateway.CacheBackend)
	}

	provider := mapbox.NewMapboxClient(&cfg.Mapbox, cfg.Gateway.CallTimeout, log)
	quota := usecase.NewQuotaGuard(cfg.Gateway.QuotaBudget, cfg.Gateway.QuotaWindow, clk)
	a.Gateway = usecase.NewProviderGateway(provider, responses, quota, usecase.GatewayOptionsFromConfig(&cfg.Gateway), log)

	var locations repository.LocationRepository
	switch cfg.Catalog.Source {
	case "postgres":
		if a.DB, err = postgres.New(&cfg.Database, log); err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		locations = postgres.NewLocationRepository(a.DB)
		log.Info("Location catalog: PostgreSQL")
	case "geojson", "":
		catalog, err := geojson.LoadFile(ctx, cfg.Catalog.GeoJSONPath, a.Gateway, log)
		if err != nil {
			return nil, err
		}
		locations = catalog
		log.Info("Location catalog: GeoJSON", zap.String("path", cfg.Catalog.GeoJSONPath))
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}

	a.Defaults = domain.DefaultRouteConfiguration(cfg.Route.DefaultCruiseSpeedKmh)
	if err = a.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default route configuration: %w", err)
	}

	assembler := usecase.NewRouteAssembler(
		usecase.NewLegBuilder(a.Gateway, log),
		usecase.NewSequenceOptimizer(a.Gateway, log),
		cfg.Route.MaxConcurrentLegs,
		clk,
		log,
	)
	a.RouteCache = usecase.NewRouteCache(cfg.Route.CacheMaxAge, clk)
	planner := usecase.NewRoutePlanner(assembler, a.RouteCache, log)
	a.Routes = usecase.NewRouteUsecase(locations, planner, cfg.Route.MaxSelection, log)
	a.Sessions = usecase.NewRouteSessionUsecase(a.Routes, a.Defaults, cfg.Route.SessionIdleTTL, clk, log)

	a.SweepTargets = append(a.SweepTargets,
		sweeper.Target{Name: "routes", Sweeper: a.RouteCache},
		sweeper.Target{Name: "sessions", Sweeper: a.Sessions},
	)

	return a, nil
}

// Close закрывает открытые подключения
func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.logger.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}
}
