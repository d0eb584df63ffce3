package usecase

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/route-composer/internal/config"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/domain/repository"
	"github.com/route-composer/internal/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// MaxProviderWaypoints - верхний лимит waypoints для дорожного маршрута и оптимизации порядка;
// для оптимизации фактический лимит может быть ниже, см. MaxOptimizationWaypoints
const MaxProviderWaypoints = 25

type GatewayOptions struct {
	CallTimeout      time.Duration
	MaxInFlight      int64
	CallerRate       float64
	CallerBurst      int
	RoadRouteTTL     time.Duration
	MultiWaypointTTL time.Duration
	GeocodeTTL       time.Duration
}

func GatewayOptionsFromConfig(cfg *config.GatewayConfig) GatewayOptions {
	return GatewayOptions{
		CallTimeout:      cfg.CallTimeout,
		MaxInFlight:      cfg.MaxInFlight,
		CallerRate:       cfg.CallerRate,
		CallerBurst:      cfg.CallerBurst,
		RoadRouteTTL:     cfg.RoadRouteTTL,
		MultiWaypointTTL: cfg.MultiWaypointTTL,
		GeocodeTTL:       cfg.GeocodeTTL,
	}
}

// GatewayStats - счётчики шлюза для /gateway/stats
type GatewayStats struct {
	Requests       int64 `json:"requests"`
	CacheHits      int64 `json:"cache_hits"`
	CacheMisses    int64 `json:"cache_misses"`
	Deduplicated   int64 `json:"deduplicated"`
	QuotaRemaining int64 `json:"quota_remaining"`
	CacheEntries   int   `json:"cache_entries"`
}

// ProviderGateway - единая точка всех исходящих вызовов к провайдеру маршрутов и геокодинга
type ProviderGateway struct {
	provider repository.RoutingProvider
	cache    repository.ResponseCache
	quota    *QuotaGuard
	inflight *semaphore.Weighted
	flights  singleflight.Group
	opts     GatewayOptions
	logger   *zap.Logger

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	hits   atomic.Int64
	misses atomic.Int64
	shared atomic.Int64
}

func NewProviderGateway(
	provider repository.RoutingProvider,
	cache repository.ResponseCache,
	quota *QuotaGuard,
	opts GatewayOptions,
	logger *zap.Logger,
) *ProviderGateway {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 1
	}
	return &ProviderGateway{
		provider: provider,
		cache:    cache,
		quota:    quota,
		inflight: semaphore.NewWeighted(opts.MaxInFlight),
		opts:     opts,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Geocode возвращает координату лучшего совпадения для названия места
func (g *ProviderGateway) Geocode(ctx context.Context, placeName, regionCode string) (domain.Coordinate, error) {
	key := "geocode:" + strings.ToLower(strings.TrimSpace(placeName)) + "|" + strings.ToUpper(regionCode)

	var result domain.GeocodeResult
	err := g.call(ctx, key, g.opts.GeocodeTTL, &result, func(ctx context.Context) (interface{}, error) {
		return g.provider.Geocode(ctx, placeName, regionCode)
	})
	if err != nil {
		return domain.Coordinate{}, err
	}
	return result.Coordinate, nil
}

// ComputeRoadRoute - дорожный маршрут origin -> waypoints... -> destination
func (g *ProviderGateway) ComputeRoadRoute(
	ctx context.Context,
	origin, destination domain.Coordinate,
	waypoints []domain.Coordinate,
) (*domain.RoadRouteResult, error) {
	if len(waypoints) > MaxProviderWaypoints {
		return nil, errors.ErrTooManyWaypoints.WithMessage(
			"road route accepts at most %d waypoints, got %d", MaxProviderWaypoints, len(waypoints))
	}

	ttl := g.opts.RoadRouteTTL
	if len(waypoints) > 0 {
		ttl = g.opts.MultiWaypointTTL
	}
	key := "road:" + coordKey(origin) + ">" + coordKey(destination) + "|" + waypointSignature(waypoints)

	points := make([]domain.Coordinate, 0, len(waypoints)+2)
	points = append(points, origin)
	points = append(points, waypoints...)
	points = append(points, destination)

	var result domain.RoadRouteResult
	err := g.call(ctx, key, ttl, &result, func(ctx context.Context) (interface{}, error) {
		return g.provider.Directions(ctx, points)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MaxOptimizationWaypoints - сколько waypoints можно отправить на оптимизацию порядка
// с учётом start и (для открытого маршрута) end
func (g *ProviderGateway) MaxOptimizationWaypoints(roundTrip bool) int {
	limit := g.provider.MaxOptimizationPoints() - 1
	if !roundTrip {
		limit--
	}
	return max(min(limit, MaxProviderWaypoints), 0)
}

// OptimizeWaypointOrder - оптимальный порядок посещения waypoints; end == nil - круговой маршрут.
// Запросы сверх лимита провайдера отклоняются до списания квоты.
func (g *ProviderGateway) OptimizeWaypointOrder(
	ctx context.Context,
	start domain.Coordinate,
	end *domain.Coordinate,
	waypoints []domain.Coordinate,
) (*domain.WaypointOrder, error) {
	if limit := g.MaxOptimizationWaypoints(end == nil); len(waypoints) > limit {
		return nil, errors.ErrTooManyWaypoints.WithMessage(
			"optimization accepts at most %d waypoints, got %d", limit, len(waypoints))
	}

	endKey := "roundtrip"
	if end != nil {
		endKey = coordKey(*end)
	}
	key := "opt:" + coordKey(start) + ">" + endKey + "|" + waypointSignature(waypoints)

	var result domain.WaypointOrder
	err := g.call(ctx, key, g.opts.MultiWaypointTTL, &result, func(ctx context.Context) (interface{}, error) {
		return g.provider.OptimizeTrip(ctx, start, end, waypoints)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (g *ProviderGateway) Stats(ctx context.Context) GatewayStats {
	entries, err := g.cache.Len(ctx)
	if err != nil {
		g.logger.Warn("Failed to count cache entries", zap.Error(err))
	}
	return GatewayStats{
		Requests:       g.quota.Total(),
		CacheHits:      g.hits.Load(),
		CacheMisses:    g.misses.Load(),
		Deduplicated:   g.shared.Load(),
		QuotaRemaining: g.quota.Remaining(),
		CacheEntries:   entries,
	}
}

// call - общий путь: кэш -> лимит вызывающего -> singleflight -> квота -> семафор -> провайдер с таймаутом.
// Вызов провайдера не привязан к отмене ctx: если вызывающий ушёл, ответ всё равно попадёт в кэш.
func (g *ProviderGateway) call(
	ctx context.Context,
	key string,
	ttl time.Duration,
	dest interface{},
	fetch func(ctx context.Context) (interface{}, error),
) error {
	if cached, err := g.cache.Get(ctx, key); err != nil {
		g.logger.Warn("Provider cache read failed", zap.String("key", key), zap.Error(err))
	} else if cached != nil {
		if err := json.Unmarshal(cached, dest); err == nil {
			g.hits.Add(1)
			g.logger.Debug("Provider cache hit", zap.String("key", key))
			return nil
		}
		g.logger.Warn("Dropping undecodable cache entry", zap.String("key", key))
		_ = g.cache.Delete(ctx, key)
	}
	g.misses.Add(1)

	if err := g.waitCaller(ctx); err != nil {
		return err
	}

	ch := g.flights.DoChan(key, func() (interface{}, error) {
		return g.fetch(context.WithoutCancel(ctx), key, ttl, fetch)
	})

	select {
	case <-ctx.Done():
		return errors.Wrap(errors.ErrProviderUnavailable.WithMessage("provider call abandoned"), ctx.Err())
	case res := <-ch:
		if res.Shared {
			g.shared.Add(1)
		}
		if res.Err != nil {
			return res.Err
		}
		if err := json.Unmarshal(res.Val.([]byte), dest); err != nil {
			return errors.Wrap(errors.ErrInternalServer, fmt.Errorf("decode provider result: %w", err))
		}
		return nil
	}
}

func (g *ProviderGateway) fetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if !g.quota.Acquire() {
		g.logger.Warn("Provider call budget exhausted", zap.String("key", key))
		return nil, errors.ErrProviderUnavailable.WithMessage("provider call budget exhausted for the current window")
	}

	callCtx, cancel := context.WithTimeout(ctx, g.opts.CallTimeout)
	defer cancel()

	if err := g.inflight.Acquire(callCtx, 1); err != nil {
		return nil, errors.Wrap(errors.ErrProviderUnavailable.WithMessage("timed out waiting for a provider slot"), err)
	}
	defer g.inflight.Release(1)

	g.logger.Debug("Provider call", zap.String("key", key))
	val, err := fetch(callCtx)
	if err != nil {
		if stderrors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrap(
				errors.ErrProviderUnavailable.WithMessage("provider call exceeded %s", g.opts.CallTimeout), err)
		}
		if _, ok := errors.As(err); !ok {
			return nil, errors.Wrap(errors.ErrProviderUnavailable, err)
		}
		return nil, err
	}

	data, err := json.Marshal(val)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, fmt.Errorf("encode provider result: %w", err))
	}
	if err := g.cache.Set(ctx, key, data, ttl); err != nil {
		g.logger.Warn("Provider cache write failed", zap.String("key", key), zap.Error(err))
	}
	return data, nil
}

// waitCaller ограничивает частоту вызовов одного вызывающего
func (g *ProviderGateway) waitCaller(ctx context.Context) error {
	if g.opts.CallerRate <= 0 {
		return nil
	}
	caller := CallerFrom(ctx)

	g.limitersMu.Lock()
	limiter, ok := g.limiters[caller]
	if !ok {
		burst := g.opts.CallerBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(g.opts.CallerRate), burst)
		g.limiters[caller] = limiter
	}
	g.limitersMu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, g.opts.CallTimeout)
	defer cancel()
	if err := limiter.Wait(waitCtx); err != nil {
		return errors.Wrap(errors.ErrProviderUnavailable.WithMessage("caller %q exceeded provider call rate", caller), err)
	}
	return nil
}

type callerKey struct{}

// WithCaller помечает контекст идентификатором вызывающего для лимита частоты
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFrom(ctx context.Context) string {
	if caller, ok := ctx.Value(callerKey{}).(string); ok && caller != "" {
		return caller
	}
	return "anonymous"
}

// coordKey округляет координату до 5 знаков (~1 м)
func coordKey(c domain.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', 5, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 5, 64)
}

func waypointSignature(waypoints []domain.Coordinate) string {
	if len(waypoints) == 0 {
		return "-"
	}
	h := xxhash.New()
	for _, w := range waypoints {
		_, _ = h.WriteString(coordKey(w))
		_, _ = h.WriteString(";")
	}
	return strconv.Itoa(len(waypoints)) + ":" + strconv.FormatUint(h.Sum64(), 16)
}
