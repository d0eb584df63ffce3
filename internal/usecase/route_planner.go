package usecase

import (
	"context"

	"github.com/route-composer/internal/domain"
	"go.uber.org/zap"
)

// Assembler - сборка маршрута
type Assembler interface {
	AssembleRoute(ctx context.Context, hubs []domain.Hub, satellites []domain.Satellite, cfg domain.RouteConfiguration) (*domain.Route, error)
}

// RoutePlanner - сборка маршрута с кэшированием по отпечатку
type RoutePlanner struct {
	assembler Assembler
	cache     *RouteCache
	logger    *zap.Logger
}

func NewRoutePlanner(assembler Assembler, cache *RouteCache, logger *zap.Logger) *RoutePlanner {
	return &RoutePlanner{assembler: assembler, cache: cache, logger: logger}
}

// GetOrCompute возвращает маршрут из кэша или собирает новый. Второй результат - признак попадания в кэш.
// Маршруты, деградировавшие из-за исчерпания квоты, не кэшируются.
func (p *RoutePlanner) GetOrCompute(
	ctx context.Context,
	hubs []domain.Hub,
	satellites []domain.Satellite,
	cfg domain.RouteConfiguration,
) (*domain.Route, bool, error) {
	fp := Fingerprint(hubs, satellites, cfg)
	if route, ok := p.cache.Get(fp); ok {
		p.logger.Debug("Route cache hit", zap.String("fingerprint", fp))
		return route, true, nil
	}

	assembled, err := p.assembler.AssembleRoute(ctx, hubs, satellites, cfg)
	if err != nil {
		return nil, false, err
	}
	route := *assembled
	route.Fingerprint = fp

	if route.Degraded() {
		p.logger.Warn("Route is degraded, not caching",
			zap.String("fingerprint", fp),
			zap.Int("warnings", len(route.Warnings)))
	} else {
		p.cache.Put(fp, &route)
	}
	return &route, false, nil
}

// Invalidate удаляет запись кэша для отпечатка
func (p *RoutePlanner) Invalidate(fingerprint string) {
	p.cache.Invalidate(fingerprint)
}
