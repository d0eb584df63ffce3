package repository

import (
	"context"

	"github.com/route-composer/internal/domain"
)

// RoutingProvider определяет методы внешнего провайдера дорожных маршрутов и геокодинга.
// Ошибки возвращаются как AppError с кодами ROUTE_NOT_FOUND, QUOTA_EXCEEDED,
// PROVIDER_UNAVAILABLE или GEOCODING_FAILED.
type RoutingProvider interface {
	// Directions строит маршрут по точкам (origin, waypoints..., destination)
	Directions(ctx context.Context, points []domain.Coordinate) (*domain.RoadRouteResult, error)

	// OptimizeTrip возвращает оптимальный порядок waypoints.
	// end == nil - круговой маршрут с возвратом в start
	OptimizeTrip(
		ctx context.Context,
		start domain.Coordinate,
		end *domain.Coordinate,
		waypoints []domain.Coordinate,
	) (*domain.WaypointOrder, error)

	// MaxOptimizationPoints - сколько координат (start, waypoints, end) принимает OptimizeTrip
	MaxOptimizationPoints() int

	// Geocode ищет координату по названию места и коду региона
	Geocode(ctx context.Context, placeName, regionCode string) (*domain.GeocodeResult, error)
}
