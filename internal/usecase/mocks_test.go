package usecase_test

import (
	"context"

	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/usecase"
	"github.com/stretchr/testify/mock"
)

// MockRoutingProvider - мок провайдера маршрутов
type MockRoutingProvider struct {
	mock.Mock
	MaxPoints int
}

func (m *MockRoutingProvider) Directions(ctx context.Context, points []domain.Coordinate) (*domain.RoadRouteResult, error) {
	args := m.Called(ctx, points)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoadRouteResult), args.Error(1)
}

func (m *MockRoutingProvider) OptimizeTrip(
	ctx context.Context,
	start domain.Coordinate,
	end *domain.Coordinate,
	waypoints []domain.Coordinate,
) (*domain.WaypointOrder, error) {
	args := m.Called(ctx, start, end, waypoints)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WaypointOrder), args.Error(1)
}

// MaxOptimizationPoints: MaxPoints, по умолчанию 25 waypoints + start + end
func (m *MockRoutingProvider) MaxOptimizationPoints() int {
	if m.MaxPoints > 0 {
		return m.MaxPoints
	}
	return usecase.MaxProviderWaypoints + 2
}

func (m *MockRoutingProvider) Geocode(ctx context.Context, placeName, regionCode string) (*domain.GeocodeResult, error) {
	args := m.Called(ctx, placeName, regionCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeocodeResult), args.Error(1)
}

// MockRoadRouter - мок шлюза для дорожных участков
type MockRoadRouter struct {
	mock.Mock
}

func (m *MockRoadRouter) ComputeRoadRoute(
	ctx context.Context,
	origin, destination domain.Coordinate,
	waypoints []domain.Coordinate,
) (*domain.RoadRouteResult, error) {
	args := m.Called(ctx, origin, destination, waypoints)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoadRouteResult), args.Error(1)
}

// MockWaypointOptimizer - мок шлюза для оптимизации порядка
type MockWaypointOptimizer struct {
	mock.Mock
	Limit int
}

func (m *MockWaypointOptimizer) MaxOptimizationWaypoints(bool) int {
	if m.Limit > 0 {
		return m.Limit
	}
	return usecase.MaxProviderWaypoints
}

func (m *MockWaypointOptimizer) OptimizeWaypointOrder(
	ctx context.Context,
	start domain.Coordinate,
	end *domain.Coordinate,
	waypoints []domain.Coordinate,
) (*domain.WaypointOrder, error) {
	args := m.Called(ctx, start, end, waypoints)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WaypointOrder), args.Error(1)
}

// MockLocationRepository - мок каталога локаций
type MockLocationRepository struct {
	mock.Mock
}

func (m *MockLocationRepository) GetHubs(ctx context.Context, codes []string) ([]domain.Hub, error) {
	args := m.Called(ctx, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Hub), args.Error(1)
}

func (m *MockLocationRepository) GetSatellites(ctx context.Context, codes []string) ([]domain.Satellite, error) {
	args := m.Called(ctx, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Satellite), args.Error(1)
}

func (m *MockLocationRepository) ListHubs(ctx context.Context, regionCode string) ([]domain.Hub, error) {
	args := m.Called(ctx, regionCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Hub), args.Error(1)
}

func (m *MockLocationRepository) ListSatellites(ctx context.Context, regionCode string) ([]domain.Satellite, error) {
	args := m.Called(ctx, regionCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Satellite), args.Error(1)
}

// MockAssembler - мок сборщика маршрута, считает вызовы
type MockAssembler struct {
	mock.Mock
}

func (m *MockAssembler) AssembleRoute(
	ctx context.Context,
	hubs []domain.Hub,
	satellites []domain.Satellite,
	cfg domain.RouteConfiguration,
) (*domain.Route, error) {
	args := m.Called(ctx, hubs, satellites, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Route), args.Error(1)
}

// fixtures: полюса и периферии штата Параиба
var (
	hubJoaoPessoa = domain.NewHub("2507507", "Joao Pessoa", "PB", domain.Coordinate{Lat: -7.12, Lon: -34.95}, 833932)
	hubCampina    = domain.NewHub("2504009", "Campina Grande", "PB", domain.Coordinate{Lat: -7.22, Lon: -35.88}, 419379)
	hubPatos      = domain.NewHub("2510808", "Patos", "PB", domain.Coordinate{Lat: -7.02, Lon: -37.28}, 108192)

	satCabedelo  = domain.NewSatellite("2503209", "Cabedelo", "PB", domain.Coordinate{Lat: -6.98, Lon: -34.83}, 68033)
	satBayeux    = domain.NewSatellite("2501807", "Bayeux", "PB", domain.Coordinate{Lat: -7.13, Lon: -34.93}, 97203)
	satSantaRita = domain.NewSatellite("2513703", "Santa Rita", "PB", domain.Coordinate{Lat: -7.11, Lon: -35.02}, 136851)
	satQueimadas = domain.NewSatellite("2512507", "Queimadas", "PB", domain.Coordinate{Lat: -7.36, Lon: -35.90}, 44388)
)
