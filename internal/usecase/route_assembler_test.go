package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/clock"
	"github.com/route-composer/internal/pkg/errors"
	"github.com/route-composer/internal/pkg/utils"
	"github.com/route-composer/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestAssembler(router *MockRoadRouter, opt *MockWaypointOptimizer) *usecase.RouteAssembler {
	logger := zap.NewNop()
	return usecase.NewRouteAssembler(
		usecase.NewLegBuilder(router, logger),
		usecase.NewSequenceOptimizer(opt, logger),
		4,
		clock.NewFake(testNow),
		logger,
	)
}

func roadResult(km, minutes float64) *domain.RoadRouteResult {
	return &domain.RoadRouteResult{DistanceKm: km, DurationMinutes: minutes}
}

func assertContiguous(t *testing.T, legs []domain.Leg) {
	t.Helper()
	for i := 1; i < len(legs); i++ {
		assert.Equal(t, legs[i-1].Destination.Code, legs[i].Origin.Code, "leg %d starts where leg %d ends", i, i-1)
	}
}

func TestRouteAssembler_EmptySelection(t *testing.T) {
	a := newTestAssembler(&MockRoadRouter{}, &MockWaypointOptimizer{})

	route, err := a.AssembleRoute(context.Background(), nil, nil, domain.DefaultRouteConfiguration(200))

	assert.Nil(t, route)
	assert.True(t, errors.Is(err, errors.ErrEmptySelection))
}

func TestRouteAssembler_InvalidConfiguration(t *testing.T) {
	a := newTestAssembler(&MockRoadRouter{}, &MockWaypointOptimizer{})
	cfg := domain.DefaultRouteConfiguration(200)
	cfg.CruiseSpeedKmh = 0

	_, err := a.AssembleRoute(context.Background(), []domain.Hub{hubJoaoPessoa, hubCampina}, nil, cfg)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfiguration))
}

func TestRouteAssembler_TwoHubsByAir(t *testing.T) {
	router := &MockRoadRouter{}
	a := newTestAssembler(router, &MockWaypointOptimizer{})
	cfg := domain.DefaultRouteConfiguration(220)

	route, err := a.AssembleRoute(context.Background(), []domain.Hub{hubJoaoPessoa, hubCampina}, nil, cfg)
	require.NoError(t, err)

	require.Len(t, route.Legs, 1)
	leg := route.Legs[0]
	want := utils.DistanceKm(hubJoaoPessoa.Coordinate, hubCampina.Coordinate)

	assert.True(t, leg.IsAir())
	assert.InDelta(t, want, leg.DistanceKm, 1e-9)
	assert.InDelta(t, want/220*60, leg.DurationMinutes, 1e-9)
	assert.Equal(t, 1, route.Statistics.AirLegs)
	assert.Equal(t, 2, route.Statistics.HubsVisited)
	assert.InDelta(t, want, route.Statistics.AirDistanceKm, 1e-9)
	assert.Zero(t, route.Statistics.RoadDistanceKm)
	assert.False(t, route.Degraded())
	assert.Equal(t, testNow, route.CreatedAt)
	assert.NotEmpty(t, route.ID)
	router.AssertNotCalled(t, "ComputeRoadRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouteAssembler_ProviderOrderedStar(t *testing.T) {
	router := &MockRoadRouter{}
	opt := &MockWaypointOptimizer{}
	a := newTestAssembler(router, opt)
	cfg := domain.DefaultRouteConfiguration(200)

	sats := []domain.Satellite{satCabedelo, satBayeux, satSantaRita}
	opt.On("OptimizeWaypointOrder", mock.Anything, hubJoaoPessoa.Coordinate, (*domain.Coordinate)(nil), mock.Anything).
		Return(&domain.WaypointOrder{Order: []int{2, 0, 1}, TotalDistanceKm: 42.3, TotalDurationMinutes: 55}, nil).Once()

	router.On("ComputeRoadRoute", mock.Anything, hubJoaoPessoa.Coordinate, satSantaRita.Coordinate, mock.Anything).
		Return(roadResult(10.1, 12), nil).Once()
	router.On("ComputeRoadRoute", mock.Anything, satSantaRita.Coordinate, satCabedelo.Coordinate, mock.Anything).
		Return(roadResult(15.2, 20), nil).Once()
	router.On("ComputeRoadRoute", mock.Anything, satCabedelo.Coordinate, satBayeux.Coordinate, mock.Anything).
		Return(roadResult(12.0, 16), nil).Once()
	router.On("ComputeRoadRoute", mock.Anything, satBayeux.Coordinate, hubJoaoPessoa.Coordinate, mock.Anything).
		Return(roadResult(5.0, 7), nil).Once()

	route, err := a.AssembleRoute(context.Background(), []domain.Hub{hubJoaoPessoa}, sats, cfg)
	require.NoError(t, err)

	require.Len(t, route.Legs, 4)
	wantPairs := [][2]string{
		{hubJoaoPessoa.Code, satSantaRita.Code},
		{satSantaRita.Code, satCabedelo.Code},
		{satCabedelo.Code, satBayeux.Code},
		{satBayeux.Code, hubJoaoPessoa.Code},
	}
	for i, leg := range route.Legs {
		assert.True(t, leg.IsRoad())
		assert.False(t, leg.IsEstimated())
		assert.Equal(t, wantPairs[i], [2]string{leg.Origin.Code, leg.Destination.Code})
	}

	assert.InDelta(t, 42.3, route.Statistics.RoadDistanceKm, 1e-9)
	assert.InDelta(t, 55.0, route.Statistics.RoadDurationMinutes, 1e-9)
	assert.Equal(t, 4, route.Statistics.RoadLegs)
	assert.Equal(t, 1, route.Statistics.HubsVisited)
	assert.Equal(t, 3, route.Statistics.SatellitesVisited)
	assert.Equal(t, []string{hubJoaoPessoa.Code, satSantaRita.Code, satCabedelo.Code, satBayeux.Code}, stopCodes(route))
	assert.False(t, route.Degraded())

	router.AssertExpectations(t)
	opt.AssertExpectations(t)
}

func TestRouteAssembler_ProviderDownEstimatesEverything(t *testing.T) {
	router := &MockRoadRouter{}
	opt := &MockWaypointOptimizer{}
	a := newTestAssembler(router, opt)

	router.On("ComputeRoadRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.ErrProviderUnavailable)
	opt.On("OptimizeWaypointOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.ErrProviderUnavailable)

	route, err := a.AssembleRoute(context.Background(),
		[]domain.Hub{hubJoaoPessoa}, []domain.Satellite{satCabedelo, satSantaRita}, domain.DefaultRouteConfiguration(200))
	require.NoError(t, err)

	require.Len(t, route.Legs, 3)
	for _, leg := range route.Legs {
		require.True(t, leg.IsRoad())
		assert.True(t, leg.Road.IsEstimated)
		assert.Equal(t, domain.EstimateProviderUnavailable, leg.Road.EstimateReason)
		assert.InDelta(t, utils.DistanceKm(leg.Origin.Coordinate, leg.Destination.Coordinate), leg.DistanceKm, 1e-9)
	}
	assertContiguous(t, route.Legs)

	assert.Equal(t, 3, route.Statistics.EstimatedLegs)
	assert.True(t, route.HasWarning(domain.WarningEstimatedLegs))
	assert.True(t, route.HasWarning(domain.WarningOrderFallback))
	assert.False(t, route.HasWarning(domain.WarningQuotaExceeded))
}

func TestRouteAssembler_QuotaExceededIsSurfaced(t *testing.T) {
	router := &MockRoadRouter{}
	a := newTestAssembler(router, &MockWaypointOptimizer{})
	router.On("ComputeRoadRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.ErrQuotaExceeded)

	route, err := a.AssembleRoute(context.Background(),
		[]domain.Hub{hubJoaoPessoa}, []domain.Satellite{satCabedelo}, domain.DefaultRouteConfiguration(200))
	require.NoError(t, err)

	assert.True(t, route.HasWarning(domain.WarningQuotaExceeded))
	assert.Equal(t, domain.EstimateQuotaExceeded, route.Legs[0].Road.EstimateReason)
}

func TestRouteAssembler_HubsWithSatellitesAndAirHop(t *testing.T) {
	router := &MockRoadRouter{}
	a := newTestAssembler(router, &MockWaypointOptimizer{})
	router.On("ComputeRoadRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(roadResult(20, 25), nil)

	route, err := a.AssembleRoute(context.Background(),
		[]domain.Hub{hubJoaoPessoa, hubCampina},
		[]domain.Satellite{satQueimadas, satCabedelo},
		domain.DefaultRouteConfiguration(200))
	require.NoError(t, err)

	require.Len(t, route.Legs, 5)
	kinds := make([]domain.LegKind, len(route.Legs))
	for i, l := range route.Legs {
		kinds[i] = l.Kind
	}
	assert.Equal(t, []domain.LegKind{domain.LegRoad, domain.LegRoad, domain.LegAir, domain.LegRoad, domain.LegRoad}, kinds)
	assert.Equal(t, satCabedelo.Code, route.Legs[0].Destination.Code)
	assert.Equal(t, satQueimadas.Code, route.Legs[3].Destination.Code)
	assertContiguous(t, route.Legs)

	st := route.Statistics
	assert.Equal(t, 2, st.HubsVisited)
	assert.Equal(t, 2, st.SatellitesVisited)
	assert.Equal(t, 1, st.AirLegs)
	assert.Equal(t, 4, st.RoadLegs)
	assert.InDelta(t, 80.0, st.RoadDistanceKm, 1e-9)
	assert.InDelta(t, st.AirDistanceKm+st.RoadDistanceKm, st.TotalDistanceKm, 1e-9)
	router.AssertNumberOfCalls(t, "ComputeRoadRoute", 4)
}

func TestRouteAssembler_HubPairOverrides(t *testing.T) {
	hubs := []domain.Hub{hubJoaoPessoa, hubCampina}

	t.Run("air override without prefer air", func(t *testing.T) {
		a := newTestAssembler(&MockRoadRouter{}, &MockWaypointOptimizer{})
		cfg := domain.DefaultRouteConfiguration(200)
		cfg.PreferAirBetweenHubs = false
		cfg.PerHubPairModeOverride[domain.HubPair{From: hubJoaoPessoa.Code, To: hubCampina.Code}] = domain.ModeAir

		route, err := a.AssembleRoute(context.Background(), hubs, nil, cfg)
		require.NoError(t, err)
		require.Len(t, route.Legs, 1)
		assert.True(t, route.Legs[0].IsAir())
	})

	t.Run("road between hubs is a contract violation", func(t *testing.T) {
		router := &MockRoadRouter{}
		a := newTestAssembler(router, &MockWaypointOptimizer{})
		cfg := domain.DefaultRouteConfiguration(200)
		cfg.PerHubPairModeOverride[domain.HubPair{From: hubJoaoPessoa.Code, To: hubCampina.Code}] = domain.ModeRoad

		route, err := a.AssembleRoute(context.Background(), hubs, []domain.Satellite{satCabedelo}, cfg)

		assert.Nil(t, route)
		assert.True(t, errors.Is(err, errors.ErrInvalidLegRequest))
		router.AssertNotCalled(t, "ComputeRoadRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRouteAssembler_SatellitesOnlyOpenTour(t *testing.T) {
	router := &MockRoadRouter{}
	a := newTestAssembler(router, &MockWaypointOptimizer{})
	router.On("ComputeRoadRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(roadResult(9, 11), nil)

	route, err := a.AssembleRoute(context.Background(), nil,
		[]domain.Satellite{satSantaRita, satCabedelo, satBayeux}, domain.DefaultRouteConfiguration(200))
	require.NoError(t, err)

	require.Len(t, route.Legs, 2)
	assert.Equal(t, satSantaRita.Code, route.Legs[0].Origin.Code)
	assert.NotEqual(t, satSantaRita.Code, route.Legs[1].Destination.Code, "no return to start")
	assertContiguous(t, route.Legs)
	assert.Equal(t, 3, route.Statistics.SatellitesVisited)
	assert.Zero(t, route.Statistics.HubsVisited)
}

func TestRouteAssembler_SingleHub(t *testing.T) {
	a := newTestAssembler(&MockRoadRouter{}, &MockWaypointOptimizer{})

	route, err := a.AssembleRoute(context.Background(), []domain.Hub{hubPatos}, nil, domain.DefaultRouteConfiguration(200))
	require.NoError(t, err)

	assert.Empty(t, route.Legs)
	assert.Equal(t, []string{hubPatos.Code}, stopCodes(route))
	assert.Equal(t, 1, route.Statistics.HubsVisited)
}

func TestRouteAssembler_LegOrderIgnoresCompletionOrder(t *testing.T) {
	router := &MockRoadRouter{}
	a := newTestAssembler(router, &MockWaypointOptimizer{})
	cfg := domain.DefaultRouteConfiguration(200)
	cfg.OptimizeSatelliteOrder = false

	// первый участок отвечает последним
	router.On("ComputeRoadRoute", mock.Anything, hubJoaoPessoa.Coordinate, mock.Anything, mock.Anything).
		After(40*time.Millisecond).Return(roadResult(1, 1), nil)
	router.On("ComputeRoadRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(roadResult(2, 2), nil)

	route, err := a.AssembleRoute(context.Background(),
		[]domain.Hub{hubJoaoPessoa}, []domain.Satellite{satCabedelo, satBayeux, satSantaRita}, cfg)
	require.NoError(t, err)

	require.Len(t, route.Legs, 4)
	assert.Equal(t, hubJoaoPessoa.Code, route.Legs[0].Origin.Code)
	assert.Equal(t, 1.0, route.Legs[0].DistanceKm)
	assert.Equal(t, hubJoaoPessoa.Code, route.Legs[3].Destination.Code)
	assertContiguous(t, route.Legs)
}

func TestRouteAssembler_Idempotent(t *testing.T) {
	router := &MockRoadRouter{}
	opt := &MockWaypointOptimizer{}
	a := newTestAssembler(router, opt)
	router.On("ComputeRoadRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(roadResult(14, 18), nil)
	opt.On("OptimizeWaypointOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.WaypointOrder{Order: []int{1, 0}}, nil)

	hubs := []domain.Hub{hubJoaoPessoa, hubCampina, hubPatos}
	sats := []domain.Satellite{satCabedelo, satBayeux, satQueimadas}
	cfg := domain.DefaultRouteConfiguration(200)

	first, err := a.AssembleRoute(context.Background(), hubs, sats, cfg)
	require.NoError(t, err)
	second, err := a.AssembleRoute(context.Background(), hubs, sats, cfg)
	require.NoError(t, err)

	assert.Equal(t, first.Statistics, second.Statistics)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRouteAssembler_Cancelled(t *testing.T) {
	router := &MockRoadRouter{}
	a := newTestAssembler(router, &MockWaypointOptimizer{})
	router.On("ComputeRoadRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.ErrProviderUnavailable).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	route, err := a.AssembleRoute(ctx, []domain.Hub{hubJoaoPessoa}, []domain.Satellite{satCabedelo}, domain.DefaultRouteConfiguration(200))

	assert.Nil(t, route)
	assert.True(t, errors.Is(err, errors.ErrRequestCancelled))
}

func stopCodes(route *domain.Route) []string {
	out := make([]string, len(route.Stops))
	for i, s := range route.Stops {
		out[i] = s.Code
	}
	return out
}

func TestRouteAssembler_OrderQuotaExhaustionIsSurfaced(t *testing.T) {
	router := &MockRoadRouter{}
	opt := &MockWaypointOptimizer{}
	a := newTestAssembler(router, opt)

	opt.On("OptimizeWaypointOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.ErrQuotaExceeded)
	router.On("ComputeRoadRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(roadResult(10, 12), nil)

	route, err := a.AssembleRoute(context.Background(),
		[]domain.Hub{hubJoaoPessoa}, []domain.Satellite{satCabedelo, satSantaRita}, domain.DefaultRouteConfiguration(200))
	require.NoError(t, err)

	require.Len(t, route.Legs, 3)
	for _, leg := range route.Legs {
		assert.False(t, leg.IsEstimated())
	}
	assert.True(t, route.HasWarning(domain.WarningOrderFallback))
	require.True(t, route.HasWarning(domain.WarningQuotaExceeded))
	assert.False(t, route.HasWarning(domain.WarningEstimatedLegs))
	for _, w := range route.Warnings {
		if w.Code == domain.WarningQuotaExceeded {
			assert.Equal(t, hubJoaoPessoa.Code, w.Subject)
		}
	}
}
