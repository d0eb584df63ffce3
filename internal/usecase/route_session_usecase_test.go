package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/clock"
	"github.com/route-composer/internal/pkg/errors"
	"github.com/route-composer/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type RouteSessionSuite struct {
	suite.Suite
	ctx       context.Context
	clk       *clock.Fake
	locations *MockLocationRepository
	assembler *MockAssembler
	uc        *usecase.RouteSessionUsecase
	session   uuid.UUID
}

func TestRouteSessionSuite(t *testing.T) {
	suite.Run(t, new(RouteSessionSuite))
}

func (s *RouteSessionSuite) SetupTest() {
	s.ctx = context.Background()
	s.clk = clock.NewFake(testNow)
	s.locations = &MockLocationRepository{}
	s.assembler = &MockAssembler{}

	logger := zap.NewNop()
	planner := usecase.NewRoutePlanner(s.assembler, usecase.NewRouteCache(time.Hour, s.clk), logger)
	routes := usecase.NewRouteUsecase(s.locations, planner, 40, logger)
	s.uc = usecase.NewRouteSessionUsecase(routes, domain.DefaultRouteConfiguration(200), time.Hour, s.clk, logger)

	view, err := s.uc.CreateSession("tester", nil)
	s.Require().NoError(err)
	s.session = view.ID

	s.locations.On("GetHubs", mock.Anything, []string{hubJoaoPessoa.Code}).Return([]domain.Hub{hubJoaoPessoa}, nil).Maybe()
	s.locations.On("GetHubs", mock.Anything, []string{hubCampina.Code}).Return([]domain.Hub{hubCampina}, nil).Maybe()
	s.locations.On("GetSatellites", mock.Anything, []string{satCabedelo.Code}).Return([]domain.Satellite{satCabedelo}, nil).Maybe()
}

func (s *RouteSessionSuite) selectBoth() {
	_, err := s.uc.SelectHub(s.ctx, s.session, hubJoaoPessoa.Code)
	s.Require().NoError(err)
	_, err = s.uc.SelectSatellite(s.ctx, s.session, satCabedelo.Code)
	s.Require().NoError(err)
}

func (s *RouteSessionSuite) computeOK() *domain.Route {
	route, _, err := s.uc.ComputeRoute(s.ctx, s.session)
	s.Require().NoError(err)
	return route
}

func (s *RouteSessionSuite) TestComputeAndDisplay() {
	s.selectBoth()
	s.assembler.On("AssembleRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Route{ID: "r-1"}, nil)

	_, err := s.uc.GetRoute(s.session)
	s.True(errors.Is(err, errors.ErrRouteNotComputed))

	route := s.computeOK()
	shown, err := s.uc.GetRoute(s.session)
	s.Require().NoError(err)
	s.Same(route, shown)

	_, cached, err := s.uc.ComputeRoute(s.ctx, s.session)
	s.Require().NoError(err)
	s.True(cached)
	s.assembler.AssertNumberOfCalls(s.T(), "AssembleRoute", 1)
}

func (s *RouteSessionSuite) TestSelectionChangeInvalidatesDisplayedRoute() {
	s.selectBoth()
	s.assembler.On("AssembleRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Route{ID: "r-1"}, nil)
	s.computeOK()

	view, err := s.uc.DeselectSatellite(s.session, satCabedelo.Code)
	s.Require().NoError(err)
	s.False(view.HasRoute)

	_, err = s.uc.GetRoute(s.session)
	s.True(errors.Is(err, errors.ErrRouteNotComputed))
}

func (s *RouteSessionSuite) TestIdempotentSelectKeepsRoute() {
	s.selectBoth()
	s.assembler.On("AssembleRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Route{ID: "r-1"}, nil)
	s.computeOK()

	view, err := s.uc.SelectHub(s.ctx, s.session, hubJoaoPessoa.Code)
	s.Require().NoError(err)
	s.True(view.HasRoute)
	s.Equal([]string{hubJoaoPessoa.Code}, view.HubCodes)

	view, err = s.uc.DeselectHub(s.session, hubCampina.Code)
	s.Require().NoError(err)
	s.True(view.HasRoute)
}

func (s *RouteSessionSuite) TestOverrideOnlyChangeKeepsDisplayedRoute() {
	s.selectBoth()
	s.assembler.On("AssembleRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Route{ID: "r-1"}, nil)
	s.computeOK()

	view, err := s.uc.UpdateConfiguration(s.session, domain.ConfigurationPatch{
		Overrides: map[domain.HubPair]domain.TravelMode{{From: hubJoaoPessoa.Code, To: hubCampina.Code}: domain.ModeAir},
	})
	s.Require().NoError(err)
	s.True(view.HasRoute)
	s.Equal(domain.ModeAir, view.Configuration.HubPairMode(hubJoaoPessoa.Code, hubCampina.Code))

	speed := 260.0
	view, err = s.uc.UpdateConfiguration(s.session, domain.ConfigurationPatch{CruiseSpeedKmh: &speed})
	s.Require().NoError(err)
	s.False(view.HasRoute)
	s.Equal(260.0, view.Configuration.CruiseSpeedKmh)
}

func (s *RouteSessionSuite) TestInvalidConfigurationLeavesSessionUnchanged() {
	before, err := s.uc.GetSession(s.session)
	s.Require().NoError(err)

	zero := 0.0
	_, err = s.uc.UpdateConfiguration(s.session, domain.ConfigurationPatch{CruiseSpeedKmh: &zero})
	s.True(errors.Is(err, errors.ErrInvalidConfiguration))

	after, err := s.uc.GetSession(s.session)
	s.Require().NoError(err)
	s.Equal(before.Configuration.CruiseSpeedKmh, after.Configuration.CruiseSpeedKmh)
	s.Equal(before.Revision, after.Revision)
}

func (s *RouteSessionSuite) TestSelectionCap() {
	for i := 0; i < 40; i++ {
		code := fmt.Sprintf("S%02d", i)
		s.locations.On("GetSatellites", mock.Anything, []string{code}).
			Return([]domain.Satellite{domain.NewSatellite(code, "", "PB", domain.Coordinate{Lat: -7, Lon: -35}, 0)}, nil)
		_, err := s.uc.SelectSatellite(s.ctx, s.session, code)
		s.Require().NoError(err)
	}

	_, err := s.uc.SelectHub(s.ctx, s.session, hubJoaoPessoa.Code)
	s.True(errors.Is(err, errors.ErrSelectionTooLarge))

	view, err := s.uc.GetSession(s.session)
	s.Require().NoError(err)
	s.Empty(view.HubCodes)
	s.Len(view.SatelliteCodes, 40)
	s.Equal("S00", view.SatelliteCodes[0])
	s.Equal("S39", view.SatelliteCodes[39])
}

func (s *RouteSessionSuite) TestUnknownLocation() {
	s.locations.On("GetHubs", mock.Anything, []string{"0000000"}).Return(nil, errors.ErrLocationNotFound)

	_, err := s.uc.SelectHub(s.ctx, s.session, "0000000")
	s.True(errors.Is(err, errors.ErrLocationNotFound))

	view, _ := s.uc.GetSession(s.session)
	s.Empty(view.HubCodes)
}

func (s *RouteSessionSuite) TestSelectAirstrip() {
	strip := domain.Coordinate{Lat: -7.148, Lon: -34.95}
	withStrips := domain.NewHub("2504010", "Campina Grande (aeroporto)", "PB", hubCampina.Coordinate, 0)
	withStrips.Airstrips = []domain.Coordinate{strip}
	s.locations.On("GetHubs", mock.Anything, []string{"2504010"}).Return([]domain.Hub{withStrips}, nil)

	_, err := s.uc.SelectAirstrip(s.ctx, s.session, "2504010", 0)
	s.True(errors.Is(err, errors.ErrInvalidRequest), "hub must be selected first")

	_, err = s.uc.SelectHub(s.ctx, s.session, "2504010")
	s.Require().NoError(err)

	_, err = s.uc.SelectAirstrip(s.ctx, s.session, "2504010", 3)
	s.True(errors.Is(err, errors.ErrInvalidRequest))

	view, err := s.uc.SelectAirstrip(s.ctx, s.session, "2504010", 0)
	s.Require().NoError(err)
	s.Equal(map[string]int{"2504010": 0}, view.Airstrips)

	s.assembler.On("AssembleRoute", mock.Anything, mock.MatchedBy(func(hubs []domain.Hub) bool {
		return len(hubs) == 1 && hubs[0].SelectedAirstrip != nil && *hubs[0].SelectedAirstrip == strip
	}), mock.Anything, mock.Anything).Return(&domain.Route{ID: "r"}, nil).Once()
	s.computeOK()
	s.assembler.AssertExpectations(s.T())

	view, err = s.uc.SelectAirstrip(s.ctx, s.session, "2504010", usecase.NoAirstrip)
	s.Require().NoError(err)
	s.Empty(view.Airstrips)
	s.False(view.HasRoute)
}

func (s *RouteSessionSuite) TestAssignSatellite() {
	s.selectBoth()

	_, err := s.uc.AssignSatellite(s.session, "9999999", hubJoaoPessoa.Code)
	s.True(errors.Is(err, errors.ErrInvalidRequest))

	view, err := s.uc.AssignSatellite(s.session, satCabedelo.Code, hubCampina.Code)
	s.Require().NoError(err)
	s.Equal(hubCampina.Code, view.Assignments[satCabedelo.Code])

	s.assembler.On("AssembleRoute", mock.Anything, mock.Anything, mock.MatchedBy(func(sats []domain.Satellite) bool {
		return len(sats) == 1 && sats[0].AssignedHub == hubCampina.Code
	}), mock.Anything).Return(&domain.Route{ID: "r"}, nil).Once()
	s.computeOK()
	s.assembler.AssertExpectations(s.T())
}

func (s *RouteSessionSuite) TestDeselectHubDropsPins() {
	s.selectBoth()

	_, err := s.uc.AssignSatellite(s.session, satCabedelo.Code, hubJoaoPessoa.Code)
	s.Require().NoError(err)

	view, err := s.uc.DeselectHub(s.session, hubJoaoPessoa.Code)
	s.Require().NoError(err)
	s.Empty(view.HubCodes)
	s.Empty(view.Assignments)
}

func (s *RouteSessionSuite) TestContractViolationSurfaces() {
	s.assembler.On("AssembleRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.ErrInvalidLegRequest)
	s.selectBoth()

	route, _, err := s.uc.ComputeRoute(s.ctx, s.session)
	s.Nil(route)
	s.True(errors.Is(err, errors.ErrInvalidLegRequest))
}

func (s *RouteSessionSuite) TestEmptySelection() {
	_, _, err := s.uc.ComputeRoute(s.ctx, s.session)
	s.True(errors.Is(err, errors.ErrEmptySelection))
	s.assembler.AssertNotCalled(s.T(), "AssembleRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *RouteSessionSuite) TestSessionNotFound() {
	_, err := s.uc.GetSession(uuid.New())
	s.True(errors.Is(err, errors.ErrSessionNotFound))

	_, _, err = s.uc.ComputeRoute(s.ctx, uuid.New())
	s.True(errors.Is(err, errors.ErrSessionNotFound))

	s.Require().NoError(s.uc.DeleteSession(s.session))
	_, err = s.uc.GetRoute(s.session)
	s.True(errors.Is(err, errors.ErrSessionNotFound))
}

func (s *RouteSessionSuite) TestSweepIdleSessions() {
	s.clk.Advance(30 * time.Minute)
	other, err := s.uc.CreateSession("other", nil)
	s.Require().NoError(err)

	s.clk.Advance(30 * time.Minute)
	s.Equal(1, s.uc.Sweep())
	s.Equal(1, s.uc.Len())

	_, err = s.uc.GetSession(other.ID)
	s.NoError(err)
}

func TestRouteSessionUsecase_StaleComputationIsNotDisplayed(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(testNow)
	locations := &MockLocationRepository{}
	assembler := &MockAssembler{}
	logger := zap.NewNop()

	planner := usecase.NewRoutePlanner(assembler, usecase.NewRouteCache(time.Hour, clk), logger)
	uc := usecase.NewRouteSessionUsecase(
		usecase.NewRouteUsecase(locations, planner, 40, logger),
		domain.DefaultRouteConfiguration(200), 0, clk, logger)

	view, err := uc.CreateSession("tester", nil)
	require.NoError(t, err)

	locations.On("GetHubs", mock.Anything, []string{hubJoaoPessoa.Code}).Return([]domain.Hub{hubJoaoPessoa}, nil)
	locations.On("GetHubs", mock.Anything, []string{hubCampina.Code}).Return([]domain.Hub{hubCampina}, nil)
	_, err = uc.SelectHub(ctx, view.ID, hubJoaoPessoa.Code)
	require.NoError(t, err)

	// выбор меняется, пока маршрут считается
	assembler.On("AssembleRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			_, err := uc.SelectHub(ctx, view.ID, hubCampina.Code)
			assert.NoError(t, err)
		}).
		Return(&domain.Route{ID: "stale"}, nil).Once()

	route, _, err := uc.ComputeRoute(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "stale", route.ID)

	_, err = uc.GetRoute(view.ID)
	assert.True(t, errors.Is(err, errors.ErrRouteNotComputed))
}
