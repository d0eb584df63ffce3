package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/clock"
	"github.com/route-composer/internal/pkg/errors"
	"github.com/route-composer/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouteUsecase(locations *MockLocationRepository, asm *MockAssembler) *usecase.RouteUsecase {
	logger := zap.NewNop()
	planner := usecase.NewRoutePlanner(asm, usecase.NewRouteCache(time.Hour, clock.NewFake(testNow)), logger)
	return usecase.NewRouteUsecase(locations, planner, 40, logger)
}

func TestRouteUsecase_Compute(t *testing.T) {
	ctx := context.Background()
	locations := &MockLocationRepository{}
	asm := &MockAssembler{}
	uc := newRouteUsecase(locations, asm)

	locations.On("GetHubs", ctx, []string{hubJoaoPessoa.Code}).Return([]domain.Hub{hubJoaoPessoa}, nil)
	locations.On("GetSatellites", ctx, []string{satCabedelo.Code}).Return([]domain.Satellite{satCabedelo}, nil)
	asm.On("AssembleRoute", ctx, []domain.Hub{hubJoaoPessoa}, []domain.Satellite{satCabedelo}, mock.Anything).
		Return(&domain.Route{ID: "r"}, nil).Once()

	sel := usecase.Selection{HubCodes: []string{hubJoaoPessoa.Code}, SatelliteCodes: []string{satCabedelo.Code}}
	route, cached, err := uc.Compute(ctx, sel, domain.DefaultRouteConfiguration(200))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "r", route.ID)

	_, cached, err = uc.Compute(ctx, sel, domain.DefaultRouteConfiguration(200))
	require.NoError(t, err)
	assert.True(t, cached)

	asm.AssertExpectations(t)
}

func TestRouteUsecase_Compute_Guards(t *testing.T) {
	uc := newRouteUsecase(&MockLocationRepository{}, &MockAssembler{})
	cfg := domain.DefaultRouteConfiguration(200)

	_, _, err := uc.Compute(context.Background(), usecase.Selection{}, cfg)
	assert.True(t, errors.Is(err, errors.ErrEmptySelection))

	big := usecase.Selection{}
	for i := 0; i < 41; i++ {
		big.SatelliteCodes = append(big.SatelliteCodes, fmt.Sprintf("S%02d", i))
	}
	_, _, err = uc.Compute(context.Background(), big, cfg)
	assert.True(t, errors.Is(err, errors.ErrSelectionTooLarge))
}

func TestRouteUsecase_Resolve(t *testing.T) {
	ctx := context.Background()
	locations := &MockLocationRepository{}
	uc := newRouteUsecase(locations, &MockAssembler{})

	strip := domain.Coordinate{Lat: -7.269, Lon: -35.895}
	campina := hubCampina
	campina.Airstrips = []domain.Coordinate{strip}
	locations.On("GetHubs", ctx, []string{hubJoaoPessoa.Code, hubCampina.Code}).
		Return([]domain.Hub{hubJoaoPessoa, campina}, nil)
	locations.On("GetSatellites", ctx, []string{satQueimadas.Code}).
		Return([]domain.Satellite{satQueimadas}, nil)

	hubs, sats, err := uc.Resolve(ctx, usecase.Selection{
		HubCodes:       []string{hubJoaoPessoa.Code, hubCampina.Code},
		SatelliteCodes: []string{satQueimadas.Code},
		Airstrips:      map[string]int{hubCampina.Code: 0, hubJoaoPessoa.Code: usecase.NoAirstrip},
		Assignments:    map[string]string{satQueimadas.Code: hubJoaoPessoa.Code},
	})
	require.NoError(t, err)

	assert.Nil(t, hubs[0].SelectedAirstrip)
	require.NotNil(t, hubs[1].SelectedAirstrip)
	assert.Equal(t, strip, *hubs[1].SelectedAirstrip)
	assert.Equal(t, hubJoaoPessoa.Code, sats[0].AssignedHub)

	_, _, err = uc.Resolve(ctx, usecase.Selection{
		HubCodes:  []string{hubJoaoPessoa.Code, hubCampina.Code},
		Airstrips: map[string]int{hubJoaoPessoa.Code: 0},
	})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
