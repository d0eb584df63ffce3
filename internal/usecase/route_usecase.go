package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/domain/repository"
	"github.com/route-composer/internal/pkg/errors"
	"go.uber.org/zap"
)

// NoAirstrip - полоса не выбрана, используется координата полюса
const NoAirstrip = -1

// Selection - рабочий выбор в виде кодов каталога
type Selection struct {
	HubCodes       []string
	SatelliteCodes []string
	// Airstrips - индекс выбранной полосы полюса в списке его полос
	Airstrips map[string]int
	// Assignments - ручное назначение периферии полюсу (код периферии -> код полюса)
	Assignments map[string]string
}

// Size - общее число выбранных локаций
func (s Selection) Size() int {
	return len(s.HubCodes) + len(s.SatelliteCodes)
}

// RouteUsecase разрешает коды через каталог и считает маршрут через RoutePlanner
type RouteUsecase struct {
	locations    repository.LocationRepository
	planner      *RoutePlanner
	maxSelection int
	logger       *zap.Logger
}

func NewRouteUsecase(
	locations repository.LocationRepository,
	planner *RoutePlanner,
	maxSelection int,
	logger *zap.Logger,
) *RouteUsecase {
	return &RouteUsecase{
		locations:    locations,
		planner:      planner,
		maxSelection: maxSelection,
		logger:       logger,
	}
}

func (uc *RouteUsecase) MaxSelection() int {
	return uc.maxSelection
}

// CheckSelectionSize - защита квоты провайдера от слишком большого выбора
func (uc *RouteUsecase) CheckSelectionSize(size int) error {
	if size > uc.maxSelection {
		return errors.ErrSelectionTooLarge.WithMessage(
			"selection holds %d locations, at most %d hubs and satellites combined are allowed", size, uc.maxSelection)
	}
	return nil
}

// Compute считает маршрут для выбора. Второй результат - маршрут взят из кэша.
func (uc *RouteUsecase) Compute(
	ctx context.Context,
	sel Selection,
	cfg domain.RouteConfiguration,
) (*domain.Route, bool, error) {
	if sel.Size() == 0 {
		return nil, false, errors.ErrEmptySelection
	}
	if err := uc.CheckSelectionSize(sel.Size()); err != nil {
		return nil, false, err
	}

	hubs, satellites, err := uc.Resolve(ctx, sel)
	if err != nil {
		return nil, false, err
	}

	route, cached, err := uc.planner.GetOrCompute(ctx, hubs, satellites, cfg)
	if err != nil {
		return nil, false, err
	}

	uc.logger.Info("Route computed",
		zap.String("route_id", route.ID),
		zap.String("caller", CallerFrom(ctx)),
		zap.Int("hubs", len(hubs)),
		zap.Int("satellites", len(satellites)),
		zap.Bool("cached", cached),
		zap.Bool("degraded", route.Degraded()))

	return route, cached, nil
}

// Resolve загружает локации из каталога и применяет выбранные полосы и ручные назначения
func (uc *RouteUsecase) Resolve(ctx context.Context, sel Selection) ([]domain.Hub, []domain.Satellite, error) {
	var (
		hubs       []domain.Hub
		satellites []domain.Satellite
		err        error
	)

	if len(sel.HubCodes) > 0 {
		hubs, err = uc.locations.GetHubs(ctx, sel.HubCodes)
		if err != nil {
			return nil, nil, err
		}
		hubs = slices.Clone(hubs)
	}
	if len(sel.SatelliteCodes) > 0 {
		satellites, err = uc.locations.GetSatellites(ctx, sel.SatelliteCodes)
		if err != nil {
			return nil, nil, err
		}
		satellites = slices.Clone(satellites)
	}

	for i, hub := range hubs {
		idx, ok := sel.Airstrips[hub.Code]
		if !ok || idx == NoAirstrip {
			continue
		}
		strip, err := AirstripAt(hub, idx)
		if err != nil {
			return nil, nil, err
		}
		hubs[i] = hub.WithAirstrip(&strip)
	}

	for i, sat := range satellites {
		if hubCode, ok := sel.Assignments[sat.Code]; ok {
			satellites[i] = sat.AssignedTo(hubCode)
		}
	}

	return hubs, satellites, nil
}

// AirstripAt возвращает полосу полюса по индексу
func AirstripAt(hub domain.Hub, idx int) (domain.Coordinate, error) {
	if idx < 0 || idx >= len(hub.Airstrips) {
		return domain.Coordinate{}, errors.ErrInvalidRequest.WithMessage(
			"hub %s has %d airstrip(s), index %d is out of range", hub.Code, len(hub.Airstrips), idx)
	}
	return hub.Airstrips[idx], nil
}

func describeSelection(sel Selection) string {
	return fmt.Sprintf("%d hub(s), %d satellite(s)", len(sel.HubCodes), len(sel.SatelliteCodes))
}
