package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/clock"
	"github.com/route-composer/internal/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// legSlot - позиция участка в маршруте; для авиа-участков leg уже построен
type legSlot struct {
	origin      domain.Location
	destination domain.Location
	air         bool
	leg         domain.Leg
}

// RouteAssembler собирает маршрут из выбранных полюсов и периферий
type RouteAssembler struct {
	legs          *LegBuilder
	optimizer     *SequenceOptimizer
	maxConcurrent int
	clock         clock.Clock
	logger        *zap.Logger
}

func NewRouteAssembler(
	legs *LegBuilder,
	optimizer *SequenceOptimizer,
	maxConcurrent int,
	clk clock.Clock,
	logger *zap.Logger,
) *RouteAssembler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &RouteAssembler{
		legs:          legs,
		optimizer:     optimizer,
		maxConcurrent: maxConcurrent,
		clock:         clk,
		logger:        logger,
	}
}

// AssembleRoute строит маршрут. Нарушения контракта прерывают сборку; ошибки провайдера
// уже поглощены оценёнными участками и упрощённым порядком и отражаются в Warnings.
// Порядок участков соответствует порядку посещения независимо от порядка завершения запросов.
func (a *RouteAssembler) AssembleRoute(
	ctx context.Context,
	hubs []domain.Hub,
	satellites []domain.Satellite,
	cfg domain.RouteConfiguration,
) (*domain.Route, error) {
	if len(hubs) == 0 && len(satellites) == 0 {
		return nil, errors.ErrEmptySelection
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		slots    []legSlot
		stops    []domain.Location
		warnings []domain.RouteWarning
		err      error
	)

	if len(hubs) == 0 {
		ordered := OrderSatellitesOpen(satellites)
		for i, s := range ordered {
			stops = append(stops, s.Location)
			if i > 0 {
				slots = append(slots, legSlot{origin: ordered[i-1].Location, destination: s.Location})
			}
		}
	} else {
		slots, stops, warnings, err = a.planHubTour(ctx, hubs, satellites, cfg)
		if err != nil {
			return nil, err
		}
	}

	for _, s := range slots {
		if !s.air {
			if err := ValidateRoadLeg(s.origin, s.destination); err != nil {
				return nil, err
			}
		}
	}

	legs, err := a.buildLegs(ctx, slots, cfg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrRequestCancelled, err)
	}

	warnings = append(warnings, legWarnings(legs)...)

	route := &domain.Route{
		ID:         uuid.NewString(),
		Legs:       legs,
		Stops:      stops,
		Statistics: ComputeStatistics(legs, stops),
		Warnings:   warnings,
		CreatedAt:  a.clock.Now(),
	}

	a.logger.Debug("Route assembled",
		zap.String("route_id", route.ID),
		zap.Int("legs", len(legs)),
		zap.Float64("distance_km", route.Statistics.TotalDistanceKm),
		zap.Int("warnings", len(warnings)))

	return route, nil
}

// planHubTour: назначение периферий, порядок полюсов, порядок периферий каждого полюса
// (параллельно, с ограничением), затем план участков "полюс -> периферии -> полюс -> следующий полюс"
func (a *RouteAssembler) planHubTour(
	ctx context.Context,
	hubs []domain.Hub,
	satellites []domain.Satellite,
	cfg domain.RouteConfiguration,
) ([]legSlot, []domain.Location, []domain.RouteWarning, error) {
	assignment := AssignSatellitesToNearestHub(hubs, satellites)
	ordered := OrderHubs(hubs, cfg)

	stars := make([]SatelliteOrder, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrent)
	for i, hub := range ordered {
		sats := assignment[hub.Code]
		if len(sats) == 0 {
			continue
		}
		g.Go(func() error {
			order, err := a.optimizer.OrderSatellitesForHub(gctx, hub, sats, cfg)
			if err != nil {
				return err
			}
			stars[i] = order
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	var (
		slots    []legSlot
		stops    []domain.Location
		warnings []domain.RouteWarning
	)
	for i, hub := range ordered {
		stops = append(stops, hub.Location)

		star := stars[i].Satellites
		if stars[i].FallbackReason != nil {
			warnings = append(warnings, domain.RouteWarning{
				Code:    domain.WarningOrderFallback,
				Message: fmt.Sprintf("Satellite order for %s was computed locally (nearest neighbor)", displayName(hub.Location)),
				Subject: hub.Code,
			})
			if errors.Is(stars[i].FallbackReason, errors.ErrQuotaExceeded) {
				warnings = append(warnings, domain.RouteWarning{
					Code:    domain.WarningQuotaExceeded,
					Message: errors.ErrQuotaExceeded.Message,
					Subject: hub.Code,
				})
			}
		}

		prev := hub.Location
		for _, s := range star {
			slots = append(slots, legSlot{origin: prev, destination: s.Location})
			stops = append(stops, s.Location)
			prev = s.Location
		}
		if len(star) > 0 {
			slots = append(slots, legSlot{origin: prev, destination: hub.Location})
		}

		if i == len(ordered)-1 {
			continue
		}
		next := ordered[i+1]
		if cfg.HubPairMode(hub.Code, next.Code) == domain.ModeAir {
			leg, err := BuildAirLeg(hub, next, cfg)
			if err != nil {
				return nil, nil, nil, err
			}
			slots = append(slots, legSlot{origin: hub.Location, destination: next.Location, air: true, leg: leg})
		} else {
			slots = append(slots, legSlot{origin: hub.Location, destination: next.Location})
		}
	}

	return slots, stops, warnings, nil
}

// buildLegs строит дорожные участки параллельно (не более maxConcurrent), каждый в свою позицию
func (a *RouteAssembler) buildLegs(ctx context.Context, slots []legSlot, cfg domain.RouteConfiguration) ([]domain.Leg, error) {
	legs := make([]domain.Leg, len(slots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrent)
	for i, slot := range slots {
		if slot.air {
			legs[i] = slot.leg
			continue
		}
		g.Go(func() error {
			leg, err := a.legs.BuildRoadLeg(gctx, slot.origin, slot.destination, cfg)
			if err != nil {
				return err
			}
			legs[i] = leg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return legs, nil
}

func legWarnings(legs []domain.Leg) []domain.RouteWarning {
	estimated := 0
	quota := false
	for _, l := range legs {
		if !l.IsEstimated() {
			continue
		}
		estimated++
		if l.Road.EstimateReason == domain.EstimateQuotaExceeded {
			quota = true
		}
	}

	var warnings []domain.RouteWarning
	if estimated > 0 {
		warnings = append(warnings, domain.RouteWarning{
			Code:    domain.WarningEstimatedLegs,
			Message: fmt.Sprintf("%d road leg(s) are straight-line estimates", estimated),
		})
	}
	if quota {
		warnings = append(warnings, domain.RouteWarning{
			Code:    domain.WarningQuotaExceeded,
			Message: errors.ErrQuotaExceeded.Message,
		})
	}
	return warnings
}

// ComputeStatistics суммирует участки по видам и считает уникальные посещённые локации
func ComputeStatistics(legs []domain.Leg, stops []domain.Location) domain.RouteStatistics {
	var st domain.RouteStatistics
	for _, l := range legs {
		st.TotalDistanceKm += l.DistanceKm
		st.TotalDurationMinutes += l.DurationMinutes
		if l.IsAir() {
			st.AirLegs++
			st.AirDistanceKm += l.DistanceKm
			st.AirDurationMinutes += l.DurationMinutes
			continue
		}
		st.RoadLegs++
		st.RoadDistanceKm += l.DistanceKm
		st.RoadDurationMinutes += l.DurationMinutes
		if l.IsEstimated() {
			st.EstimatedLegs++
		}
	}

	seen := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		if _, ok := seen[s.Code]; ok {
			continue
		}
		seen[s.Code] = struct{}{}
		if s.IsHub() {
			st.HubsVisited++
		} else {
			st.SatellitesVisited++
		}
	}
	return st
}
