package usecase

import (
	"context"
	"fmt"

	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/errors"
	"github.com/route-composer/internal/pkg/utils"
	"go.uber.org/zap"
)

// estimatedSpeedKmh - скорость для оценки дорожного участка по прямой
const estimatedSpeedKmh = 60.0

// RoadRouter - дорожные маршруты через шлюз провайдера
type RoadRouter interface {
	ComputeRoadRoute(ctx context.Context, origin, destination domain.Coordinate, waypoints []domain.Coordinate) (*domain.RoadRouteResult, error)
}

// LegBuilder строит авиа- и дорожные участки
type LegBuilder struct {
	router RoadRouter
	logger *zap.Logger
}

func NewLegBuilder(router RoadRouter, logger *zap.Logger) *LegBuilder {
	return &LegBuilder{router: router, logger: logger}
}

// BuildAirLeg строит перелёт между полюсами. Для каждого конца берётся выбранная полоса,
// если она задана и не вырождена (0,0), иначе координата самого полюса.
// Ошибка возможна только при невалидной крейсерской скорости.
func BuildAirLeg(origin, destination domain.Hub, cfg domain.RouteConfiguration) (domain.Leg, error) {
	from, fromStrip := airEndpoint(origin)
	to, toStrip := airEndpoint(destination)

	distance := utils.DistanceKm(from, to)
	minutes, err := utils.FlightMinutes(distance, cfg.CruiseSpeedKmh)
	if err != nil {
		return domain.Leg{}, err
	}

	return domain.NewAirLeg(origin, destination, from, to, fromStrip, toStrip, distance, minutes), nil
}

func airEndpoint(h domain.Hub) (domain.Coordinate, bool) {
	if h.SelectedAirstrip != nil && !h.SelectedAirstrip.IsDegenerate() {
		return *h.SelectedAirstrip, true
	}
	return h.Coordinate, false
}

// ValidateRoadLeg - дорожный участок между двумя полюсами запрещён
func ValidateRoadLeg(origin, destination domain.Location) error {
	if origin.IsHub() && destination.IsHub() {
		return errors.ErrInvalidLegRequest.WithMessage(
			"road leg %s -> %s joins two hubs; hub-to-hub legs must be flown (enable prefer air or set an air override)",
			origin.Code, destination.Code)
	}
	return nil
}

// BuildRoadLeg строит дорожный участок через провайдера. Любая ошибка провайдера
// превращается в оценку по прямой с пометкой IsEstimated; наружу уходят только нарушения контракта.
func (b *LegBuilder) BuildRoadLeg(
	ctx context.Context,
	origin, destination domain.Location,
	cfg domain.RouteConfiguration,
) (domain.Leg, error) {
	if err := ValidateRoadLeg(origin, destination); err != nil {
		return domain.Leg{}, err
	}

	if cfg.MaxRoadDistanceKm != nil {
		if straight := utils.DistanceKm(origin.Coordinate, destination.Coordinate); straight > *cfg.MaxRoadDistanceKm {
			return estimatedRoadLeg(origin, destination, domain.EstimateDistanceLimit), nil
		}
	}

	result, err := b.router.ComputeRoadRoute(ctx, origin.Coordinate, destination.Coordinate, nil)
	if err != nil {
		if errors.IsContractViolation(err) {
			return domain.Leg{}, err
		}
		reason := estimateReason(err)
		b.logger.Warn("Road leg estimated",
			zap.String("origin", origin.Code),
			zap.String("destination", destination.Code),
			zap.String("reason", string(reason)),
			zap.Error(err))
		return estimatedRoadLeg(origin, destination, reason), nil
	}

	return domain.NewRoadLeg(origin, destination, *result), nil
}

func estimateReason(err error) domain.EstimateReason {
	switch {
	case errors.Is(err, errors.ErrQuotaExceeded):
		return domain.EstimateQuotaExceeded
	case errors.Is(err, errors.ErrRouteNotFound):
		return domain.EstimateRouteNotFound
	default:
		return domain.EstimateProviderUnavailable
	}
}

func estimatedRoadLeg(origin, destination domain.Location, reason domain.EstimateReason) domain.Leg {
	distance := utils.DistanceKm(origin.Coordinate, destination.Coordinate)
	minutes := distance / estimatedSpeedKmh * 60

	instruction := domain.Instruction{
		Maneuver: "straight-line",
		Description: fmt.Sprintf("Straight-line estimate from %s to %s: %.1f km at %.0f km/h",
			displayName(origin), displayName(destination), distance, estimatedSpeedKmh),
		DistanceKm:      distance,
		DurationMinutes: minutes,
		Coordinate:      origin.Coordinate,
	}
	return domain.NewEstimatedRoadLeg(origin, destination, distance, minutes, reason, instruction)
}

func displayName(l domain.Location) string {
	if l.Name != "" {
		return l.Name
	}
	return l.Code
}
