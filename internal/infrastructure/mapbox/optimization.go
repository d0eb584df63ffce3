package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/errors"
	"go.uber.org/zap"
)

type optimizationResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Waypoints []struct {
		WaypointIndex int `json:"waypoint_index"`
		TripsIndex    int `json:"trips_index"`
	} `json:"waypoints"`
	Trips []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"trips"`
}

func (c *client) MaxOptimizationPoints() int {
	return maxOptimizationPoints
}

// OptimizeTrip вызывает Optimization API v1.
// Координаты: start, waypoints..., [end]; start всегда первый, end (если задан) последний.
func (c *client) OptimizeTrip(
	ctx context.Context,
	start domain.Coordinate,
	end *domain.Coordinate,
	waypoints []domain.Coordinate,
) (*domain.WaypointOrder, error) {
	points := make([]domain.Coordinate, 0, len(waypoints)+2)
	points = append(points, start)
	points = append(points, waypoints...)
	if end != nil {
		points = append(points, *end)
	}
	if len(points) > maxOptimizationPoints {
		return nil, errors.ErrProviderUnavailable.WithMessage(
			"optimization request has %d coordinates, provider accepts %d", len(points), maxOptimizationPoints)
	}

	path := fmt.Sprintf("/optimized-trips/v1/%s/%s", c.profile, formatCoordinates(points))
	query := url.Values{}
	query.Set("source", "first")
	if end != nil {
		query.Set("roundtrip", "false")
		query.Set("destination", "last")
	} else {
		query.Set("roundtrip", "true")
	}

	c.logger.Debug("Calling Mapbox Optimization API",
		zap.Int("waypoints", len(waypoints)),
		zap.Bool("round_trip", end == nil))

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, path, query)
	})
	if err != nil {
		c.logger.Warn("Mapbox Optimization request failed", zap.Error(err))
		return nil, classifyError(err, errors.ErrRouteNotFound)
	}
	defer resp.Body.Close()

	var decoded optimizationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Error("Failed to decode optimization response", zap.Error(err))
		return nil, errors.Wrap(errors.ErrProviderUnavailable, fmt.Errorf("failed to decode response: %w", err))
	}

	if decoded.Code != "Ok" {
		return nil, classifyCode(decoded.Code, decoded.Message)
	}
	if len(decoded.Trips) == 0 {
		return nil, errors.ErrRouteNotFound
	}
	if len(decoded.Waypoints) != len(points) {
		return nil, errors.ErrProviderUnavailable.WithMessage(
			"optimization returned %d waypoints for %d coordinates", len(decoded.Waypoints), len(points))
	}

	// waypoints[i] описывает i-ю входную координату; waypoint_index - её позиция в поездке
	order := make([]int, len(waypoints))
	for i := range waypoints {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return decoded.Waypoints[order[a]+1].WaypointIndex < decoded.Waypoints[order[b]+1].WaypointIndex
	})

	trip := decoded.Trips[0]
	return &domain.WaypointOrder{
		Order:                order,
		TotalDistanceKm:      trip.Distance / 1000,
		TotalDurationMinutes: trip.Duration / 60,
	}, nil
}
