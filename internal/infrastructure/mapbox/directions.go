package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/errors"
	"go.uber.org/zap"
)

type directionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"` // метры
		Duration float64 `json:"duration"` // секунды
		Geometry string  `json:"geometry"`
		Legs     []struct {
			Steps []directionsStep `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

type directionsStep struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Name     string  `json:"name"`
	Maneuver struct {
		Type        string    `json:"type"`
		Modifier    string    `json:"modifier"`
		Instruction string    `json:"instruction"`
		Location    []float64 `json:"location"`
	} `json:"maneuver"`
}

// Directions возвращает дорожный маршрут через все точки в заданном порядке
func (c *client) Directions(ctx context.Context, points []domain.Coordinate) (*domain.RoadRouteResult, error) {
	if len(points) < 2 {
		return nil, errors.ErrInvalidLegRequest.WithMessage("directions need at least 2 points, got %d", len(points))
	}
	if len(points) > maxDirectionsPoints {
		return nil, errors.ErrTooManyWaypoints.WithMessage("directions accept at most %d points, got %d", maxDirectionsPoints, len(points))
	}

	path := fmt.Sprintf("/directions/v5/%s/%s", c.profile, formatCoordinates(points))
	query := url.Values{}
	query.Set("geometries", "polyline")
	query.Set("steps", "true")
	query.Set("overview", "full")

	c.logger.Debug("Calling Mapbox Directions API", zap.Int("points", len(points)))

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, path, query)
	})
	if err != nil {
		c.logger.Warn("Mapbox Directions request failed", zap.Error(err))
		return nil, classifyError(err, errors.ErrRouteNotFound)
	}
	defer resp.Body.Close()

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Error("Failed to decode directions response", zap.Error(err))
		return nil, errors.Wrap(errors.ErrProviderUnavailable, fmt.Errorf("failed to decode response: %w", err))
	}

	if decoded.Code != "Ok" {
		return nil, classifyCode(decoded.Code, decoded.Message)
	}
	if len(decoded.Routes) == 0 {
		return nil, errors.ErrRouteNotFound
	}

	route := decoded.Routes[0]
	result := &domain.RoadRouteResult{
		DistanceKm:      route.Distance / 1000,
		DurationMinutes: route.Duration / 60,
		EncodedPolyline: route.Geometry,
	}
	for _, leg := range route.Legs {
		for _, step := range leg.Steps {
			result.Instructions = append(result.Instructions, step.toInstruction())
		}
	}

	c.logger.Debug("Mapbox Directions API call successful",
		zap.Float64("distance_km", result.DistanceKm),
		zap.Int("instructions", len(result.Instructions)))

	return result, nil
}

func (s directionsStep) toInstruction() domain.Instruction {
	maneuver := s.Maneuver.Type
	if s.Maneuver.Modifier != "" {
		maneuver += " " + s.Maneuver.Modifier
	}
	description := s.Maneuver.Instruction
	if description == "" {
		description = s.Name
	}
	var coord domain.Coordinate
	if len(s.Maneuver.Location) == 2 {
		coord = domain.Coordinate{Lat: s.Maneuver.Location[1], Lon: s.Maneuver.Location[0]}
	}
	return domain.Instruction{
		Maneuver:        maneuver,
		Description:     description,
		DistanceKm:      s.Distance / 1000,
		DurationMinutes: s.Duration / 60,
		Coordinate:      coord,
	}
}
