package dto

import (
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/usecase"
)

// ConfigurationResponse - конфигурация с переопределениями в виде "FROM>TO"
type ConfigurationResponse struct {
	CruiseSpeedKmh         float64                      `json:"cruise_speed_kmh"`
	PreferAirBetweenHubs   bool                         `json:"prefer_air_between_hubs"`
	OptimizeHubOrder       bool                         `json:"optimize_hub_order"`
	OptimizeSatelliteOrder bool                         `json:"optimize_satellite_order"`
	MaxRoadDistanceKm      *float64                     `json:"max_road_distance_km,omitempty"`
	HubPairModes           map[string]domain.TravelMode `json:"hub_pair_modes"`
}

func NewConfigurationResponse(c domain.RouteConfiguration) ConfigurationResponse {
	return ConfigurationResponse{
		CruiseSpeedKmh:         c.CruiseSpeedKmh,
		PreferAirBetweenHubs:   c.PreferAirBetweenHubs,
		OptimizeHubOrder:       c.OptimizeHubOrder,
		OptimizeSatelliteOrder: c.OptimizeSatelliteOrder,
		MaxRoadDistanceKm:      c.MaxRoadDistanceKm,
		HubPairModes:           c.OverridesByKey(),
	}
}

// SessionResponse - состояние рабочей сессии
type SessionResponse struct {
	ID             string                `json:"id"`
	HubCodes       []string              `json:"hub_codes"`
	SatelliteCodes []string              `json:"satellite_codes"`
	Airstrips      map[string]int        `json:"airstrips,omitempty"`
	Assignments    map[string]string     `json:"assignments,omitempty"`
	Configuration  ConfigurationResponse `json:"configuration"`
	HasRoute       bool                  `json:"has_route"`
	Revision       uint64                `json:"revision"`
}

func NewSessionResponse(v usecase.SessionView) SessionResponse {
	return SessionResponse{
		ID:             v.ID.String(),
		HubCodes:       v.HubCodes,
		SatelliteCodes: v.SatelliteCodes,
		Airstrips:      v.Airstrips,
		Assignments:    v.Assignments,
		Configuration:  NewConfigurationResponse(v.Configuration),
		HasRoute:       v.HasRoute,
		Revision:       v.Revision,
	}
}

// RouteResponse - маршрут и признак попадания в кэш
type RouteResponse struct {
	Route  usecase.RouteDocument `json:"route"`
	Cached bool                  `json:"cached"`
}

func NewRouteResponse(route *domain.Route, cached bool) RouteResponse {
	return RouteResponse{Route: usecase.ExportRoute(route), Cached: cached}
}

// HealthResponse - состояние сервиса
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}
