package domain

// RoadRouteResult - результат дорожного маршрута от провайдера
type RoadRouteResult struct {
	DistanceKm      float64       `json:"distance_km"`
	DurationMinutes float64       `json:"duration_minutes"`
	EncodedPolyline string        `json:"encoded_polyline"`
	Path            []Coordinate  `json:"path,omitempty"`
	Instructions    []Instruction `json:"instructions"`
}

// WaypointOrder - оптимизированный порядок промежуточных точек
type WaypointOrder struct {
	Order                []int   `json:"order"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalDurationMinutes float64 `json:"total_duration_minutes"`
}

// GeocodeResult - лучший кандидат геокодинга
type GeocodeResult struct {
	Coordinate Coordinate `json:"coordinate"`
	PlaceName  string     `json:"place_name"`
	Relevance  float64    `json:"relevance"`
}
