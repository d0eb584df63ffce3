package domain

import "time"

// RouteStatistics - агрегаты по маршруту
type RouteStatistics struct {
	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalDurationMinutes float64 `json:"total_duration_minutes"`
	AirDistanceKm        float64 `json:"air_distance_km"`
	AirDurationMinutes   float64 `json:"air_duration_minutes"`
	RoadDistanceKm       float64 `json:"road_distance_km"`
	RoadDurationMinutes  float64 `json:"road_duration_minutes"`
	HubsVisited          int     `json:"hubs_visited"`
	SatellitesVisited    int     `json:"satellites_visited"`
	AirLegs              int     `json:"air_legs"`
	RoadLegs             int     `json:"road_legs"`
	EstimatedLegs        int     `json:"estimated_legs"`
}

// WarningCode - маркер деградации точности маршрута
type WarningCode string

const (
	WarningEstimatedLegs WarningCode = "ESTIMATED_LEGS"
	WarningOrderFallback WarningCode = "ORDER_FALLBACK"
	WarningQuotaExceeded WarningCode = "QUOTA_EXCEEDED"
)

// RouteWarning - предупреждение, которое UI показывает рядом с маршрутом
type RouteWarning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
	Subject string      `json:"subject,omitempty"`
}

// Route - собранный маршрут. Создаётся только сборщиком маршрута и не изменяется после создания.
// Порядок посещения задаётся порядком участков.
type Route struct {
	ID          string          `json:"id"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Legs        []Leg           `json:"legs"`
	Stops       []Location      `json:"stops"`
	Statistics  RouteStatistics `json:"statistics"`
	Warnings    []RouteWarning  `json:"warnings,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Degraded - в маршруте есть оценённые участки или упрощённая оптимизация
func (r *Route) Degraded() bool {
	return len(r.Warnings) > 0
}

// HasWarning проверяет наличие предупреждения с кодом code
func (r *Route) HasWarning(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
