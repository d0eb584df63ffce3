package domain

import "github.com/google/uuid"

// Имена стримов
const (
	StreamRouteCompute = "stream:route:compute"
	StreamRouteDone    = "stream:route:done"
)

// RouteComputeEvent - входящий запрос на расчёт маршрута.
// Configuration - частичная конфигурация в формате тела HTTP-запроса (cruise_speed_kmh, hub_pair_modes, ...)
type RouteComputeEvent struct {
	RequestID      uuid.UUID              `json:"request_id"`
	Caller         string                 `json:"caller,omitempty"`
	HubCodes       []string               `json:"hub_codes"`
	SatelliteCodes []string               `json:"satellite_codes"`
	Airstrips      map[string]int         `json:"airstrips,omitempty"`
	Assignments    map[string]string      `json:"assignments,omitempty"`
	Configuration  map[string]interface{} `json:"configuration,omitempty"`
}

// RouteDoneEvent - результат расчёта: либо Route, либо ErrorCode/Error
type RouteDoneEvent struct {
	RequestID uuid.UUID   `json:"request_id"`
	Route     interface{} `json:"route,omitempty"`
	Cached    bool        `json:"cached,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
