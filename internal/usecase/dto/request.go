package dto

import (
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/errors"
)

// ConfigurationRequest - частичное обновление конфигурации маршрута; отсутствующие поля не меняются
type ConfigurationRequest struct {
	CruiseSpeedKmh         *float64 `json:"cruise_speed_kmh,omitempty" validate:"omitempty,gt=0,max=2000"`
	PreferAirBetweenHubs   *bool    `json:"prefer_air_between_hubs,omitempty"`
	OptimizeHubOrder       *bool    `json:"optimize_hub_order,omitempty"`
	OptimizeSatelliteOrder *bool    `json:"optimize_satellite_order,omitempty"`
	MaxRoadDistanceKm      *float64 `json:"max_road_distance_km,omitempty" validate:"omitempty,gt=0"`
	ClearMaxRoadDistance   bool     `json:"clear_max_road_distance,omitempty"`
	// HubPairModes - ключ "FROM>TO", значение air|road; пустая строка удаляет переопределение
	HubPairModes map[string]string `json:"hub_pair_modes,omitempty" validate:"omitempty,dive,keys,required,endkeys,omitempty,oneof=air road"`
}

// ToPatch переводит запрос в патч конфигурации
func (r *ConfigurationRequest) ToPatch() (domain.ConfigurationPatch, error) {
	patch := domain.ConfigurationPatch{
		CruiseSpeedKmh:         r.CruiseSpeedKmh,
		PreferAirBetweenHubs:   r.PreferAirBetweenHubs,
		OptimizeHubOrder:       r.OptimizeHubOrder,
		OptimizeSatelliteOrder: r.OptimizeSatelliteOrder,
		MaxRoadDistanceKm:      r.MaxRoadDistanceKm,
		ClearMaxRoadDistance:   r.ClearMaxRoadDistance,
	}
	if len(r.HubPairModes) == 0 {
		return patch, nil
	}

	patch.Overrides = make(map[domain.HubPair]domain.TravelMode, len(r.HubPairModes))
	for key, mode := range r.HubPairModes {
		pair, err := domain.ParseHubPair(key)
		if err != nil {
			return domain.ConfigurationPatch{}, errors.Wrap(errors.ErrInvalidConfiguration.WithMessage("%s", err.Error()), err)
		}
		patch.Overrides[pair] = domain.TravelMode(mode)
	}
	return patch, nil
}

// CreateSessionRequest - создание рабочей сессии
type CreateSessionRequest struct {
	Configuration *ConfigurationRequest `json:"configuration,omitempty" validate:"omitempty"`
}

// SelectAirstripRequest - выбор полосы полюса по индексу; -1 сбрасывает выбор
type SelectAirstripRequest struct {
	Index *int `json:"index" validate:"required,min=-1"`
}

// AssignSatelliteRequest - ручное закрепление периферии; пустой hub_code снимает закрепление
type AssignSatelliteRequest struct {
	HubCode string `json:"hub_code" validate:"omitempty,max=32"`
}

// ComputeRouteRequest - расчёт маршрута без сессии
type ComputeRouteRequest struct {
	HubCodes       []string              `json:"hub_codes" validate:"omitempty,max=40,dive,required,max=32"`
	SatelliteCodes []string              `json:"satellite_codes" validate:"omitempty,max=40,dive,required,max=32"`
	Airstrips      map[string]int        `json:"airstrips,omitempty" validate:"omitempty,dive,min=-1"`
	Assignments    map[string]string     `json:"assignments,omitempty"`
	Configuration  *ConfigurationRequest `json:"configuration,omitempty" validate:"omitempty"`
}
