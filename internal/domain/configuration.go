package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/route-composer/internal/pkg/errors"
)

// TravelMode - способ перемещения между полюсами
type TravelMode string

const (
	ModeAir  TravelMode = "air"
	ModeRoad TravelMode = "road"
)

// HubPair - упорядоченная пара полюсов (from -> to)
type HubPair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (p HubPair) String() string {
	return p.From + ">" + p.To
}

// ParseHubPair разбирает строку вида "FROM>TO"
func ParseHubPair(s string) (HubPair, error) {
	from, to, ok := strings.Cut(s, ">")
	if !ok || from == "" || to == "" {
		return HubPair{}, fmt.Errorf("invalid hub pair %q, expected FROM>TO", s)
	}
	return HubPair{From: from, To: to}, nil
}

// RouteConfiguration - чистая конфигурация без идентичности, сравнивается по значению
type RouteConfiguration struct {
	CruiseSpeedKmh         float64                `json:"cruise_speed_kmh"`
	PreferAirBetweenHubs   bool                   `json:"prefer_air_between_hubs"`
	OptimizeHubOrder       bool                   `json:"optimize_hub_order"`
	OptimizeSatelliteOrder bool                   `json:"optimize_satellite_order"`
	MaxRoadDistanceKm      *float64               `json:"max_road_distance_km,omitempty"`
	PerHubPairModeOverride map[HubPair]TravelMode `json:"-"`
}

// DefaultRouteConfiguration - конфигурация по умолчанию
func DefaultRouteConfiguration(cruiseSpeedKmh float64) RouteConfiguration {
	return RouteConfiguration{
		CruiseSpeedKmh:         cruiseSpeedKmh,
		PreferAirBetweenHubs:   true,
		OptimizeHubOrder:       true,
		OptimizeSatelliteOrder: true,
		PerHubPairModeOverride: map[HubPair]TravelMode{},
	}
}

// Validate проверяет инварианты конфигурации; нарушения - INVALID_CONFIGURATION
func (c RouteConfiguration) Validate() error {
	if c.CruiseSpeedKmh <= 0 || math.IsNaN(c.CruiseSpeedKmh) || math.IsInf(c.CruiseSpeedKmh, 0) {
		return errors.ErrInvalidConfiguration.WithMessage("cruise speed must be a positive number, got %g", c.CruiseSpeedKmh)
	}
	if c.MaxRoadDistanceKm != nil && (*c.MaxRoadDistanceKm <= 0 || math.IsNaN(*c.MaxRoadDistanceKm)) {
		return errors.ErrInvalidConfiguration.WithMessage("max road distance must be positive, got %g", *c.MaxRoadDistanceKm)
	}
	for pair, mode := range c.PerHubPairModeOverride {
		if pair.From == "" || pair.To == "" {
			return errors.ErrInvalidConfiguration.WithMessage("hub pair override has an empty code: %q", pair.String())
		}
		if mode != ModeAir && mode != ModeRoad {
			return errors.ErrInvalidConfiguration.WithMessage("hub pair %s has unknown mode %q", pair, mode)
		}
	}
	return nil
}

// HubPairMode - режим для упорядоченной пары полюсов
func (c RouteConfiguration) HubPairMode(from, to string) TravelMode {
	if mode, ok := c.PerHubPairModeOverride[HubPair{From: from, To: to}]; ok {
		return mode
	}
	if c.PreferAirBetweenHubs {
		return ModeAir
	}
	return ModeRoad
}

// Clone - глубокая копия (карта переопределений не разделяется)
func (c RouteConfiguration) Clone() RouteConfiguration {
	cp := c
	if c.MaxRoadDistanceKm != nil {
		v := *c.MaxRoadDistanceKm
		cp.MaxRoadDistanceKm = &v
	}
	cp.PerHubPairModeOverride = make(map[HubPair]TravelMode, len(c.PerHubPairModeOverride))
	for k, v := range c.PerHubPairModeOverride {
		cp.PerHubPairModeOverride[k] = v
	}
	return cp
}

// EqualIgnoringOverrides сравнивает конфигурации без учёта переопределений пар
func (c RouteConfiguration) EqualIgnoringOverrides(o RouteConfiguration) bool {
	a, b := c.Clone(), o.Clone()
	a.PerHubPairModeOverride, b.PerHubPairModeOverride = nil, nil
	return a.Canonical() == b.Canonical()
}

// Canonical - каноническое представление с фиксированным порядком полей
func (c RouteConfiguration) Canonical() string {
	var b strings.Builder
	b.WriteString("speed=")
	b.WriteString(strconv.FormatFloat(c.CruiseSpeedKmh, 'f', -1, 64))
	b.WriteString(";air=")
	b.WriteString(strconv.FormatBool(c.PreferAirBetweenHubs))
	b.WriteString(";hubopt=")
	b.WriteString(strconv.FormatBool(c.OptimizeHubOrder))
	b.WriteString(";satopt=")
	b.WriteString(strconv.FormatBool(c.OptimizeSatelliteOrder))
	b.WriteString(";maxroad=")
	if c.MaxRoadDistanceKm != nil {
		b.WriteString(strconv.FormatFloat(*c.MaxRoadDistanceKm, 'f', -1, 64))
	}
	b.WriteString(";overrides=")

	pairs := make([]string, 0, len(c.PerHubPairModeOverride))
	for pair, mode := range c.PerHubPairModeOverride {
		pairs = append(pairs, pair.String()+":"+string(mode))
	}
	sort.Strings(pairs)
	b.WriteString(strings.Join(pairs, ","))

	return b.String()
}

// OverridesByKey - переопределения с ключами "FROM>TO" для сериализации
func (c RouteConfiguration) OverridesByKey() map[string]TravelMode {
	out := make(map[string]TravelMode, len(c.PerHubPairModeOverride))
	for pair, mode := range c.PerHubPairModeOverride {
		out[pair.String()] = mode
	}
	return out
}

// ConfigurationPatch - частичное обновление конфигурации; nil-поля не меняются.
// В Overrides пустой режим удаляет переопределение пары.
type ConfigurationPatch struct {
	CruiseSpeedKmh         *float64
	PreferAirBetweenHubs   *bool
	OptimizeHubOrder       *bool
	OptimizeSatelliteOrder *bool
	MaxRoadDistanceKm      *float64
	ClearMaxRoadDistance   bool
	Overrides              map[HubPair]TravelMode
}

// Apply сливает патч с конфигурацией и проверяет результат. Исходная конфигурация не меняется.
func (p ConfigurationPatch) Apply(c RouteConfiguration) (RouteConfiguration, error) {
	next := c.Clone()
	if p.CruiseSpeedKmh != nil {
		next.CruiseSpeedKmh = *p.CruiseSpeedKmh
	}
	if p.PreferAirBetweenHubs != nil {
		next.PreferAirBetweenHubs = *p.PreferAirBetweenHubs
	}
	if p.OptimizeHubOrder != nil {
		next.OptimizeHubOrder = *p.OptimizeHubOrder
	}
	if p.OptimizeSatelliteOrder != nil {
		next.OptimizeSatelliteOrder = *p.OptimizeSatelliteOrder
	}
	if p.ClearMaxRoadDistance {
		next.MaxRoadDistanceKm = nil
	} else if p.MaxRoadDistanceKm != nil {
		v := *p.MaxRoadDistanceKm
		next.MaxRoadDistanceKm = &v
	}
	for pair, mode := range p.Overrides {
		if mode == "" {
			delete(next.PerHubPairModeOverride, pair)
			continue
		}
		next.PerHubPairModeOverride[pair] = mode
	}

	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}
