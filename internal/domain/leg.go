package domain

import (
	"sync"

	"github.com/twpayne/go-polyline"
)

// LegKind - тег варианта участка маршрута
type LegKind string

const (
	LegAir  LegKind = "air"
	LegRoad LegKind = "road"
)

// AirMethod - какие координаты использованы для концов авиа-участка
type AirMethod string

const (
	AirstripToAirstrip AirMethod = "airstrip-airstrip"
	AirstripToCentroid AirMethod = "airstrip-centroid"
	CentroidToAirstrip AirMethod = "centroid-airstrip"
	CentroidToCentroid AirMethod = "centroid-centroid"
)

// AirMethodFor возвращает тег комбинации полоса/центроид
func AirMethodFor(originAirstrip, destinationAirstrip bool) AirMethod {
	switch {
	case originAirstrip && destinationAirstrip:
		return AirstripToAirstrip
	case originAirstrip:
		return AirstripToCentroid
	case destinationAirstrip:
		return CentroidToAirstrip
	default:
		return CentroidToCentroid
	}
}

// EstimateReason - почему дорожный участок оценён локально
type EstimateReason string

const (
	EstimateProviderUnavailable EstimateReason = "PROVIDER_UNAVAILABLE"
	EstimateRouteNotFound       EstimateReason = "ROUTE_NOT_FOUND"
	EstimateQuotaExceeded       EstimateReason = "QUOTA_EXCEEDED"
	EstimateDistanceLimit       EstimateReason = "DISTANCE_LIMIT"
)

// Instruction - шаг пошаговой навигации
type Instruction struct {
	Maneuver        string     `json:"maneuver"`
	Description     string     `json:"description"`
	DistanceKm      float64    `json:"distance_km"`
	DurationMinutes float64    `json:"duration_minutes"`
	Coordinate      Coordinate `json:"coordinate"`
}

// AirLegDetails - атрибуты авиа-участка (полюс -> полюс)
type AirLegDetails struct {
	OriginAirstripUsed      bool       `json:"origin_airstrip_used"`
	DestinationAirstripUsed bool       `json:"destination_airstrip_used"`
	Method                  AirMethod  `json:"method"`
	OriginPoint             Coordinate `json:"origin_point"`
	DestinationPoint        Coordinate `json:"destination_point"`
}

// RoadLegDetails - атрибуты дорожного участка
type RoadLegDetails struct {
	Instructions    []Instruction  `json:"instructions"`
	EncodedPolyline string         `json:"encoded_polyline,omitempty"`
	IsEstimated     bool           `json:"is_estimated"`
	EstimateReason  EstimateReason `json:"estimate_reason,omitempty"`
}

// Leg - направленный участок маршрута: AirLeg или RoadLeg (по Kind заполнен Air или Road).
// Геометрия вычисляется лениво при первом обращении к Path.
type Leg struct {
	Kind            LegKind         `json:"kind"`
	Origin          Location        `json:"origin"`
	Destination     Location        `json:"destination"`
	DistanceKm      float64         `json:"distance_km"`
	DurationMinutes float64         `json:"duration_minutes"`
	Air             *AirLegDetails  `json:"air,omitempty"`
	Road            *RoadLegDetails `json:"road,omitempty"`

	path *lazyPath
}

type lazyPath struct {
	once    sync.Once
	resolve func() []Coordinate
	points  []Coordinate
}

func newLazyPath(resolve func() []Coordinate) *lazyPath {
	return &lazyPath{resolve: resolve}
}

// Path возвращает геометрию участка: 2 точки для авиа, декодированную полилинию для дороги
func (l Leg) Path() []Coordinate {
	if l.path == nil {
		return []Coordinate{l.Origin.Coordinate, l.Destination.Coordinate}
	}
	l.path.once.Do(func() {
		l.path.points = l.path.resolve()
	})
	return l.path.points
}

func (l Leg) IsAir() bool {
	return l.Kind == LegAir
}

func (l Leg) IsRoad() bool {
	return l.Kind == LegRoad
}

// IsEstimated - участок построен локальной оценкой вместо провайдера
func (l Leg) IsEstimated() bool {
	return l.Road != nil && l.Road.IsEstimated
}

// NewAirLeg собирает авиа-участок; originPoint/destinationPoint - фактически использованные координаты
func NewAirLeg(
	origin, destination Hub,
	originPoint, destinationPoint Coordinate,
	originAirstrip, destinationAirstrip bool,
	distanceKm, durationMinutes float64,
) Leg {
	return Leg{
		Kind:            LegAir,
		Origin:          origin.Location,
		Destination:     destination.Location,
		DistanceKm:      distanceKm,
		DurationMinutes: durationMinutes,
		Air: &AirLegDetails{
			OriginAirstripUsed:      originAirstrip,
			DestinationAirstripUsed: destinationAirstrip,
			Method:                  AirMethodFor(originAirstrip, destinationAirstrip),
			OriginPoint:             originPoint,
			DestinationPoint:        destinationPoint,
		},
		path: newLazyPath(func() []Coordinate {
			return []Coordinate{originPoint, destinationPoint}
		}),
	}
}

// NewRoadLeg собирает дорожный участок по ответу провайдера
func NewRoadLeg(origin, destination Location, result RoadRouteResult) Leg {
	encoded := result.EncodedPolyline
	decoded := result.Path
	return Leg{
		Kind:            LegRoad,
		Origin:          origin,
		Destination:     destination,
		DistanceKm:      result.DistanceKm,
		DurationMinutes: result.DurationMinutes,
		Road: &RoadLegDetails{
			Instructions:    result.Instructions,
			EncodedPolyline: encoded,
		},
		path: newLazyPath(func() []Coordinate {
			if len(decoded) > 0 {
				return decoded
			}
			if points, err := DecodePolyline(encoded); err == nil && len(points) > 0 {
				return points
			}
			return []Coordinate{origin.Coordinate, destination.Coordinate}
		}),
	}
}

// NewEstimatedRoadLeg собирает дорожный участок по прямой (фолбэк без провайдера)
func NewEstimatedRoadLeg(
	origin, destination Location,
	distanceKm, durationMinutes float64,
	reason EstimateReason,
	instruction Instruction,
) Leg {
	return Leg{
		Kind:            LegRoad,
		Origin:          origin,
		Destination:     destination,
		DistanceKm:      distanceKm,
		DurationMinutes: durationMinutes,
		Road: &RoadLegDetails{
			Instructions:   []Instruction{instruction},
			IsEstimated:    true,
			EstimateReason: reason,
		},
		path: newLazyPath(func() []Coordinate {
			return []Coordinate{origin.Coordinate, destination.Coordinate}
		}),
	}
}

// DecodePolyline декодирует полилинию (точность 1e5) в координаты
func DecodePolyline(encoded string) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	points := make([]Coordinate, len(coords))
	for i, c := range coords {
		points[i] = Coordinate{Lat: c[0], Lon: c[1]}
	}
	return points, nil
}

// EncodePolyline кодирует координаты в полилинию (точность 1e5)
func EncodePolyline(points []Coordinate) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}
