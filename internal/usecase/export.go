package usecase

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/errors"
)

// ExportFormat - формат экспорта маршрута
type ExportFormat string

const (
	ExportJSON    ExportFormat = "json"
	ExportGeoJSON ExportFormat = "geojson"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case "", ExportJSON:
		return ExportJSON, nil
	case ExportGeoJSON:
		return ExportGeoJSON, nil
	default:
		return "", errors.ErrInvalidRequest.WithMessage("unknown export format %q, expected json or geojson", s)
	}
}

// RouteDocument - структурированный документ маршрута для экспорта
type RouteDocument struct {
	RouteID     string                 `json:"route_id"`
	Fingerprint string                 `json:"fingerprint,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	Degraded    bool                   `json:"degraded"`
	Statistics  domain.RouteStatistics `json:"statistics"`
	Warnings    []domain.RouteWarning  `json:"warnings"`
	Stops       []StopDocument         `json:"stops"`
	Legs        []LegDocument          `json:"legs"`
}

type StopDocument struct {
	Sequence int                 `json:"sequence"`
	Code     string              `json:"code"`
	Name     string              `json:"name"`
	Kind     domain.LocationKind `json:"kind"`
	Lat      float64             `json:"lat"`
	Lon      float64             `json:"lon"`
}

type LegDocument struct {
	Sequence        int                   `json:"sequence"`
	Kind            domain.LegKind        `json:"kind"`
	Origin          string                `json:"origin"`
	Destination     string                `json:"destination"`
	DistanceKm      float64               `json:"distance_km"`
	DurationMinutes float64               `json:"duration_minutes"`
	Estimated       bool                  `json:"estimated"`
	EstimateReason  domain.EstimateReason `json:"estimate_reason,omitempty"`
	AirMethod       domain.AirMethod      `json:"air_method,omitempty"`
	Instructions    []domain.Instruction  `json:"instructions,omitempty"`
	Path            [][2]float64          `json:"path"` // [lon, lat]
}

// ExportRoute - чистая сериализация маршрута в документ
func ExportRoute(route *domain.Route) RouteDocument {
	doc := RouteDocument{
		RouteID:     route.ID,
		Fingerprint: route.Fingerprint,
		CreatedAt:   route.CreatedAt,
		Degraded:    route.Degraded(),
		Statistics:  route.Statistics,
		Warnings:    route.Warnings,
		Stops:       make([]StopDocument, len(route.Stops)),
		Legs:        make([]LegDocument, len(route.Legs)),
	}
	if doc.Warnings == nil {
		doc.Warnings = []domain.RouteWarning{}
	}

	for i, s := range route.Stops {
		doc.Stops[i] = StopDocument{
			Sequence: i + 1,
			Code:     s.Code,
			Name:     s.Name,
			Kind:     s.Kind,
			Lat:      s.Coordinate.Lat,
			Lon:      s.Coordinate.Lon,
		}
	}

	for i, l := range route.Legs {
		ld := LegDocument{
			Sequence:        i + 1,
			Kind:            l.Kind,
			Origin:          l.Origin.Code,
			Destination:     l.Destination.Code,
			DistanceKm:      l.DistanceKm,
			DurationMinutes: l.DurationMinutes,
			Estimated:       l.IsEstimated(),
		}
		if l.Air != nil {
			ld.AirMethod = l.Air.Method
		}
		if l.Road != nil {
			ld.EstimateReason = l.Road.EstimateReason
			ld.Instructions = l.Road.Instructions
		}
		path := l.Path()
		ld.Path = make([][2]float64, len(path))
		for j, c := range path {
			ld.Path[j] = [2]float64{c.Lon, c.Lat}
		}
		doc.Legs[i] = ld
	}

	return doc
}

// ExportGeoJSONRoute - маршрут как FeatureCollection: LineString на каждый участок и Point на каждую остановку
func ExportGeoJSONRoute(route *domain.Route) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"route_id":   route.ID,
		"degraded":   route.Degraded(),
		"statistics": route.Statistics,
	}

	for i, l := range route.Legs {
		path := l.Path()
		line := make(orb.LineString, len(path))
		for j, c := range path {
			line[j] = toPoint(c)
		}

		f := geojson.NewFeature(line)
		f.ID = fmt.Sprintf("leg-%d", i+1)
		f.Properties["feature_type"] = "leg"
		f.Properties["sequence"] = i + 1
		f.Properties["kind"] = string(l.Kind)
		f.Properties["origin"] = l.Origin.Code
		f.Properties["destination"] = l.Destination.Code
		f.Properties["distance_km"] = l.DistanceKm
		f.Properties["duration_minutes"] = l.DurationMinutes
		f.Properties["estimated"] = l.IsEstimated()
		if l.Air != nil {
			f.Properties["air_method"] = string(l.Air.Method)
		}
		fc.Append(f)
	}

	for i, s := range route.Stops {
		f := geojson.NewFeature(toPoint(s.Coordinate))
		f.ID = fmt.Sprintf("stop-%d", i+1)
		f.Properties["feature_type"] = "stop"
		f.Properties["sequence"] = i + 1
		f.Properties["code"] = s.Code
		f.Properties["name"] = s.Name
		f.Properties["kind"] = string(s.Kind)
		fc.Append(f)
	}

	return fc
}

func toPoint(c domain.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}
