package geojson

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/route-composer/internal/domain"
)

// Альтернативные написания свойств во внешних выгрузках
var (
	codeKeys        = []string{"codigo", "code", "cod_ibge", "codigo_ibge", "id"}
	nameKeys        = []string{"nome", "name", "municipio", "nome_municipio"}
	regionKeys      = []string{"uf", "region", "sigla_uf", "estado"}
	latKeys         = []string{"lat", "latitude", "y"}
	lonKeys         = []string{"lon", "lng", "longitude", "x"}
	populationKeys  = []string{"populacao", "population", "pop"}
	kindKeys        = []string{"tipo", "kind", "type"}
	airstripKeys    = []string{"pistas", "airstrips"}
	assignedHubKeys = []string{"codigo_polo", "assigned_hub", "polo", "hub"}
)

// Record - нормализованная запись каталога
type Record struct {
	Location       domain.Location
	Airstrips      []domain.Coordinate
	AssignedHub    string
	NeedsGeocoding bool
}

// Normalize приводит feature с произвольной схемой свойств к строгим типам каталога.
// Координата берётся из геометрии (точка или центроид полигона), затем из свойств lat/lon;
// если её нет, запись помечается NeedsGeocoding.
func Normalize(f *geojson.Feature) (Record, error) {
	props := f.Properties

	code := firstString(props, codeKeys)
	if code == "" && f.ID != nil {
		code = fmt.Sprint(f.ID)
	}
	if code == "" {
		return Record{}, fmt.Errorf("feature has no code property")
	}

	name := firstString(props, nameKeys)
	kind, err := parseKind(firstString(props, kindKeys))
	if err != nil {
		return Record{}, fmt.Errorf("feature %s: %w", code, err)
	}

	rec := Record{
		Location: domain.Location{
			Code:       code,
			Name:       name,
			RegionCode: strings.ToUpper(firstString(props, regionKeys)),
			Kind:       kind,
		},
	}

	if pop, ok := firstFloat(props, populationKeys); ok {
		rec.Location.Population = int(pop)
	}

	if coord, ok := geometryCoordinate(f.Geometry); ok {
		rec.Location.Coordinate = coord
	} else if lat, okLat := firstFloat(props, latKeys); okLat {
		lon, okLon := firstFloat(props, lonKeys)
		if !okLon {
			return Record{}, fmt.Errorf("feature %s: latitude without longitude", code)
		}
		rec.Location.Coordinate = domain.Coordinate{Lat: lat, Lon: lon}
	} else {
		if name == "" {
			return Record{}, fmt.Errorf("feature %s: no geometry, coordinates or name", code)
		}
		rec.NeedsGeocoding = true
	}

	if !rec.NeedsGeocoding && !rec.Location.Coordinate.IsValid() {
		return Record{}, fmt.Errorf("feature %s: coordinate out of range", code)
	}

	if kind == domain.KindHub {
		rec.Airstrips = parseAirstrips(firstValue(props, airstripKeys))
	} else {
		rec.AssignedHub = firstString(props, assignedHubKeys)
	}

	return rec, nil
}

func parseKind(raw string) (domain.LocationKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "polo", "hub":
		return domain.KindHub, nil
	case "periferia", "satellite", "satelite", "":
		return domain.KindSatellite, nil
	default:
		return "", fmt.Errorf("unknown location kind %q", raw)
	}
}

func geometryCoordinate(g orb.Geometry) (domain.Coordinate, bool) {
	switch geom := g.(type) {
	case nil:
		return domain.Coordinate{}, false
	case orb.Point:
		return domain.Coordinate{Lat: geom.Lat(), Lon: geom.Lon()}, true
	case orb.Polygon, orb.MultiPolygon:
		c, area := planar.CentroidArea(geom)
		if area == 0 {
			return domain.Coordinate{}, false
		}
		return domain.Coordinate{Lat: c.Lat(), Lon: c.Lon()}, true
	default:
		if geom.Dimensions() < 0 {
			return domain.Coordinate{}, false
		}
		c := geom.Bound().Center()
		return domain.Coordinate{Lat: c.Lat(), Lon: c.Lon()}, true
	}
}

// parseAirstrips принимает [[lon,lat],...] или [{"lat":..,"lon":..},...]
func parseAirstrips(v interface{}) []domain.Coordinate {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var result []domain.Coordinate
	for _, item := range items {
		switch it := item.(type) {
		case []interface{}:
			if len(it) != 2 {
				continue
			}
			lon, okLon := toFloat(it[0])
			lat, okLat := toFloat(it[1])
			if okLon && okLat {
				result = append(result, domain.Coordinate{Lat: lat, Lon: lon})
			}
		case map[string]interface{}:
			lat, okLat := firstFloat(it, latKeys)
			lon, okLon := firstFloat(it, lonKeys)
			if okLat && okLon {
				result = append(result, domain.Coordinate{Lat: lat, Lon: lon})
			}
		}
	}
	return result
}

func firstValue(props map[string]interface{}, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := props[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(props map[string]interface{}, keys []string) string {
	switch v := firstValue(props, keys).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func firstFloat(props map[string]interface{}, keys []string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(props[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// toFloat понимает числа и строки, в том числе с десятичной запятой
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", ".")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
