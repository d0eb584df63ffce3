package geojson

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/route-composer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feature(geom orb.Geometry, props map[string]interface{}) *geojson.Feature {
	f := geojson.NewFeature(geom)
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

func TestNormalize_PointHubWithAirstrips(t *testing.T) {
	f := feature(orb.Point{-34.95, -7.12}, map[string]interface{}{
		"codigo":    "2507507",
		"nome":      "João Pessoa",
		"uf":        "pb",
		"tipo":      "polo",
		"populacao": 833932.0,
		"pistas":    []interface{}{[]interface{}{-34.9503, -7.1486}},
	})

	rec, err := Normalize(f)
	require.NoError(t, err)
	assert.Equal(t, "2507507", rec.Location.Code)
	assert.Equal(t, "PB", rec.Location.RegionCode)
	assert.Equal(t, domain.KindHub, rec.Location.Kind)
	assert.Equal(t, 833932, rec.Location.Population)
	assert.Equal(t, domain.Coordinate{Lat: -7.12, Lon: -34.95}, rec.Location.Coordinate)
	require.Len(t, rec.Airstrips, 1)
	assert.InDelta(t, -7.1486, rec.Airstrips[0].Lat, 1e-9)
	assert.False(t, rec.NeedsGeocoding)
}

func TestNormalize_AlternateSpellings(t *testing.T) {
	f := feature(nil, map[string]interface{}{
		"cod_ibge":    2504009.0,
		"municipio":   "Campina Grande",
		"sigla_uf":    "PB",
		"kind":        "satellite",
		"lat":         "-7,22",
		"lng":         "-35.88",
		"codigo_polo": "2507507",
	})

	rec, err := Normalize(f)
	require.NoError(t, err)
	assert.Equal(t, "2504009", rec.Location.Code)
	assert.Equal(t, "Campina Grande", rec.Location.Name)
	assert.Equal(t, domain.KindSatellite, rec.Location.Kind)
	assert.InDelta(t, -7.22, rec.Location.Coordinate.Lat, 1e-9)
	assert.InDelta(t, -35.88, rec.Location.Coordinate.Lon, 1e-9)
	assert.Equal(t, "2507507", rec.AssignedHub)
}

func TestNormalize_PolygonCentroid(t *testing.T) {
	square := orb.Polygon{{{-35.0, -7.0}, {-34.9, -7.0}, {-34.9, -7.2}, {-35.0, -7.2}, {-35.0, -7.0}}}
	rec, err := Normalize(feature(square, map[string]interface{}{"code": "X", "name": "Square"}))
	require.NoError(t, err)
	assert.InDelta(t, -7.1, rec.Location.Coordinate.Lat, 1e-9)
	assert.InDelta(t, -34.95, rec.Location.Coordinate.Lon, 1e-9)
	assert.Equal(t, domain.KindSatellite, rec.Location.Kind, "kind defaults to satellite")
}

func TestNormalize_NameOnlyNeedsGeocoding(t *testing.T) {
	rec, err := Normalize(feature(nil, map[string]interface{}{"id": "2510808", "nome": "Patos", "uf": "PB"}))
	require.NoError(t, err)
	assert.True(t, rec.NeedsGeocoding)
	assert.Equal(t, "Patos", rec.Location.Name)
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name  string
		geom  orb.Geometry
		props map[string]interface{}
	}{
		{"missing code", nil, map[string]interface{}{"nome": "Sem Código"}},
		{"unknown kind", orb.Point{-35, -7}, map[string]interface{}{"code": "1", "tipo": "aeroporto"}},
		{"no coordinates and no name", nil, map[string]interface{}{"code": "1"}},
		{"latitude without longitude", nil, map[string]interface{}{"code": "1", "lat": -7.0}},
		{"out of range", orb.Point{-200, -7}, map[string]interface{}{"code": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(feature(tt.geom, tt.props))
			assert.Error(t, err)
		})
	}
}
