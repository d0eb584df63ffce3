package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/route-composer/internal/config"
	httpdelivery "github.com/route-composer/internal/delivery/http"
	"github.com/route-composer/internal/delivery/http/handler"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/clock"
	"github.com/route-composer/internal/pkg/errors"
	"github.com/route-composer/internal/repository/cache"
	"github.com/route-composer/internal/repository/geojson"
	"github.com/route-composer/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const catalogFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-34.95, -7.12]},
     "properties": {"codigo": "2507507", "nome": "João Pessoa", "uf": "PB", "tipo": "polo", "pistas": [[-34.9503, -7.1486]]}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-35.88, -7.22]},
     "properties": {"codigo": "2504009", "nome": "Campina Grande", "uf": "PB", "tipo": "polo"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-35.02, -7.11]},
     "properties": {"codigo": "2513703", "nome": "Santa Rita", "uf": "PB", "tipo": "periferia"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-34.83, -6.98]},
     "properties": {"codigo": "2503209", "nome": "Cabedelo", "uf": "PB", "tipo": "periferia"}}
  ]
}`

// fixedProvider отвечает мгновенно и детерминированно
type fixedProvider struct{}

func (fixedProvider) Directions(_ context.Context, points []domain.Coordinate) (*domain.RoadRouteResult, error) {
	return &domain.RoadRouteResult{
		DistanceKm:      12.5,
		DurationMinutes: 18,
		EncodedPolyline: domain.EncodePolyline(points),
	}, nil
}

func (fixedProvider) OptimizeTrip(
	_ context.Context,
	_ domain.Coordinate,
	_ *domain.Coordinate,
	waypoints []domain.Coordinate,
) (*domain.WaypointOrder, error) {
	order := make([]int, len(waypoints))
	for i := range order {
		order[i] = i
	}
	return &domain.WaypointOrder{Order: order}, nil
}

func (fixedProvider) MaxOptimizationPoints() int { return 27 }

func (fixedProvider) Geocode(context.Context, string, string) (*domain.GeocodeResult, error) {
	return nil, errors.ErrGeocodingFailed
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T, checks ...httpdelivery.HealthCheck) *httpdelivery.Server {
	t.Helper()
	logger := zap.NewNop()
	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	gateway := usecase.NewProviderGateway(
		fixedProvider{},
		cache.NewMemoryCache(clk, logger),
		usecase.NewQuotaGuard(100, time.Hour, clk),
		usecase.GatewayOptions{CallTimeout: time.Second, MaxInFlight: 4, RoadRouteTTL: time.Hour, MultiWaypointTTL: time.Hour},
		logger,
	)

	catalog, err := geojson.Load(context.Background(), []byte(catalogFixture), gateway, logger)
	require.NoError(t, err)

	defaults := domain.DefaultRouteConfiguration(200)
	assembler := usecase.NewRouteAssembler(
		usecase.NewLegBuilder(gateway, logger),
		usecase.NewSequenceOptimizer(gateway, logger),
		2, clk, logger,
	)
	planner := usecase.NewRoutePlanner(assembler, usecase.NewRouteCache(time.Hour, clk), logger)
	routes := usecase.NewRouteUsecase(catalog, planner, 40, logger)
	sessions := usecase.NewRouteSessionUsecase(routes, defaults, time.Hour, clk, logger)

	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 0}}
	return httpdelivery.NewServer(
		cfg,
		logger,
		handler.NewSessionHandler(sessions, logger),
		handler.NewRouteHandler(routes, defaults, logger),
		handler.NewGatewayHandler(gateway, logger),
		checks...,
	)
}

func do(t *testing.T, srv *httpdelivery.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Caller-ID", "test-client")

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decode(t *testing.T, raw []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return env
}

func TestHealth(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		srv := newTestServer(t, httpdelivery.HealthCheck{
			Name:  "redis",
			Check: func(context.Context) error { return nil },
		})

		resp, raw := do(t, srv, http.MethodGet, "/api/v1/health", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"healthy","services":{"redis":"healthy"}}`, string(raw))
	})

	t.Run("failing check degrades", func(t *testing.T) {
		srv := newTestServer(t, httpdelivery.HealthCheck{
			Name:  "postgres",
			Check: func(context.Context) error { return stderrors.New("connection refused") },
		})

		resp, raw := do(t, srv, http.MethodGet, "/api/v1/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.JSONEq(t, `{"status":"degraded","services":{"postgres":"unhealthy"}}`, string(raw))
	})
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := do(t, srv, http.MethodPost, "/api/v1/sessions", map[string]any{
		"configuration": map[string]any{"cruise_speed_kmh": 180},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var session struct {
		ID            string `json:"id"`
		HasRoute      bool   `json:"has_route"`
		Configuration struct {
			CruiseSpeedKmh float64 `json:"cruise_speed_kmh"`
		} `json:"configuration"`
	}
	require.NoError(t, json.Unmarshal(decode(t, raw).Data, &session))
	require.NotEmpty(t, session.ID)
	assert.Equal(t, 180.0, session.Configuration.CruiseSpeedKmh)
	base := "/api/v1/sessions/" + session.ID

	resp, raw = do(t, srv, http.MethodPost, base+"/hubs/2507507", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	resp, raw = do(t, srv, http.MethodPost, base+"/satellites/2513703", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = do(t, srv, http.MethodGet, base+"/route", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "ROUTE_NOT_COMPUTED", decode(t, raw).Error.Code)

	resp, raw = do(t, srv, http.MethodPost, base+"/route", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var computed struct {
		Route usecase.RouteDocument `json:"route"`
	}
	require.NoError(t, json.Unmarshal(decode(t, raw).Data, &computed))
	require.Len(t, computed.Route.Legs, 2)
	assert.Equal(t, "2507507", computed.Route.Legs[0].Origin)
	assert.Equal(t, "2513703", computed.Route.Legs[0].Destination)
	assert.Equal(t, "2507507", computed.Route.Legs[1].Destination)
	assert.False(t, computed.Route.Degraded)

	resp, raw = do(t, srv, http.MethodGet, base+"/route", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = do(t, srv, http.MethodGet, base+"/route/export?format=geojson", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".geojson")

	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(raw, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 2+2)

	resp, _ = do(t, srv, http.MethodGet, base+"/route/export?format=kml", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Изменение конфигурации сбрасывает отображаемый маршрут
	resp, raw = do(t, srv, http.MethodPatch, base+"/configuration", map[string]any{"optimize_satellite_order": false})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	resp, _ = do(t, srv, http.MethodGet, base+"/route", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, raw = do(t, srv, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SESSION_NOT_FOUND", decode(t, raw).Error.Code)
}

func TestSessionErrors(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := do(t, srv, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", decode(t, raw).Error.Code)

	resp, raw = do(t, srv, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var session struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, raw).Data, &session))
	base := "/api/v1/sessions/" + session.ID

	t.Run("unknown hub", func(t *testing.T) {
		resp, raw := do(t, srv, http.MethodPost, base+"/hubs/9999999", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "LOCATION_NOT_FOUND", decode(t, raw).Error.Code)
	})

	t.Run("empty selection", func(t *testing.T) {
		resp, raw := do(t, srv, http.MethodPost, base+"/route", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "EMPTY_SELECTION", decode(t, raw).Error.Code)
	})

	t.Run("airstrip index out of range", func(t *testing.T) {
		resp, raw := do(t, srv, http.MethodPost, base+"/hubs/2507507", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

		resp, raw = do(t, srv, http.MethodPut, base+"/hubs/2507507/airstrip", map[string]any{"index": 3})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_REQUEST", decode(t, raw).Error.Code)

		resp, raw = do(t, srv, http.MethodPut, base+"/hubs/2507507/airstrip", map[string]any{"index": 0})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
		var view struct {
			Airstrips map[string]int `json:"airstrips"`
		}
		require.NoError(t, json.Unmarshal(decode(t, raw).Data, &view))
		assert.Equal(t, map[string]int{"2507507": 0}, view.Airstrips)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		resp, raw := do(t, srv, http.MethodPatch, base+"/configuration", map[string]any{
			"hub_pair_modes": map[string]string{"2507507": "road"},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_CONFIGURATION", decode(t, raw).Error.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, raw := do(t, srv, http.MethodGet, "/api/v1/nowhere", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "HTTP_ERROR", decode(t, raw).Error.Code)
	})
}

func TestComputeRouteStateless(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := do(t, srv, http.MethodPost, "/api/v1/routes/compute", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "EMPTY_SELECTION", decode(t, raw).Error.Code)

	body := map[string]any{"hub_codes": []string{"2507507", "2504009"}}

	resp, raw = do(t, srv, http.MethodPost, "/api/v1/routes/compute", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var first struct {
		Route  usecase.RouteDocument `json:"route"`
		Cached bool                  `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(decode(t, raw).Data, &first))
	assert.False(t, first.Cached)
	require.Len(t, first.Route.Legs, 1)
	assert.Equal(t, domain.LegAir, first.Route.Legs[0].Kind)

	resp, raw = do(t, srv, http.MethodPost, "/api/v1/routes/compute", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	env := decode(t, raw)
	assert.Equal(t, true, env.Meta["cached"])

	resp, raw = do(t, srv, http.MethodPost, "/api/v1/routes/compute?format=geojson", map[string]any{
		"satellite_codes": []string{"2513703", "2503209"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
}

func TestGatewayStats(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := do(t, srv, http.MethodPost, "/api/v1/routes/compute", map[string]any{
		"satellite_codes": []string{"2513703", "2503209"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = do(t, srv, http.MethodGet, "/api/v1/gateway/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats usecase.GatewayStats
	require.NoError(t, json.Unmarshal(decode(t, raw).Data, &stats))
	assert.Equal(t, int64(1), stats.Requests)
	assert.Equal(t, int64(99), stats.QuotaRemaining)
	assert.Equal(t, 1, stats.CacheEntries)
}
