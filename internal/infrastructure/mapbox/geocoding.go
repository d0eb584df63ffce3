package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/errors"
	"go.uber.org/zap"
)

type geocodingResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Relevance float64   `json:"relevance"`
		Center    []float64 `json:"center"`
	} `json:"features"`
	Message string `json:"message"`
}

// Geocode ищет лучшее совпадение для названия места; regionCode добавляется к запросу как подсказка
func (c *client) Geocode(ctx context.Context, placeName, regionCode string) (*domain.GeocodeResult, error) {
	placeName = strings.TrimSpace(placeName)
	if placeName == "" {
		return nil, errors.ErrGeocodingFailed.WithMessage("place name is empty")
	}

	search := placeName
	if regionCode != "" {
		search = placeName + ", " + regionCode
	}
	path := fmt.Sprintf("/geocoding/v5/mapbox.places/%s.json", url.PathEscape(search))
	query := url.Values{}
	query.Set("limit", "1")
	query.Set("types", "place,locality,district")
	if c.geocodeCountry != "" {
		query.Set("country", c.geocodeCountry)
	}

	c.logger.Debug("Calling Mapbox Geocoding API", zap.String("query", search))

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, path, query)
	})
	if err != nil {
		c.logger.Warn("Mapbox Geocoding request failed", zap.String("query", search), zap.Error(err))
		return nil, classifyError(err, errors.ErrGeocodingFailed)
	}
	defer resp.Body.Close()

	var decoded geocodingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(errors.ErrProviderUnavailable, fmt.Errorf("failed to decode response: %w", err))
	}

	for _, f := range decoded.Features {
		if len(f.Center) != 2 {
			continue
		}
		return &domain.GeocodeResult{
			Coordinate: domain.Coordinate{Lat: f.Center[1], Lon: f.Center[0]},
			PlaceName:  f.PlaceName,
			Relevance:  f.Relevance,
		}, nil
	}

	return nil, errors.ErrGeocodingFailed.WithMessage("no candidates for %q", search)
}
