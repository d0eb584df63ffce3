package geojson

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb/geojson"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/domain/repository"
	"github.com/route-composer/internal/pkg/errors"
	"go.uber.org/zap"
)

// Geocoder разрешает название места в координату
type Geocoder interface {
	Geocode(ctx context.Context, placeName, regionCode string) (domain.Coordinate, error)
}

// Catalog - каталог локаций, загруженный из GeoJSON-файла. После загрузки только читается.
type Catalog struct {
	hubs       map[string]domain.Hub
	satellites map[string]domain.Satellite
	logger     *zap.Logger
}

var _ repository.LocationRepository = (*Catalog)(nil)

// LoadFile читает FeatureCollection с диска
func LoadFile(ctx context.Context, path string, geocoder Geocoder, logger *zap.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Load(ctx, data, geocoder, logger)
}

// Load нормализует все features один раз при загрузке.
// Записи без координат геокодируются по имени и региону; неразрешимые пропускаются с предупреждением.
func Load(ctx context.Context, data []byte, geocoder Geocoder, logger *zap.Logger) (*Catalog, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		hubs:       make(map[string]domain.Hub),
		satellites: make(map[string]domain.Satellite),
		logger:     logger,
	}

	skipped := 0
	for i, f := range fc.Features {
		rec, err := Normalize(f)
		if err != nil {
			logger.Warn("Skipping catalog feature", zap.Int("index", i), zap.Error(err))
			skipped++
			continue
		}

		if rec.NeedsGeocoding {
			if geocoder == nil {
				logger.Warn("Skipping feature without coordinates, no geocoder configured",
					zap.String("code", rec.Location.Code))
				skipped++
				continue
			}
			coord, err := geocoder.Geocode(ctx, rec.Location.Name, rec.Location.RegionCode)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Warn("Failed to geocode catalog feature",
					zap.String("code", rec.Location.Code),
					zap.String("name", rec.Location.Name),
					zap.Error(err))
				skipped++
				continue
			}
			rec.Location.Coordinate = coord
		}

		c.add(rec)
	}

	logger.Info("Location catalog loaded",
		zap.Int("hubs", len(c.hubs)),
		zap.Int("satellites", len(c.satellites)),
		zap.Int("skipped", skipped))

	return c, nil
}

func (c *Catalog) add(rec Record) {
	switch rec.Location.Kind {
	case domain.KindHub:
		c.hubs[rec.Location.Code] = domain.Hub{Location: rec.Location, Airstrips: rec.Airstrips}
	default:
		c.satellites[rec.Location.Code] = domain.Satellite{Location: rec.Location, AssignedHub: rec.AssignedHub}
	}
}

func (c *Catalog) GetHubs(_ context.Context, codes []string) ([]domain.Hub, error) {
	hubs := make([]domain.Hub, 0, len(codes))
	var missing []string
	for _, code := range codes {
		h, ok := c.hubs[code]
		if !ok {
			missing = append(missing, code)
			continue
		}
		hubs = append(hubs, h)
	}
	if len(missing) > 0 {
		return nil, notFound("hub", missing)
	}
	return hubs, nil
}

func (c *Catalog) GetSatellites(_ context.Context, codes []string) ([]domain.Satellite, error) {
	sats := make([]domain.Satellite, 0, len(codes))
	var missing []string
	for _, code := range codes {
		s, ok := c.satellites[code]
		if !ok {
			missing = append(missing, code)
			continue
		}
		sats = append(sats, s)
	}
	if len(missing) > 0 {
		return nil, notFound("satellite", missing)
	}
	return sats, nil
}

func (c *Catalog) ListHubs(_ context.Context, regionCode string) ([]domain.Hub, error) {
	var hubs []domain.Hub
	for _, h := range c.hubs {
		if regionCode == "" || h.RegionCode == regionCode {
			hubs = append(hubs, h)
		}
	}
	sort.Slice(hubs, func(i, j int) bool { return hubs[i].Code < hubs[j].Code })
	return hubs, nil
}

func (c *Catalog) ListSatellites(_ context.Context, regionCode string) ([]domain.Satellite, error) {
	var sats []domain.Satellite
	for _, s := range c.satellites {
		if regionCode == "" || s.RegionCode == regionCode {
			sats = append(sats, s)
		}
	}
	sort.Slice(sats, func(i, j int) bool { return sats[i].Code < sats[j].Code })
	return sats, nil
}

func notFound(kind string, codes []string) error {
	return errors.ErrLocationNotFound.WithDetails(map[string]interface{}{
		"kind":  kind,
		"codes": codes,
	})
}
