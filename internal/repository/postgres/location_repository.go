package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/domain/repository"
	"github.com/route-composer/internal/pkg/errors"
	"go.uber.org/zap"
)

type locationRow struct {
	Code        string         `db:"code"`
	Name        string         `db:"name"`
	RegionCode  string         `db:"region_code"`
	Kind        string         `db:"kind"`
	Lat         float64        `db:"lat"`
	Lon         float64        `db:"lon"`
	Population  int            `db:"population"`
	AssignedHub sql.NullString `db:"assigned_hub"`
}

type airstripRow struct {
	HubCode string  `db:"hub_code"`
	Lat     float64 `db:"lat"`
	Lon     float64 `db:"lon"`
}

type locationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewLocationRepository(db *DB) repository.LocationRepository {
	return &locationRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

const selectLocations = `
	SELECT code, name, region_code, kind, lat, lon, population, assigned_hub
	FROM locations
`

func (r *locationRepository) GetHubs(ctx context.Context, codes []string) ([]domain.Hub, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var rows []locationRow
	err := r.db.SelectContext(ctx, &rows, selectLocations+` WHERE kind = 'hub' AND code = ANY($1)`, pq.Array(codes))
	if err != nil {
		r.logger.Error("Failed to get hubs", zap.Strings("codes", codes), zap.Error(err))
		return nil, errors.Wrap(errors.ErrDatabaseError, err)
	}

	airstrips, err := r.airstrips(ctx, codes)
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]domain.Hub, len(rows))
	for _, row := range rows {
		hub := row.toHub()
		hub.Airstrips = airstrips[row.Code]
		byCode[row.Code] = hub
	}

	hubs := make([]domain.Hub, 0, len(codes))
	var missing []string
	for _, code := range codes {
		hub, ok := byCode[code]
		if !ok {
			missing = append(missing, code)
			continue
		}
		hubs = append(hubs, hub)
	}
	if len(missing) > 0 {
		return nil, notFound("hub", missing)
	}
	return hubs, nil
}

func (r *locationRepository) GetSatellites(ctx context.Context, codes []string) ([]domain.Satellite, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var rows []locationRow
	err := r.db.SelectContext(ctx, &rows, selectLocations+` WHERE kind = 'satellite' AND code = ANY($1)`, pq.Array(codes))
	if err != nil {
		r.logger.Error("Failed to get satellites", zap.Strings("codes", codes), zap.Error(err))
		return nil, errors.Wrap(errors.ErrDatabaseError, err)
	}

	byCode := make(map[string]domain.Satellite, len(rows))
	for _, row := range rows {
		byCode[row.Code] = row.toSatellite()
	}

	satellites := make([]domain.Satellite, 0, len(codes))
	var missing []string
	for _, code := range codes {
		sat, ok := byCode[code]
		if !ok {
			missing = append(missing, code)
			continue
		}
		satellites = append(satellites, sat)
	}
	if len(missing) > 0 {
		return nil, notFound("satellite", missing)
	}
	return satellites, nil
}

func (r *locationRepository) ListHubs(ctx context.Context, regionCode string) ([]domain.Hub, error) {
	var rows []locationRow
	err := r.db.SelectContext(ctx, &rows,
		selectLocations+` WHERE kind = 'hub' AND ($1 = '' OR region_code = $1) ORDER BY code`, regionCode)
	if err != nil {
		r.logger.Error("Failed to list hubs", zap.String("region", regionCode), zap.Error(err))
		return nil, errors.Wrap(errors.ErrDatabaseError, err)
	}

	codes := make([]string, len(rows))
	for i, row := range rows {
		codes[i] = row.Code
	}
	airstrips, err := r.airstrips(ctx, codes)
	if err != nil {
		return nil, err
	}

	hubs := make([]domain.Hub, len(rows))
	for i, row := range rows {
		hubs[i] = row.toHub()
		hubs[i].Airstrips = airstrips[row.Code]
	}
	return hubs, nil
}

func (r *locationRepository) ListSatellites(ctx context.Context, regionCode string) ([]domain.Satellite, error) {
	var rows []locationRow
	err := r.db.SelectContext(ctx, &rows,
		selectLocations+` WHERE kind = 'satellite' AND ($1 = '' OR region_code = $1) ORDER BY code`, regionCode)
	if err != nil {
		r.logger.Error("Failed to list satellites", zap.String("region", regionCode), zap.Error(err))
		return nil, errors.Wrap(errors.ErrDatabaseError, err)
	}

	satellites := make([]domain.Satellite, len(rows))
	for i, row := range rows {
		satellites[i] = row.toSatellite()
	}
	return satellites, nil
}

// airstrips возвращает полосы по кодам полюсов в порядке position
func (r *locationRepository) airstrips(ctx context.Context, hubCodes []string) (map[string][]domain.Coordinate, error) {
	result := make(map[string][]domain.Coordinate)
	if len(hubCodes) == 0 {
		return result, nil
	}

	var rows []airstripRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT hub_code, lat, lon
		FROM airstrips
		WHERE hub_code = ANY($1)
		ORDER BY hub_code, position
	`, pq.Array(hubCodes))
	if err != nil {
		r.logger.Error("Failed to get airstrips", zap.Error(err))
		return nil, errors.Wrap(errors.ErrDatabaseError, err)
	}

	for _, row := range rows {
		result[row.HubCode] = append(result[row.HubCode], domain.Coordinate{Lat: row.Lat, Lon: row.Lon})
	}
	return result, nil
}

func (row locationRow) toLocation(kind domain.LocationKind) domain.Location {
	return domain.Location{
		Code:       row.Code,
		Name:       row.Name,
		RegionCode: row.RegionCode,
		Kind:       kind,
		Coordinate: domain.Coordinate{Lat: row.Lat, Lon: row.Lon},
		Population: row.Population,
	}
}

func (row locationRow) toHub() domain.Hub {
	return domain.Hub{Location: row.toLocation(domain.KindHub)}
}

func (row locationRow) toSatellite() domain.Satellite {
	sat := domain.Satellite{Location: row.toLocation(domain.KindSatellite)}
	if row.AssignedHub.Valid {
		sat.AssignedHub = row.AssignedHub.String
	}
	return sat
}

func notFound(kind string, codes []string) error {
	return errors.ErrLocationNotFound.WithDetails(map[string]interface{}{
		"kind":  kind,
		"codes": codes,
	})
}
