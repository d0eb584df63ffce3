package testhelpers

import (
	"github.com/jmoiron/sqlx"
	"github.com/route-composer/internal/domain/repository"
	"github.com/route-composer/internal/repository/postgres"
	"go.uber.org/zap"
)

// NewLocationRepositoryForTest creates a location repository with test database and logger
func NewLocationRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.LocationRepository {
	return postgres.NewLocationRepository(postgres.NewDBForTest(db, logger))
}
