package repository

import (
	"context"

	"github.com/route-composer/internal/domain"
)

// LocationRepository - каталог полюсов и периферий
type LocationRepository interface {
	// GetHubs возвращает полюса по кодам в порядке запроса
	GetHubs(ctx context.Context, codes []string) ([]domain.Hub, error)

	// GetSatellites возвращает периферии по кодам в порядке запроса
	GetSatellites(ctx context.Context, codes []string) ([]domain.Satellite, error)

	// ListHubs возвращает все полюса региона (пустой regionCode - все)
	ListHubs(ctx context.Context, regionCode string) ([]domain.Hub, error)

	// ListSatellites возвращает все периферии региона
	ListSatellites(ctx context.Context, regionCode string) ([]domain.Satellite, error)
}
