package utils

import (
	"math"

	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/errors"
)

const earthRadiusKm = 6371.0

// HaversineDistance вычисляет расстояние между двумя точками в километрах
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// DistanceKm - расстояние по большому кругу между координатами.
// NaN во входных данных даёт NaN; валидация на стороне вызывающего.
func DistanceKm(a, b domain.Coordinate) float64 {
	return HaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon)
}

// FlightMinutes - время полёта на крейсерской скорости
func FlightMinutes(distanceKm, cruiseSpeedKmh float64) (float64, error) {
	if cruiseSpeedKmh <= 0 || math.IsNaN(cruiseSpeedKmh) {
		return 0, errors.ErrInvalidConfiguration.WithMessage(
			"cruise speed must be greater than zero, got %g km/h", cruiseSpeedKmh)
	}
	return distanceKm / cruiseSpeedKmh * 60, nil
}

// PathDistanceKm - сумма расстояний между последовательными точками
func PathDistanceKm(points []domain.Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += DistanceKm(points[i-1], points[i])
	}
	return total
}

// ValidateCoordinates проверяет валидность координат
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
