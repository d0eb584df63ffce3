package usecase

import (
	"context"
	"math"

	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/errors"
	"github.com/route-composer/internal/pkg/utils"
	"go.uber.org/zap"
)

// exhaustiveHubLimit - до скольких полюсов порядок ищется полным перебором
const exhaustiveHubLimit = 8

// WaypointOptimizer - оптимизация порядка точек через шлюз провайдера
type WaypointOptimizer interface {
	OptimizeWaypointOrder(ctx context.Context, start domain.Coordinate, end *domain.Coordinate, waypoints []domain.Coordinate) (*domain.WaypointOrder, error)
	MaxOptimizationWaypoints(roundTrip bool) int
}

// OrderMethod - как получен порядок периферий
type OrderMethod string

const (
	OrderInput           OrderMethod = "input"
	OrderProvider        OrderMethod = "provider"
	OrderNearestNeighbor OrderMethod = "nearest-neighbor"
)

// SatelliteOrder - порядок обхода периферий одного полюса.
// FallbackReason заполнен, если провайдер не ответил и порядок построен локально.
type SatelliteOrder struct {
	Satellites     []domain.Satellite
	Method         OrderMethod
	FallbackReason error
}

type SequenceOptimizer struct {
	optimizer WaypointOptimizer
	logger    *zap.Logger
}

func NewSequenceOptimizer(optimizer WaypointOptimizer, logger *zap.Logger) *SequenceOptimizer {
	return &SequenceOptimizer{optimizer: optimizer, logger: logger}
}

// AssignSatellitesToNearestHub распределяет периферии по полюсам. Существующее назначение
// соблюдается, если полюс есть в наборе; иначе выбирается ближайший по координате полюса
// (не полосы), при равенстве - первый во входном порядке.
func AssignSatellitesToNearestHub(hubs []domain.Hub, satellites []domain.Satellite) map[string][]domain.Satellite {
	result := make(map[string][]domain.Satellite, len(hubs))
	if len(hubs) == 0 {
		return result
	}
	index := domain.HubIndex(hubs)

	for _, sat := range satellites {
		if hub, ok := sat.ResolveAssignedHub(index); ok {
			result[hub.Code] = append(result[hub.Code], sat)
			continue
		}

		best := 0
		bestDist := math.Inf(1)
		for i, h := range hubs {
			if d := utils.DistanceKm(sat.Coordinate, h.Coordinate); d < bestDist {
				best, bestDist = i, d
			}
		}
		code := hubs[best].Code
		result[code] = append(result[code], sat)
	}
	return result
}

// OrderHubs упорядочивает полюса, первый полюс фиксирован. До 8 полюсов - полный перебор
// перестановок (при равенстве побеждает первая найденная), больше - ближайший сосед.
func OrderHubs(hubs []domain.Hub, cfg domain.RouteConfiguration) []domain.Hub {
	ordered := make([]domain.Hub, len(hubs))
	copy(ordered, hubs)
	if !cfg.OptimizeHubOrder || len(hubs) <= 2 {
		return ordered
	}

	points := make([]domain.Coordinate, len(hubs))
	for i, h := range hubs {
		points[i] = h.Coordinate
	}
	dist := distanceMatrix(points)

	var order []int
	if len(hubs) <= exhaustiveHubLimit {
		order = exhaustiveOpenPath(dist)
	} else {
		order = nearestNeighbor(dist, 0)
	}

	for i, idx := range order {
		ordered[i] = hubs[idx]
	}
	return ordered
}

// OrderSatellitesForHub упорядочивает периферии полюса: провайдер (в пределах его лимита точек,
// круговой маршрут от полюса), при ошибке провайдера или больших наборах - ближайший сосед от
// периферии, ближайшей к полюсу. Большой набор не считается деградацией.
func (o *SequenceOptimizer) OrderSatellitesForHub(
	ctx context.Context,
	hub domain.Hub,
	satellites []domain.Satellite,
	cfg domain.RouteConfiguration,
) (SatelliteOrder, error) {
	if len(satellites) <= 1 {
		return SatelliteOrder{Satellites: cloneSatellites(satellites), Method: OrderInput}, nil
	}

	if cfg.OptimizeSatelliteOrder && len(satellites) <= o.optimizer.MaxOptimizationWaypoints(true) {
		res, err := o.optimizer.OptimizeWaypointOrder(ctx, hub.Coordinate, nil, satelliteCoordinates(satellites))
		if err == nil && !isPermutation(res.Order, len(satellites)) {
			err = errors.ErrProviderUnavailable.WithMessage("provider returned an invalid waypoint order")
		}
		if err == nil {
			ordered := make([]domain.Satellite, len(satellites))
			for i, idx := range res.Order {
				ordered[i] = satellites[idx]
			}
			return SatelliteOrder{Satellites: ordered, Method: OrderProvider}, nil
		}
		if errors.IsContractViolation(err) {
			return SatelliteOrder{}, err
		}

		o.logger.Warn("Satellite order falls back to nearest neighbor",
			zap.String("hub", hub.Code),
			zap.Int("satellites", len(satellites)),
			zap.Error(err))
		order := nearestNeighborFromHub(hub, satellites)
		order.FallbackReason = err
		return order, nil
	}

	return nearestNeighborFromHub(hub, satellites), nil
}

// OrderSatellitesOpen - открытый обход периферий без полюсов, начиная с первой во входном порядке
func OrderSatellitesOpen(satellites []domain.Satellite) []domain.Satellite {
	if len(satellites) <= 1 {
		return cloneSatellites(satellites)
	}
	order := nearestNeighbor(distanceMatrix(satelliteCoordinates(satellites)), 0)
	return pick(satellites, order)
}

func nearestNeighborFromHub(hub domain.Hub, satellites []domain.Satellite) SatelliteOrder {
	start := 0
	bestDist := math.Inf(1)
	for i, s := range satellites {
		if d := utils.DistanceKm(hub.Coordinate, s.Coordinate); d < bestDist {
			start, bestDist = i, d
		}
	}
	order := nearestNeighbor(distanceMatrix(satelliteCoordinates(satellites)), start)
	return SatelliteOrder{Satellites: pick(satellites, order), Method: OrderNearestNeighbor}
}

// nearestNeighbor - жадный обход от start; текущая точка помечается посещённой до выбора
// следующей, при равных расстояниях побеждает меньший индекс
func nearestNeighbor(dist [][]float64, start int) []int {
	n := len(dist)
	visited := make([]bool, n)
	order := make([]int, 0, n)

	current := start
	for len(order) < n {
		visited[current] = true
		order = append(order, current)

		next := -1
		nextDist := math.Inf(1)
		for j := 0; j < n; j++ {
			if !visited[j] && dist[current][j] < nextDist {
				next, nextDist = j, dist[current][j]
			}
		}
		if next < 0 {
			break
		}
		current = next
	}
	return order
}

// exhaustiveOpenPath перебирает все пути с фиксированной первой точкой
func exhaustiveOpenPath(dist [][]float64) []int {
	n := len(dist)
	best := make([]int, n)
	bestLen := math.Inf(1)

	for perm := range permutations(n - 1) {
		length := 0.0
		prev := 0
		for _, p := range perm {
			length += dist[prev][p+1]
			prev = p + 1
		}
		if length < bestLen {
			bestLen = length
			best[0] = 0
			for i, p := range perm {
				best[i+1] = p + 1
			}
		}
	}
	return best
}

func distanceMatrix(points []domain.Coordinate) [][]float64 {
	n := len(points)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := utils.DistanceKm(points[i], points[j])
			dist[i][j], dist[j][i] = d, d
		}
	}
	return dist
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

func satelliteCoordinates(satellites []domain.Satellite) []domain.Coordinate {
	points := make([]domain.Coordinate, len(satellites))
	for i, s := range satellites {
		points[i] = s.Coordinate
	}
	return points
}

func pick(satellites []domain.Satellite, order []int) []domain.Satellite {
	out := make([]domain.Satellite, len(order))
	for i, idx := range order {
		out[i] = satellites[idx]
	}
	return out
}

func cloneSatellites(satellites []domain.Satellite) []domain.Satellite {
	out := make([]domain.Satellite, len(satellites))
	copy(out, satellites)
	return out
}
