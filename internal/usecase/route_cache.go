package usecase

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/clock"
)

type routeEntry struct {
	route    *domain.Route
	storedAt time.Time
}

// RouteCache хранит собранные маршруты по отпечатку выбора и конфигурации.
// maxAge == 0 - записи не стареют.
type RouteCache struct {
	mu      sync.RWMutex
	entries map[string]routeEntry
	maxAge  time.Duration
	clock   clock.Clock
}

func NewRouteCache(maxAge time.Duration, clk clock.Clock) *RouteCache {
	return &RouteCache{
		entries: make(map[string]routeEntry),
		maxAge:  maxAge,
		clock:   clk,
	}
}

func (c *RouteCache) Get(fingerprint string) (*domain.Route, bool) {
	c.mu.RLock()
	entry, ok := c.entries[fingerprint]
	c.mu.RUnlock()

	if !ok || c.expired(entry) {
		return nil, false
	}
	return entry.route, true
}

func (c *RouteCache) Put(fingerprint string, route *domain.Route) {
	c.mu.Lock()
	c.entries[fingerprint] = routeEntry{route: route, storedAt: c.clock.Now()}
	c.mu.Unlock()
}

func (c *RouteCache) Invalidate(fingerprint string) {
	c.mu.Lock()
	delete(c.entries, fingerprint)
	c.mu.Unlock()
}

// Sweep удаляет устаревшие записи и возвращает их количество
func (c *RouteCache) Sweep() int {
	if c.maxAge <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *RouteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *RouteCache) expired(entry routeEntry) bool {
	return c.maxAge > 0 && c.clock.Now().Sub(entry.storedAt) >= c.maxAge
}

// Fingerprint - детерминированный ключ выбора и конфигурации. Входной порядок учитывается там,
// где от него зависит маршрут: первый полюс - фиксированное начало обхода, при выключенной
// оптимизации (или двух полюсах) важен весь порядок полюсов; без полюсов открытый обход
// начинается с первой периферии. Остальные коды сортируются.
func Fingerprint(hubs []domain.Hub, satellites []domain.Satellite, cfg domain.RouteConfiguration) string {
	hubKeys := make([]string, len(hubs))
	for i, h := range hubs {
		key := h.Code
		if h.SelectedAirstrip != nil {
			key += "@" + coordKey(*h.SelectedAirstrip)
		}
		hubKeys[i] = key
	}
	if cfg.OptimizeHubOrder && len(hubKeys) > 2 {
		sort.Strings(hubKeys[1:])
	}

	satKeys := make([]string, len(satellites))
	for i, s := range satellites {
		key := s.Code
		if s.AssignedHub != "" {
			key += "^" + s.AssignedHub
		}
		satKeys[i] = key
	}
	start := ""
	if len(hubs) == 0 && len(satKeys) > 0 {
		start = satKeys[0]
	}
	sort.Strings(satKeys)

	h := xxhash.New()
	_, _ = h.WriteString("hubs=" + strings.Join(hubKeys, ","))
	_, _ = h.WriteString("|start=" + start)
	_, _ = h.WriteString("|sats=" + strings.Join(satKeys, ","))
	_, _ = h.WriteString("|" + cfg.Canonical())
	return strconv.FormatUint(h.Sum64(), 16)
}
