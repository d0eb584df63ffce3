package domain

import "math"

// Coordinate - географическая точка. Значимый тип, не изменяется после создания.
type Coordinate struct {
	Lat float64 `json:"lat" db:"lat"`
	Lon float64 `json:"lon" db:"lon"`
}

// IsDegenerate - исходные данные используют 0,0 как маркер "нет данных"
func (c Coordinate) IsDegenerate() bool {
	return c.Lat == 0 || c.Lon == 0
}

// IsValid проверяет диапазоны широты/долготы и отсутствие NaN
func (c Coordinate) IsValid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// LocationKind - вариант локации
type LocationKind string

const (
	KindHub       LocationKind = "hub"
	KindSatellite LocationKind = "satellite"
)

// Location - общие атрибуты полюса (hub) и периферии (satellite)
type Location struct {
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	RegionCode string       `json:"region_code"`
	Kind       LocationKind `json:"kind"`
	Coordinate Coordinate   `json:"coordinate"`
	Population int          `json:"population,omitempty"`
}

func (l Location) IsHub() bool {
	return l.Kind == KindHub
}

func (l Location) IsSatellite() bool {
	return l.Kind == KindSatellite
}

// Hub - полюс. Список взлётных полос приходит из независимого источника;
// выбранная полоса - только ссылка на координату, а не владение.
type Hub struct {
	Location
	Airstrips        []Coordinate `json:"airstrips,omitempty"`
	SelectedAirstrip *Coordinate  `json:"selected_airstrip,omitempty"`
}

// NewHub создаёт полюс
func NewHub(code, name, region string, coord Coordinate, population int) Hub {
	return Hub{Location: Location{
		Code:       code,
		Name:       name,
		RegionCode: region,
		Kind:       KindHub,
		Coordinate: coord,
		Population: population,
	}}
}

// WithAirstrip возвращает копию полюса с выбранной полосой
func (h Hub) WithAirstrip(c *Coordinate) Hub {
	if c != nil {
		cp := *c
		c = &cp
	}
	h.SelectedAirstrip = c
	return h
}

// Satellite - периферия. AssignedHub - слабая ссылка (код полюса), пустая строка = не назначена.
// Разрешается через таблицу полюсов в момент чтения (см. ResolveAssignedHub).
type Satellite struct {
	Location
	AssignedHub string `json:"assigned_hub,omitempty"`
}

// NewSatellite создаёт периферию без назначенного полюса
func NewSatellite(code, name, region string, coord Coordinate, population int) Satellite {
	return Satellite{Location: Location{
		Code:       code,
		Name:       name,
		RegionCode: region,
		Kind:       KindSatellite,
		Coordinate: coord,
		Population: population,
	}}
}

// AssignedTo возвращает копию периферии, назначенную полюсу hubCode
func (s Satellite) AssignedTo(hubCode string) Satellite {
	s.AssignedHub = hubCode
	return s
}

// ResolveAssignedHub разрешает слабую ссылку на полюс. Если полюс больше не входит в
// рабочий набор, периферия считается неназначенной.
func (s Satellite) ResolveAssignedHub(hubs map[string]Hub) (Hub, bool) {
	if s.AssignedHub == "" {
		return Hub{}, false
	}
	h, ok := hubs[s.AssignedHub]
	return h, ok
}

// HubIndex строит таблицу полюсов по коду
func HubIndex(hubs []Hub) map[string]Hub {
	idx := make(map[string]Hub, len(hubs))
	for _, h := range hubs {
		idx[h.Code] = h
	}
	return idx
}
