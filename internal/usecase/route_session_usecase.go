package usecase

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/clock"
	"github.com/route-composer/internal/pkg/errors"
	"go.uber.org/zap"
)

// routeSession - рабочее состояние одного пользователя.
// revision растёт при каждом изменении выбора или конфигурации.
type routeSession struct {
	id          uuid.UUID
	caller      string
	hubs        []string
	satellites  []string
	airstrips   map[string]int
	assignments map[string]string
	config      domain.RouteConfiguration
	route       *domain.Route
	revision    uint64
	touchedAt   time.Time
}

// SessionView - снимок сессии для внешнего слоя
type SessionView struct {
	ID             uuid.UUID                 `json:"id"`
	HubCodes       []string                  `json:"hub_codes"`
	SatelliteCodes []string                  `json:"satellite_codes"`
	Airstrips      map[string]int            `json:"airstrips,omitempty"`
	Assignments    map[string]string         `json:"assignments,omitempty"`
	Configuration  domain.RouteConfiguration `json:"configuration"`
	HasRoute       bool                      `json:"has_route"`
	Revision       uint64                    `json:"revision"`
}

// RouteSessionUsecase - выбор полюсов и периферий, конфигурация и отображаемый маршрут
type RouteSessionUsecase struct {
	routes   *RouteUsecase
	defaults domain.RouteConfiguration
	idleTTL  time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*routeSession
}

func NewRouteSessionUsecase(
	routes *RouteUsecase,
	defaults domain.RouteConfiguration,
	idleTTL time.Duration,
	clk clock.Clock,
	logger *zap.Logger,
) *RouteSessionUsecase {
	return &RouteSessionUsecase{
		routes:   routes,
		defaults: defaults,
		idleTTL:  idleTTL,
		clock:    clk,
		logger:   logger,
		sessions: make(map[uuid.UUID]*routeSession),
	}
}

func (uc *RouteSessionUsecase) CreateSession(caller string, patch *domain.ConfigurationPatch) (SessionView, error) {
	cfg := uc.defaults.Clone()
	if patch != nil {
		next, err := patch.Apply(cfg)
		if err != nil {
			return SessionView{}, err
		}
		cfg = next
	}

	s := &routeSession{
		id:          uuid.New(),
		caller:      caller,
		airstrips:   make(map[string]int),
		assignments: make(map[string]string),
		config:      cfg,
		touchedAt:   uc.clock.Now(),
	}

	uc.mu.Lock()
	uc.sessions[s.id] = s
	uc.mu.Unlock()

	uc.logger.Info("Route session created", zap.String("session_id", s.id.String()), zap.String("caller", caller))
	return s.view(), nil
}

func (uc *RouteSessionUsecase) GetSession(id uuid.UUID) (SessionView, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	s, err := uc.get(id)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(), nil
}

func (uc *RouteSessionUsecase) DeleteSession(id uuid.UUID) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if _, err := uc.get(id); err != nil {
		return err
	}
	delete(uc.sessions, id)
	return nil
}

// SelectHub добавляет полюс в выбор. Повторный выбор ничего не меняет.
func (uc *RouteSessionUsecase) SelectHub(ctx context.Context, id uuid.UUID, code string) (SessionView, error) {
	if _, err := uc.routes.locations.GetHubs(ctx, []string{code}); err != nil {
		return SessionView{}, err
	}
	return uc.mutate(id, func(s *routeSession) (bool, error) {
		if slices.Contains(s.hubs, code) {
			return false, nil
		}
		if err := uc.routes.CheckSelectionSize(len(s.hubs) + len(s.satellites) + 1); err != nil {
			return false, err
		}
		s.hubs = append(s.hubs, code)
		return true, nil
	})
}

func (uc *RouteSessionUsecase) DeselectHub(id uuid.UUID, code string) (SessionView, error) {
	return uc.mutate(id, func(s *routeSession) (bool, error) {
		idx := slices.Index(s.hubs, code)
		if idx < 0 {
			return false, nil
		}
		s.hubs = slices.Delete(s.hubs, idx, idx+1)
		delete(s.airstrips, code)
		maps.DeleteFunc(s.assignments, func(_, hub string) bool { return hub == code })
		return true, nil
	})
}

// SelectSatellite добавляет периферию в выбор. Повторный выбор ничего не меняет.
func (uc *RouteSessionUsecase) SelectSatellite(ctx context.Context, id uuid.UUID, code string) (SessionView, error) {
	if _, err := uc.routes.locations.GetSatellites(ctx, []string{code}); err != nil {
		return SessionView{}, err
	}
	return uc.mutate(id, func(s *routeSession) (bool, error) {
		if slices.Contains(s.satellites, code) {
			return false, nil
		}
		if err := uc.routes.CheckSelectionSize(len(s.hubs) + len(s.satellites) + 1); err != nil {
			return false, err
		}
		s.satellites = append(s.satellites, code)
		return true, nil
	})
}

func (uc *RouteSessionUsecase) DeselectSatellite(id uuid.UUID, code string) (SessionView, error) {
	return uc.mutate(id, func(s *routeSession) (bool, error) {
		idx := slices.Index(s.satellites, code)
		if idx < 0 {
			return false, nil
		}
		s.satellites = slices.Delete(s.satellites, idx, idx+1)
		delete(s.assignments, code)
		return true, nil
	})
}

// SelectAirstrip выбирает полосу выбранного полюса по индексу; NoAirstrip сбрасывает выбор
func (uc *RouteSessionUsecase) SelectAirstrip(ctx context.Context, id uuid.UUID, hubCode string, index int) (SessionView, error) {
	if index != NoAirstrip {
		hubs, err := uc.routes.locations.GetHubs(ctx, []string{hubCode})
		if err != nil {
			return SessionView{}, err
		}
		if _, err := AirstripAt(hubs[0], index); err != nil {
			return SessionView{}, err
		}
	}
	return uc.mutate(id, func(s *routeSession) (bool, error) {
		if !slices.Contains(s.hubs, hubCode) {
			return false, errors.ErrInvalidRequest.WithMessage("hub %s is not selected", hubCode)
		}
		current, ok := s.airstrips[hubCode]
		if index == NoAirstrip {
			if !ok {
				return false, nil
			}
			delete(s.airstrips, hubCode)
			return true, nil
		}
		if ok && current == index {
			return false, nil
		}
		s.airstrips[hubCode] = index
		return true, nil
	})
}

// AssignSatellite вручную закрепляет периферию за полюсом; пустой hubCode снимает закрепление
func (uc *RouteSessionUsecase) AssignSatellite(id uuid.UUID, satelliteCode, hubCode string) (SessionView, error) {
	return uc.mutate(id, func(s *routeSession) (bool, error) {
		if !slices.Contains(s.satellites, satelliteCode) {
			return false, errors.ErrInvalidRequest.WithMessage("satellite %s is not selected", satelliteCode)
		}
		current, ok := s.assignments[satelliteCode]
		if hubCode == "" {
			if !ok {
				return false, nil
			}
			delete(s.assignments, satelliteCode)
			return true, nil
		}
		if ok && current == hubCode {
			return false, nil
		}
		s.assignments[satelliteCode] = hubCode
		return true, nil
	})
}

// UpdateConfiguration сливает патч с конфигурацией сессии. Отображаемый маршрут сбрасывается,
// кроме случая, когда изменились только переопределения пар полюсов.
func (uc *RouteSessionUsecase) UpdateConfiguration(id uuid.UUID, patch domain.ConfigurationPatch) (SessionView, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	s, err := uc.get(id)
	if err != nil {
		return SessionView{}, err
	}

	next, err := patch.Apply(s.config)
	if err != nil {
		return SessionView{}, err
	}
	if next.Canonical() == s.config.Canonical() {
		return s.view(), nil
	}

	overridesOnly := next.EqualIgnoringOverrides(s.config)
	s.config = next
	s.revision++
	s.touchedAt = uc.clock.Now()
	if !overridesOnly {
		s.route = nil
	}
	return s.view(), nil
}

// ComputeRoute считает маршрут для текущего выбора. Если за время расчёта выбор или
// конфигурация изменились, маршрут возвращается, но отображаемым не становится.
func (uc *RouteSessionUsecase) ComputeRoute(ctx context.Context, id uuid.UUID) (*domain.Route, bool, error) {
	uc.mu.Lock()
	s, err := uc.get(id)
	if err != nil {
		uc.mu.Unlock()
		return nil, false, err
	}
	sel := s.selection()
	cfg := s.config.Clone()
	revision := s.revision
	caller := s.caller
	uc.mu.Unlock()

	route, cached, err := uc.routes.Compute(WithCaller(ctx, caller), sel, cfg)
	if err != nil {
		uc.logger.Info("Route computation rejected",
			zap.String("session_id", id.String()),
			zap.String("selection", describeSelection(sel)),
			zap.Error(err))
		return nil, false, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if current, ok := uc.sessions[id]; ok && current.revision == revision {
		current.route = route
		current.touchedAt = uc.clock.Now()
	} else {
		uc.logger.Debug("Session changed during computation, route not displayed", zap.String("session_id", id.String()))
	}
	return route, cached, nil
}

// GetRoute возвращает отображаемый маршрут
func (uc *RouteSessionUsecase) GetRoute(id uuid.UUID) (*domain.Route, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	s, err := uc.get(id)
	if err != nil {
		return nil, err
	}
	if s.route == nil {
		return nil, errors.ErrRouteNotComputed
	}
	return s.route, nil
}

// Sweep удаляет сессии, неактивные дольше idleTTL
func (uc *RouteSessionUsecase) Sweep() int {
	if uc.idleTTL <= 0 {
		return 0
	}
	now := uc.clock.Now()

	uc.mu.Lock()
	defer uc.mu.Unlock()

	removed := 0
	for id, s := range uc.sessions {
		if now.Sub(s.touchedAt) >= uc.idleTTL {
			delete(uc.sessions, id)
			removed++
		}
	}
	return removed
}

func (uc *RouteSessionUsecase) Len() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.sessions)
}

// mutate применяет изменение выбора под блокировкой. При changed == true отображаемый маршрут
// сбрасывается; при ошибке сессия остаётся прежней.
func (uc *RouteSessionUsecase) mutate(id uuid.UUID, fn func(s *routeSession) (bool, error)) (SessionView, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	s, err := uc.get(id)
	if err != nil {
		return SessionView{}, err
	}
	changed, err := fn(s)
	if err != nil {
		return SessionView{}, err
	}
	if changed {
		s.route = nil
		s.revision++
	}
	s.touchedAt = uc.clock.Now()
	return s.view(), nil
}

func (uc *RouteSessionUsecase) get(id uuid.UUID) (*routeSession, error) {
	s, ok := uc.sessions[id]
	if !ok {
		return nil, errors.ErrSessionNotFound.WithDetails(map[string]interface{}{"session_id": id.String()})
	}
	return s, nil
}

func (s *routeSession) selection() Selection {
	sel := Selection{
		HubCodes:       slices.Clone(s.hubs),
		SatelliteCodes: slices.Clone(s.satellites),
		Airstrips:      make(map[string]int, len(s.airstrips)),
		Assignments:    make(map[string]string, len(s.assignments)),
	}
	for k, v := range s.airstrips {
		sel.Airstrips[k] = v
	}
	for k, v := range s.assignments {
		sel.Assignments[k] = v
	}
	return sel
}

func (s *routeSession) view() SessionView {
	sel := s.selection()
	if sel.HubCodes == nil {
		sel.HubCodes = []string{}
	}
	if sel.SatelliteCodes == nil {
		sel.SatelliteCodes = []string{}
	}
	return SessionView{
		ID:             s.id,
		HubCodes:       sel.HubCodes,
		SatelliteCodes: sel.SatelliteCodes,
		Airstrips:      sel.Airstrips,
		Assignments:    sel.Assignments,
		Configuration:  s.config.Clone(),
		HasRoute:       s.route != nil,
		Revision:       s.revision,
	}
}
