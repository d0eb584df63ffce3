package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/route-composer/internal/delivery/http/middleware"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/errors"
	"github.com/route-composer/internal/pkg/utils"
	"github.com/route-composer/internal/pkg/validator"
	"github.com/route-composer/internal/usecase"
	"github.com/route-composer/internal/usecase/dto"
	"go.uber.org/zap"
)

// SessionHandler - рабочие сессии: выбор, конфигурация, расчёт и экспорт маршрута
type SessionHandler struct {
	sessions *usecase.RouteSessionUsecase
	logger   *zap.Logger
}

func NewSessionHandler(sessions *usecase.RouteSessionUsecase, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// CreateSession godoc
// @Summary Создать рабочую сессию
// @Description Создаёт пустой выбор полюсов и периферий с конфигурацией по умолчанию (можно переопределить поля)
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body dto.CreateSessionRequest false "Начальная конфигурация"
// @Success 201 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, errors.ErrInvalidRequest.WithMessage("invalid request body"))
		}
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	var patch *domain.ConfigurationPatch
	if req.Configuration != nil {
		p, err := req.Configuration.ToPatch()
		if err != nil {
			return utils.SendError(c, err)
		}
		patch = &p
	}

	view, err := h.sessions.CreateSession(middleware.CallerID(c), patch)
	if err != nil {
		return utils.SendError(c, err)
	}

	c.Status(fiber.StatusCreated)
	return utils.SendSuccess(c, dto.NewSessionResponse(view), nil)
}

// GetSession godoc
// @Summary Состояние сессии
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	view, err := h.sessions.GetSession(id)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, dto.NewSessionResponse(view), nil)
}

// DeleteSession godoc
// @Summary Удалить сессию
// @Tags Sessions
// @Param id path string true "ID сессии"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	if err := h.sessions.DeleteSession(id); err != nil {
		return utils.SendError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SelectHub godoc
// @Summary Выбрать полюс
// @Description Добавляет полюс в выбор и сбрасывает отображаемый маршрут. Не более 40 локаций в сумме.
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Param code path string true "Код полюса"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/hubs/{code} [post]
func (h *SessionHandler) SelectHub(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.respond(c)(h.sessions.SelectHub(c.Context(), id, c.Params("code")))
}

// DeselectHub godoc
// @Summary Убрать полюс из выбора
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Param code path string true "Код полюса"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/hubs/{code} [delete]
func (h *SessionHandler) DeselectHub(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.respond(c)(h.sessions.DeselectHub(id, c.Params("code")))
}

// SelectSatellite godoc
// @Summary Выбрать периферию
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Param code path string true "Код периферии"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/satellites/{code} [post]
func (h *SessionHandler) SelectSatellite(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.respond(c)(h.sessions.SelectSatellite(c.Context(), id, c.Params("code")))
}

// DeselectSatellite godoc
// @Summary Убрать периферию из выбора
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Param code path string true "Код периферии"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/satellites/{code} [delete]
func (h *SessionHandler) DeselectSatellite(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.respond(c)(h.sessions.DeselectSatellite(id, c.Params("code")))
}

// AssignSatellite godoc
// @Summary Закрепить периферию за полюсом
// @Description Пустой hub_code снимает закрепление; закрепление за невыбранным полюсом игнорируется при сборке
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param code path string true "Код периферии"
// @Param request body dto.AssignSatelliteRequest true "Код полюса"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/satellites/{code}/hub [put]
func (h *SessionHandler) AssignSatellite(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.AssignSatelliteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithMessage("invalid request body"))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}
	return h.respond(c)(h.sessions.AssignSatellite(id, c.Params("code"), req.HubCode))
}

// SelectAirstrip godoc
// @Summary Выбрать взлётную полосу полюса
// @Description Индекс в списке полос полюса; -1 - использовать координату полюса
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param code path string true "Код полюса"
// @Param request body dto.SelectAirstripRequest true "Индекс полосы"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/hubs/{code}/airstrip [put]
func (h *SessionHandler) SelectAirstrip(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.SelectAirstripRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithMessage("invalid request body"))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}
	return h.respond(c)(h.sessions.SelectAirstrip(c.Context(), id, c.Params("code"), *req.Index))
}

// UpdateConfiguration godoc
// @Summary Обновить конфигурацию маршрута
// @Description Сливает переданные поля с текущей конфигурацией. Изменение только hub_pair_modes не сбрасывает отображаемый маршрут.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "ID сессии"
// @Param request body dto.ConfigurationRequest true "Изменяемые поля"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/configuration [patch]
func (h *SessionHandler) UpdateConfiguration(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req dto.ConfigurationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithMessage("invalid request body"))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}
	patch, err := req.ToPatch()
	if err != nil {
		return utils.SendError(c, err)
	}
	return h.respond(c)(h.sessions.UpdateConfiguration(id, patch))
}

// ComputeRoute godoc
// @Summary Рассчитать маршрут
// @Description Собирает маршрут для текущего выбора. Деградация точности (оценённые участки, упрощённый порядок, исчерпанная квота) отражается в warnings.
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} utils.SuccessResponse{data=dto.RouteResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/route [post]
func (h *SessionHandler) ComputeRoute(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	route, cached, err := h.sessions.ComputeRoute(c.Context(), id)
	if err != nil {
		if errors.IsContractViolation(err) {
			h.logger.Info("Route request rejected", zap.String("session_id", id.String()), zap.Error(err))
		}
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, dto.NewRouteResponse(route, cached), &utils.Meta{Cached: cached})
}

// GetRoute godoc
// @Summary Отображаемый маршрут
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Success 200 {object} utils.SuccessResponse{data=usecase.RouteDocument}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/route [get]
func (h *SessionHandler) GetRoute(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	route, err := h.sessions.GetRoute(id)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, usecase.ExportRoute(route), nil)
}

// ExportRoute godoc
// @Summary Экспорт отображаемого маршрута
// @Description json - структурированный документ; geojson - FeatureCollection с LineString участков и Point остановок
// @Tags Sessions
// @Produce json
// @Param id path string true "ID сессии"
// @Param format query string false "json | geojson" default(json)
// @Success 200 {object} usecase.RouteDocument
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/route/export [get]
func (h *SessionHandler) ExportRoute(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	format, err := usecase.ParseExportFormat(c.Query("format"))
	if err != nil {
		return utils.SendError(c, err)
	}
	route, err := h.sessions.GetRoute(id)
	if err != nil {
		return utils.SendError(c, err)
	}
	return sendExport(c, route, format)
}

func (h *SessionHandler) respond(c *fiber.Ctx) func(usecase.SessionView, error) error {
	return func(view usecase.SessionView, err error) error {
		if err != nil {
			return utils.SendError(c, err)
		}
		return utils.SendSuccess(c, dto.NewSessionResponse(view), nil)
	}
}

func sessionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errors.ErrInvalidRequest.WithMessage("session id must be a UUID")
	}
	return id, nil
}

func sendExport(c *fiber.Ctx, route *domain.Route, format usecase.ExportFormat) error {
	if format == usecase.ExportGeoJSON {
		body, err := usecase.ExportGeoJSONRoute(route).MarshalJSON()
		if err != nil {
			return utils.SendError(c, errors.Wrap(errors.ErrInternalServer, err))
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="route-`+route.ID+`.geojson"`)
		return c.Send(body)
	}
	return c.JSON(usecase.ExportRoute(route))
}
