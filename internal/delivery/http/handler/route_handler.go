package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/route-composer/internal/delivery/http/middleware"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/pkg/errors"
	"github.com/route-composer/internal/pkg/utils"
	"github.com/route-composer/internal/pkg/validator"
	"github.com/route-composer/internal/usecase"
	"github.com/route-composer/internal/usecase/dto"
	"go.uber.org/zap"
)

// RouteHandler - расчёт маршрута без сессии
type RouteHandler struct {
	routes   *usecase.RouteUsecase
	defaults domain.RouteConfiguration
	logger   *zap.Logger
}

func NewRouteHandler(routes *usecase.RouteUsecase, defaults domain.RouteConfiguration, logger *zap.Logger) *RouteHandler {
	return &RouteHandler{
		routes:   routes,
		defaults: defaults,
		logger:   logger,
	}
}

// ComputeRoute godoc
// @Summary Рассчитать маршрут по кодам
// @Description Выбор и конфигурация передаются в теле запроса. Ошибки контракта (EMPTY_SELECTION, SELECTION_TOO_LARGE, INVALID_LEG_REQUEST, INVALID_CONFIGURATION) маршрута не возвращают.
// @Tags Routes
// @Accept json
// @Produce json
// @Param format query string false "json | geojson" default(json)
// @Param request body dto.ComputeRouteRequest true "Выбор и конфигурация"
// @Success 200 {object} utils.SuccessResponse{data=dto.RouteResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/routes/compute [post]
func (h *RouteHandler) ComputeRoute(c *fiber.Ctx) error {
	var req dto.ComputeRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithMessage("invalid request body"))
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}
	format, err := usecase.ParseExportFormat(c.Query("format"))
	if err != nil {
		return utils.SendError(c, err)
	}

	cfg := h.defaults.Clone()
	if req.Configuration != nil {
		patch, err := req.Configuration.ToPatch()
		if err != nil {
			return utils.SendError(c, err)
		}
		if cfg, err = patch.Apply(cfg); err != nil {
			return utils.SendError(c, err)
		}
	}

	sel := usecase.Selection{
		HubCodes:       req.HubCodes,
		SatelliteCodes: req.SatelliteCodes,
		Airstrips:      req.Airstrips,
		Assignments:    req.Assignments,
	}

	ctx := usecase.WithCaller(c.Context(), middleware.CallerID(c))
	route, cached, err := h.routes.Compute(ctx, sel, cfg)
	if err != nil {
		if errors.IsContractViolation(err) {
			h.logger.Info("Route request rejected", zap.Error(err))
		}
		return utils.SendError(c, err)
	}

	if format == usecase.ExportGeoJSON {
		return sendExport(c, route, format)
	}
	return utils.SendSuccess(c, dto.NewRouteResponse(route, cached), &utils.Meta{Cached: cached})
}
