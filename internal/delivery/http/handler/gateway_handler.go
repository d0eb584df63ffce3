package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/route-composer/internal/pkg/utils"
	"github.com/route-composer/internal/usecase"
	"go.uber.org/zap"
)

// GatewayHandler - состояние шлюза провайдера
type GatewayHandler struct {
	gateway *usecase.ProviderGateway
	logger  *zap.Logger
}

func NewGatewayHandler(gateway *usecase.ProviderGateway, logger *zap.Logger) *GatewayHandler {
	return &GatewayHandler{
		gateway: gateway,
		logger:  logger,
	}
}

// GetStats godoc
// @Summary Статистика шлюза провайдера
// @Description Счётчик вызовов, попадания в кэш, размер кэша и остаток квоты текущего окна (-1 - без ограничения)
// @Tags Gateway
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=usecase.GatewayStats}
// @Router /api/v1/gateway/stats [get]
func (h *GatewayHandler) GetStats(c *fiber.Ctx) error {
	h.logger.Debug("Handling gateway stats request")
	return utils.SendSuccess(c, h.gateway.Stats(c.Context()), nil)
}
