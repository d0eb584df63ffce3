package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/route-composer/internal/config"
	"github.com/route-composer/internal/delivery/http/handler"
	"github.com/route-composer/internal/delivery/http/middleware"
	"github.com/route-composer/internal/pkg/errors"
	"github.com/route-composer/internal/pkg/utils"
	"github.com/route-composer/internal/usecase/dto"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"
)

// HealthCheck - проверка зависимости для /health
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	sessionHandler *handler.SessionHandler
	routeHandler   *handler.RouteHandler
	gatewayHandler *handler.GatewayHandler
	checks         []HealthCheck
}

// NewServer - создание нового HTTP сервера
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	sessionHandler *handler.SessionHandler,
	routeHandler *handler.RouteHandler,
	gatewayHandler *handler.GatewayHandler,
	checks ...HealthCheck,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Route Composer",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:            app,
		config:         cfg,
		logger:         logger,
		sessionHandler: sessionHandler,
		routeHandler:   routeHandler,
		gatewayHandler: gatewayHandler,
		checks:         checks,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// App - fiber приложение (для app.Test)
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Caller())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	api := s.app.Group("/api/v1")
	api.Get("/health", s.health)

	// Sessions
	sessions := api.Group("/sessions")
	sessions.Post("/", s.sessionHandler.CreateSession)
	sessions.Get("/:id", s.sessionHandler.GetSession)
	sessions.Delete("/:id", s.sessionHandler.DeleteSession)
	sessions.Post("/:id/hubs/:code", s.sessionHandler.SelectHub)
	sessions.Delete("/:id/hubs/:code", s.sessionHandler.DeselectHub)
	sessions.Put("/:id/hubs/:code/airstrip", s.sessionHandler.SelectAirstrip)
	sessions.Post("/:id/satellites/:code", s.sessionHandler.SelectSatellite)
	sessions.Delete("/:id/satellites/:code", s.sessionHandler.DeselectSatellite)
	sessions.Put("/:id/satellites/:code/hub", s.sessionHandler.AssignSatellite)
	sessions.Patch("/:id/configuration", s.sessionHandler.UpdateConfiguration)
	sessions.Post("/:id/route", s.sessionHandler.ComputeRoute)
	sessions.Get("/:id/route", s.sessionHandler.GetRoute)
	sessions.Get("/:id/route/export", s.sessionHandler.ExportRoute)

	// Stateless
	api.Post("/routes/compute", s.routeHandler.ComputeRoute)

	api.Get("/gateway/stats", s.gatewayHandler.GetStats)
}

// health godoc
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /api/v1/health [get]
func (s *Server) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{Status: "healthy", Services: make(map[string]string, len(s.checks))}
	for _, check := range s.checks {
		if err := check.Check(ctx); err != nil {
			s.logger.Warn("Health check failed", zap.String("service", check.Name), zap.Error(err))
			resp.Services[check.Name] = "unhealthy"
			resp.Status = "degraded"
			continue
		}
		resp.Services[check.Name] = "healthy"
	}

	if resp.Status != "healthy" {
		c.Status(fiber.StatusServiceUnavailable)
	}
	return c.JSON(resp)
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - ошибки fiber (404 маршрута, паники после recover) в формате ErrorResponse
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if e, ok := err.(*fiber.Error); ok {
			logger.Debug("HTTP Error", zap.String("path", c.Path()), zap.Int("status", e.Code), zap.Error(err))
			return c.Status(e.Code).JSON(utils.ErrorResponse{
				Error: errors.New("HTTP_ERROR", e.Message, e.Code),
			})
		}

		logger.Error("HTTP Error", zap.String("path", c.Path()), zap.Error(err))
		return utils.SendError(c, err)
	}
}
