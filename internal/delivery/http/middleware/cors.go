package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS - разрешённые источники через запятую (API_CORS_ORIGINS); пусто или "*" - любые, без credentials
func CORS(allowOrigins string) fiber.Handler {
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Content-Type,Accept,Authorization," + CallerHeader,
		ExposeHeaders:    "Content-Disposition",
		AllowCredentials: allowOrigins != "*",
	})
}
