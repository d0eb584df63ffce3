package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CallerHeader - заголовок с идентификатором вызывающего для лимитов провайдера
const CallerHeader = "X-Caller-ID"

const callerLocal = "caller"

// Caller определяет вызывающего по заголовку X-Caller-ID, иначе по IP
func Caller() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := strings.TrimSpace(c.Get(CallerHeader))
		if caller == "" {
			caller = c.IP()
		}
		c.Locals(callerLocal, caller)
		return c.Next()
	}
}

// CallerID возвращает идентификатор вызывающего текущего запроса
func CallerID(c *fiber.Ctx) string {
	if caller, ok := c.Locals(callerLocal).(string); ok {
		return caller
	}
	return ""
}
