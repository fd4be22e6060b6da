package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

// PingFunc reports whether a dependency answers within ctx.
type PingFunc func(ctx context.Context) error

// Dependencies lists what readiness checks. Redis is optional; a nil Redis
// check is reported as "disabled" and never fails readiness.
type Dependencies struct {
	Postgres PingFunc
	Redis    PingFunc
}

func RegisterHealthRoutes(app fiber.Router, deps Dependencies) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(deps))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func ReadyzHandler(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		pgStatus := check(ctx, deps.Postgres, true)
		redisStatus := check(ctx, deps.Redis, false)

		status := "ready"
		statusCode := fiber.StatusOK
		if pgStatus == "down" || redisStatus == "down" {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": fiber.Map{
				"postgres": pgStatus,
				"redis":    redisStatus,
			},
		})
	}
}

func check(ctx context.Context, ping PingFunc, required bool) string {
	if ping == nil {
		if required {
			return "down"
		}
		return "disabled"
	}
	if err := ping(ctx); err != nil {
		return "down"
	}
	return "ok"
}
