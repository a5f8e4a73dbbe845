package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ridgeline-Capital/assethub/internal/metrics"
)

// MetricsMiddleware records request counts and latency per route pattern.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		route := c.Route().Path
		metrics.IncHTTPRequest(route, c.Method(), strconv.Itoa(status))
		metrics.ObserveDuration(metrics.HTTPRequestDuration, start, route, c.Method())
		return err
	}
}
