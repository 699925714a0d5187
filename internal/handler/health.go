package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB and by the Redis client adapter.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler reports the reachability of the service dependencies. A nil
// Redis pinger is reported as "disabled".
type HealthHandler struct {
	DB    Pinger
	Redis Pinger
}

// Health handles GET /healthz. The database is required; Redis is not.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	status := http.StatusOK
	body := echo.Map{"status": "ok", "db": "ok", "redis": "disabled"}
	if err := h.DB.PingContext(ctx); err != nil {
		c.Logger().Errorf("health: db ping: %v", err)
		status = http.StatusServiceUnavailable
		body["status"], body["db"] = "unavailable", "unavailable"
	}
	if h.Redis != nil {
		body["redis"] = "ok"
		if err := h.Redis.PingContext(ctx); err != nil {
			c.Logger().Warnf("health: redis ping: %v", err)
			body["redis"] = "unavailable"
		}
	}
	return c.JSON(status, body)
}
