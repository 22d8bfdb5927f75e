package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const version = "0.1.0"

type Check struct {
	Status  string `json:"status"` // pass or fail
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status    string           `json:"status"` // healthy or degraded
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

func runCheck(ctx context.Context, ping func(context.Context) error) Check {
	start := time.Now()
	if err := ping(ctx); err != nil {
		return Check{Status: "fail", Message: err.Error()}
	}
	return Check{Status: "pass", Latency: time.Since(start).Round(time.Microsecond).String()}
}

// HealthHandler GET /health
func (h *Handler) HealthHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Version:   version,
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Checks: map[string]Check{
			"store":    runCheck(ctx, h.store.Ping),
			"accounts": runCheck(ctx, h.auth.Ping),
		},
	}
	status := fiber.StatusOK
	for _, ch := range resp.Checks {
		if ch.Status != "pass" {
			resp.Status = "degraded"
			status = fiber.StatusServiceUnavailable
		}
	}
	return c.Status(status).JSON(resp)
}

// ConfigHandler GET /api/config tells clients which codec the deployment uses.
func (h *Handler) ConfigHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"codec": h.cfg.Codec, "version": version})
}
