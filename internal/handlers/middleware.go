package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pelusa-v/bearboo-letters/internal/metrics"
)

// RequestLogger logs one line per request.
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqID := c.Get(fiber.HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, reqID)

		err := c.Next()
		if err != nil {
			// let the app's error handler set the status before we read it
			_ = c.App().ErrorHandler(c, err)
		}
		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Str("request_id", reqID).
			Str("remote_addr", c.IP()).
			Msg("request completed")
		return nil
	}
}

// Metrics records request counts and latency.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		path := normalizePath(c.Path())
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Method(), path, strconv.Itoa(c.Response().StatusCode()),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

// normalizePath keeps metric label cardinality bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/"), path == "/ws", path == "/health", path == "/metrics":
		return path
	default:
		return "/static"
	}
}

func bearerToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	// browsers cannot set headers on a websocket upgrade
	return c.Query("token")
}

// RequireUser resolves the bearer token and stores the user in the context.
func (h *Handler) RequireUser(c *fiber.Ctx) error {
	u, err := h.auth.Authenticate(c.UserContext(), bearerToken(c))
	if err != nil {
		return h.fail(c, err)
	}
	c.Locals(userKey, u)
	return c.Next()
}
