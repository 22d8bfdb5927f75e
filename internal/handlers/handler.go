// Package handlers exposes the HTTP API, the realtime store socket and the
// relay socket on a fiber app.
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pelusa-v/bearboo-letters/internal/activities"
	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/auth"
	"github.com/pelusa-v/bearboo-letters/internal/config"
	"github.com/pelusa-v/bearboo-letters/internal/models"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
	"github.com/pelusa-v/bearboo-letters/internal/relay"
)

const userKey = "user"

// Handler contains shared dependencies for all handlers.
type Handler struct {
	auth  *auth.Service
	store *realtime.Store
	relay *relay.Manager
	bank  *activities.Bank
	cfg   *config.Config
	log   zerolog.Logger
	now   func() time.Time
}

func NewHandler(cfg *config.Config, authSvc *auth.Service, store *realtime.Store, rm *relay.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		auth:  authSvc,
		store: store,
		relay: rm,
		bank:  activities.Default(),
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// fail writes err as {"error": ...} with its mapped status. Only the public
// message leaves the server.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(fiber.Map{
		"error": apperr.Public(err),
		"code":  apperr.CodeOf(err),
	})
}

func currentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(userKey).(*models.User)
	return u
}

func (h *Handler) bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.InvalidArg("invalid request body")
	}
	return nil
}
