package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pelusa-v/bearboo-letters/internal/auth"
	"github.com/pelusa-v/bearboo-letters/internal/models"
)

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func toSession(r *auth.Result) sessionResponse {
	return sessionResponse{Token: r.Token, User: r.User}
}

// RegisterHandler POST /api/auth/register
func (h *Handler) RegisterHandler(c *fiber.Ctx) error {
	var req credentials
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	res, err := h.auth.Register(c.UserContext(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSession(res))
}

// LoginHandler POST /api/auth/login
func (h *Handler) LoginHandler(c *fiber.Ctx) error {
	var req credentials
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(toSession(res))
}

// LogoutHandler POST /api/auth/logout
func (h *Handler) LogoutHandler(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), bearerToken(c)); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MeHandler GET /api/auth/me
func (h *Handler) MeHandler(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}
