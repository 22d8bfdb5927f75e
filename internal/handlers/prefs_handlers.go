package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/prefs"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
	"github.com/pelusa-v/bearboo-letters/internal/refs"
)

// ThemeHandler PUT /api/prefs/theme
func (h *Handler) ThemeHandler(c *fiber.Ctx) error {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	theme, err := prefs.NormalizeTheme(req.Theme)
	if err != nil {
		return h.fail(c, err)
	}
	u := currentUser(c)
	if err := h.store.Update(c.UserContext(), refs.User(u.ID), realtime.Value{"theme": theme}); err != nil {
		return h.fail(c, apperr.ErrStoreFailure(err))
	}
	return c.JSON(fiber.Map{"theme": theme})
}

// ThemesHandler GET /api/prefs/themes
func (h *Handler) ThemesHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"themes": prefs.Themes, "default": prefs.DefaultTheme})
}
