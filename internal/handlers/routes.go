package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// NewApp builds the fiber app with every route mounted.
func (h *Handler) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "bearboo-letters",
		DisableStartupMessage: true,
	})
	app.Use(RequestLogger(h.log), Metrics())
	h.Routes(app)
	return app
}

func (h *Handler) Routes(app *fiber.App) {
	app.Get("/health", h.HealthHandler)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// generic relay
	app.Get("/ws", upgradeOnly, websocket.New(h.RelayHandler))

	api := app.Group("/api")
	api.Get("/config", h.ConfigHandler)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", h.RegisterHandler)
	authGroup.Post("/login", h.LoginHandler)
	authGroup.Post("/logout", h.LogoutHandler)
	authGroup.Get("/me", h.RequireUser, h.MeHandler)

	api.Get("/ws/store", upgradeOnly, h.RequireUser, websocket.New(h.StoreSocketHandler))

	api.Get("/chats", h.RequireUser, h.ChatsHandler)
	api.Post("/chats/pair", h.RequireUser, h.PairHandler)
	api.Get("/rooms/:code", h.RequireUser, h.JoinRoomHandler)

	api.Get("/prefs/themes", h.ThemesHandler)
	api.Put("/prefs/theme", h.RequireUser, h.ThemeHandler)

	act := api.Group("/activities")
	act.Get("/questions", h.QuestionsHandler)
	act.Get("/affirmation", h.AffirmationHandler)
	act.Get("/date-ideas", h.DateIdeasHandler)
	act.Get("/countdown", h.CountdownHandler)
	act.Get("/anniversary-types", h.AnniversaryTypesHandler)
	act.Get("/suggestions", h.SuggestionsHandler)

	if h.cfg.PublicDir != "" {
		app.Static("/", h.cfg.PublicDir)
	}
}
