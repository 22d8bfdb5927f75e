package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/pelusa-v/bearboo-letters/internal/relay"
)

// RelayHandler GET /ws
func (h *Handler) RelayHandler(ws *websocket.Conn) {
	client := relay.NewClient(uuid.NewString(), ws, h.cfg.Relay.SendBuffer)
	h.relay.Serve(client)
}
