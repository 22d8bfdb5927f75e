package relay

import (
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"
)

type Client struct {
	ID   string
	Conn ConnLike
	Send chan []byte
}

type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

func NewClient(id string, conn ConnLike, buffer int) *Client {
	if buffer <= 0 {
		buffer = 16
	}
	return &Client{ID: id, Conn: conn, Send: make(chan []byte, buffer)}
}

// ReadPump forwards every JSON frame to the manager until the connection fails.
// Frames that are not JSON are logged and dropped.
func (c *Client) ReadPump(m *Manager, log zerolog.Logger) {
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		if !json.Valid(data) {
			log.Warn().Str("client", c.ID).Int("bytes", len(data)).Msg("relay frame is not JSON")
			continue
		}
		if !m.Broadcast(&Frame{Origin: c.ID, Data: data}) {
			return
		}
	}
}

func (c *Client) WritePump() {
	for data := range c.Send {
		_ = c.Conn.WriteMessage(websocket.TextMessage, data)
	}
}
