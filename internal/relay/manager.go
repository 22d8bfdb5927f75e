// Package relay is the generic WebSocket broadcast relay: every JSON frame a
// client sends is forwarded to every other connected client. It keeps no
// history and gives no ordering guarantee across clients.
package relay

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pelusa-v/bearboo-letters/internal/metrics"
)

const WelcomeMessage = "Connected to BearBooLetters WebSocket server"

type Frame struct {
	Origin string
	Data   []byte
}

type Welcome struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client

	RegisterChan   chan *Client
	UnregisterChan chan *Client
	BroadcastChan  chan *Frame
	quit           chan struct{}
	stopOnce       sync.Once

	log zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		clients:        map[string]*Client{},
		RegisterChan:   make(chan *Client),
		UnregisterChan: make(chan *Client),
		BroadcastChan:  make(chan *Frame, 16),
		quit:           make(chan struct{}),
		log:            log.With().Str("component", "relay").Logger(),
	}
}

func (m *Manager) ClientIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.clients))
	for id := range m.clients {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) Start() {
	for {
		select {
		case client := <-m.RegisterChan:
			m.mu.Lock()
			m.clients[client.ID] = client
			m.mu.Unlock()
			metrics.RelayClients.Inc()
			m.log.Info().Str("client", client.ID).Msg("client connected to relay")

			data, _ := json.Marshal(&Welcome{Type: "connected", Message: WelcomeMessage})
			select {
			case client.Send <- data:
			default:
			}

		case client := <-m.UnregisterChan:
			m.mu.Lock()
			if _, ok := m.clients[client.ID]; ok {
				delete(m.clients, client.ID)
				close(client.Send)
				metrics.RelayClients.Dec()
				m.log.Info().Str("client", client.ID).Msg("client disconnected from relay")
			}
			m.mu.Unlock()

		case frame := <-m.BroadcastChan:
			m.mu.RLock()
			for id, c := range m.clients {
				if id == frame.Origin {
					continue
				}
				select {
				case c.Send <- frame.Data:
				default:
				}
			}
			m.mu.RUnlock()
			metrics.RelayBroadcasts.Inc()

		case <-m.quit:
			m.mu.Lock()
			for id, c := range m.clients {
				delete(m.clients, id)
				close(c.Send)
				metrics.RelayClients.Dec()
			}
			m.mu.Unlock()
			return
		}
	}
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.quit) })
}

func (m *Manager) Register(c *Client) bool {
	select {
	case m.RegisterChan <- c:
		return true
	case <-m.quit:
		return false
	}
}

func (m *Manager) Unregister(c *Client) {
	select {
	case m.UnregisterChan <- c:
	case <-m.quit:
	}
}

func (m *Manager) Broadcast(f *Frame) bool {
	select {
	case m.BroadcastChan <- f:
		return true
	case <-m.quit:
		return false
	}
}

// Serve runs one client until its connection drops.
func (m *Manager) Serve(c *Client) {
	if !m.Register(c) {
		_ = c.Conn.Close()
		return
	}
	defer m.Unregister(c)
	go c.WritePump()
	c.ReadPump(m, m.log)
}
