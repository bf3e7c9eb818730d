package apiserver

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHub tracks connected telemetry-stream clients and fans out one
// state frame to each of them per broadcast tick, grounded on
// Valkyrie's livefeed broadcast-ticker pattern but trimmed to the one
// message type this façade streams.
type wsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *wsHub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *wsHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

func (h *wsHub) broadcast(state drone.State) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(state); err != nil {
			h.remove(c)
		}
	}
}

// handleTelemetryWS upgrades the connection and registers it with the
// hub; the broadcaster goroutine (RunTelemetryBroadcaster) does all
// subsequent writing. This handler only needs to notice when the
// client goes away.
func (s *Server) handleTelemetryWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.Logger.WithError(err).Warn("apiserver: websocket upgrade failed")
		return
	}
	s.hub.add(conn)

	go func() {
		defer s.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
