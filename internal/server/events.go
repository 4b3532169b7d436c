package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/visionkit/scanbox/internal/detect"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The scan endpoint already allows cross-origin embedding.
	CheckOrigin: func(*http.Request) bool { return true },
}

// eventHub fans scan events out to connected websocket clients.
type eventHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *eventHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *eventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	_ = conn.Close()
}

// broadcast sends the batch to every client; empty batches are skipped.
// A failed write drops the client.
func (h *eventHub) broadcast(events []detect.Event) {
	if len(events) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(events); err != nil {
			slog.Debug("dropping event stream client", "error", err)
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

// handleEvents upgrades the connection and streams detection events until the
// client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.hub.add(conn)
	slog.Debug("event stream client connected", "remote", conn.RemoteAddr().String())

	// Reads are only consumed to detect the close handshake.
	go func() {
		defer s.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
