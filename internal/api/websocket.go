package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"collision-engine/internal/engine"
)

const (
	// MaxWSConnections caps concurrent stats subscribers.
	MaxWSConnections = 100

	// statsInterval is how often the hub pushes a snapshot to subscribers.
	statsInterval = time.Second

	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The stats feed carries no secrets and no mutations; origin
		// enforcement stays with the fronting proxy.
		return true
	},
}

// StatsHub pushes periodic engine statistics snapshots to WebSocket
// subscribers, for dashboards watching detection latency live.
type StatsHub struct {
	engine *engine.Engine

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewStatsHub creates a hub. Run must be called to start broadcasting.
func NewStatsHub(e *engine.Engine) *StatsHub {
	return &StatsHub{
		engine:   e,
		clients:  make(map[*websocket.Conn]struct{}),
		stopChan: make(chan struct{}),
	}
}

// Run broadcasts snapshots until Stop is called. Blocks; run it in a
// goroutine.
func (h *StatsHub) Run() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopChan:
			h.closeAll()
			return
		case <-ticker.C:
			h.broadcast()
		}
	}
}

// Stop terminates the broadcast loop and closes all connections.
func (h *StatsHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// HandleWS upgrades a request and registers the connection for snapshots.
func (h *StatsHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	full := len(h.clients) >= MaxWSConnections
	h.mu.RUnlock()
	if full {
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("⚠️ WebSocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Reader goroutine: we never expect client messages, but reading is
	// what surfaces closes and keeps control frames flowing.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ClientCount returns the number of connected subscribers.
func (h *StatsHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *StatsHub) broadcast() {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	payload, err := json.Marshal(h.engine.Stats())
	if err != nil {
		return
	}

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(conn)
		}
	}
}

func (h *StatsHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

func (h *StatsHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
