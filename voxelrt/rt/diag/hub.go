package diag

import (
	"net/http"
	"sync"

	"github.com/gekko3d/voxmirror/voxelrt/rt/core"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // overlay pages are served from anywhere during development
	},
}

// Control is a toggle sent by an overlay client. Nil fields are left alone.
type Control struct {
	Occlusion    *bool `json:"occlusion,omitempty"`
	ShowOccluded *bool `json:"showOccluded,omitempty"`
	Threshold    *int  `json:"threshold,omitempty"`
}

// Hub streams renderer statistics to websocket clients and collects the
// controls they send back. Publish and Controls are safe to call from the
// render loop while clients connect.
type Hub struct {
	logger core.Logger

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex
	last      any

	controlsMu sync.Mutex
	controls   []Control
}

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		logger:  core.OrNop(logger),
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("diag: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	connMu := &sync.Mutex{}
	h.clientsMu.Lock()
	h.clients[conn] = connMu
	last := h.last
	h.clientsMu.Unlock()
	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, conn)
		h.clientsMu.Unlock()
	}()
	h.logger.Debugf("diag: client %s connected", r.RemoteAddr)

	if last != nil {
		connMu.Lock()
		err := conn.WriteJSON(last)
		connMu.Unlock()
		if err != nil {
			return
		}
	}

	for {
		var c Control
		if err := conn.ReadJSON(&c); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warnf("diag: read from %s: %v", r.RemoteAddr, err)
			}
			return
		}
		h.controlsMu.Lock()
		h.controls = append(h.controls, c)
		h.controlsMu.Unlock()
	}
}

// Publish sends v as JSON to every client and remembers it for clients that
// connect later. Clients that fail a write are dropped.
func (h *Hub) Publish(v any) {
	var failed []*websocket.Conn
	h.clientsMu.Lock()
	h.last = v
	h.clientsMu.Unlock()

	h.clientsMu.RLock()
	for conn, mu := range h.clients {
		mu.Lock()
		err := conn.WriteJSON(v)
		mu.Unlock()
		if err != nil {
			h.logger.Warnf("diag: write: %v", err)
			conn.Close()
			failed = append(failed, conn)
		}
	}
	h.clientsMu.RUnlock()

	if len(failed) > 0 {
		h.clientsMu.Lock()
		for _, conn := range failed {
			delete(h.clients, conn)
		}
		h.clientsMu.Unlock()
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Controls returns and forgets the controls received since the last call.
func (h *Hub) Controls() []Control {
	h.controlsMu.Lock()
	defer h.controlsMu.Unlock()
	out := h.controls
	h.controls = nil
	return out
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
