package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// AlertHub manages WebSocket connections for real-time alert and frame
// streaming to driver sessions
type AlertHub struct {
	// clients maps driver_id -> set of connections
	clients map[string]map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewAlertHub creates a new alert hub
func NewAlertHub() *AlertHub {
	return &AlertHub{
		clients: make(map[string]map[*websocket.Conn]bool),
	}
}

// Register adds a connection for a specific driver
func (h *AlertHub) Register(driverID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[driverID] == nil {
		h.clients[driverID] = make(map[*websocket.Conn]bool)
	}
	h.clients[driverID][conn] = true
	log.Printf("[WS] Client registered for driver %s (total: %d)", driverID, len(h.clients[driverID]))
}

// Unregister removes a connection for a specific driver
func (h *AlertHub) Unregister(driverID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[driverID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, driverID)
		}
		log.Printf("[WS] Client unregistered for driver %s", driverID)
	}
}

// HasClients returns true if any clients are connected for a driver
func (h *AlertHub) HasClients(driverID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[driverID]
	return ok && len(conns) > 0
}

// ClientCount returns the total number of connected clients
func (h *AlertHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, conns := range h.clients {
		count += len(conns)
	}
	return count
}

// broadcast sends a message to all clients subscribed to a driver
func (h *AlertHub) broadcast(driverID string, message []byte) {
	h.mu.RLock()
	conns := h.clients[driverID]
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}

	for conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("[WS] Error sending to client: %v", err)
			h.Unregister(driverID, conn)
			conn.Close()
		}
	}
}

// BroadcastAlert sends an alert message to a driver's sessions
func (h *AlertHub) BroadcastAlert(driverID string, msg *AlertMessage) {
	if !h.HasClients(driverID) {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WS] Error marshaling alert message: %v", err)
		return
	}
	h.broadcast(driverID, data)
}

// BroadcastFrame sends an annotated video frame to a driver's sessions.
// With no viewers connected this is a cheap no-op, so live viewing never
// affects the monitoring loop.
func (h *AlertHub) BroadcastFrame(driverID string, msg *FrameMessage) {
	if !h.HasClients(driverID) {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WS] Error marshaling frame message: %v", err)
		return
	}
	h.broadcast(driverID, data)
}
