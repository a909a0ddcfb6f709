package ws

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 256 * 1024, // 256KB for base64 encoded JPEG frames
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

// Handler handles WebSocket connections for real-time alerts
type Handler struct {
	hub *AlertHub
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *AlertHub) *Handler {
	return &Handler{hub: hub}
}

// ServeHTTP handles WebSocket upgrade requests
// Expected URL format: /ws/alerts/{driver_id}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/ws/alerts/")
	driverID := strings.TrimSuffix(path, "/")

	if driverID == "" {
		http.Error(w, "driver_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	log.Printf("[WS] New connection for driver %s from %s", driverID, r.RemoteAddr)

	h.hub.Register(driverID, conn)

	// Handle incoming messages and keep the connection alive
	go h.readPump(driverID, conn)
}

// readPump reads messages from the WebSocket connection. This keeps the
// connection alive and detects client disconnection.
func (h *Handler) readPump(driverID string, conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(driverID, conn)
		conn.Close()
	}()

	conn.SetReadLimit(512) // Clients shouldn't send much
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	// Ping goroutine
	go func() {
		for range ticker.C {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Read error for driver %s: %v", driverID, err)
			}
			break
		}
	}
}
