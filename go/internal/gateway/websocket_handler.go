package gateway

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The browser client is served from another origin in development;
	// access control happens at the API layer, not the socket upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketHandler upgrades HTTP requests and hands the connection to
// the manager.
type WebSocketHandler struct {
	manager *ConnectionManager
}

func NewWebSocketHandler(manager *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{manager: manager}
}

// ServeHTTP handles GET /ws. An optional ?auction=<id> query parameter
// subscribes the client immediately, before any join message.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := newConnection(ws)
	h.manager.register(conn)

	if raw := r.URL.Query().Get("auction"); raw != "" {
		if auctionID, err := uuid.Parse(raw); err == nil {
			h.manager.Join(conn, auctionID)
		}
	}

	conn.trySend(&AuctionEvent{Type: EventTypeConnected, Timestamp: time.Now()})

	go h.manager.writePump(conn)
	go h.manager.readPump(conn)
}
