package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024

	sendBufferSize      = 64
	broadcastBufferSize = 1000
)

// Connection wraps a single websocket client.
type Connection struct {
	id   string
	ws   *websocket.Conn
	send chan *AuctionEvent

	mu     sync.Mutex
	closed bool
}

func newConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		id:   uuid.New().String(),
		ws:   ws,
		send: make(chan *AuctionEvent, sendBufferSize),
	}
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// trySend queues an event without blocking. Returns false when the
// client's buffer is full, which marks it as too slow to keep.
func (c *Connection) trySend(event *AuctionEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

type broadcastMessage struct {
	// auctionID scopes the event to subscribers of one auction.
	// nil means every connected client receives it.
	auctionID *uuid.UUID
	event     *AuctionEvent
}

// ConnectionManager tracks websocket clients and their per-auction
// subscriptions, and fans broadcast events out to them.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[*Connection]bool
	auctionSubs map[uuid.UUID]map[*Connection]bool

	broadcastCh chan broadcastMessage
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[*Connection]bool),
		auctionSubs: make(map[uuid.UUID]map[*Connection]bool),
		broadcastCh: make(chan broadcastMessage, broadcastBufferSize),
	}
}

// Run drains the broadcast channel until ctx is cancelled.
func (m *ConnectionManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case msg := <-m.broadcastCh:
			m.deliver(msg)
		}
	}
}

func (m *ConnectionManager) register(conn *Connection) {
	m.mu.Lock()
	m.connections[conn] = true
	total := len(m.connections)
	m.mu.Unlock()

	log.Debug().Str("connection_id", conn.id).Int("total", total).Msg("websocket client connected")
}

func (m *ConnectionManager) unregister(conn *Connection) {
	m.mu.Lock()
	if _, ok := m.connections[conn]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.connections, conn)
	for auctionID, subs := range m.auctionSubs {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(m.auctionSubs, auctionID)
		}
	}
	total := len(m.connections)
	m.mu.Unlock()

	conn.close()
	log.Debug().Str("connection_id", conn.id).Int("total", total).Msg("websocket client disconnected")
}

// Join subscribes a connection to one auction's event feed.
func (m *ConnectionManager) Join(conn *Connection, auctionID uuid.UUID) {
	m.mu.Lock()
	subs, ok := m.auctionSubs[auctionID]
	if !ok {
		subs = make(map[*Connection]bool)
		m.auctionSubs[auctionID] = subs
	}
	subs[conn] = true
	m.mu.Unlock()
}

// Leave removes a connection's subscription to one auction.
func (m *ConnectionManager) Leave(conn *Connection, auctionID uuid.UUID) {
	m.mu.Lock()
	if subs, ok := m.auctionSubs[auctionID]; ok {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(m.auctionSubs, auctionID)
		}
	}
	m.mu.Unlock()
}

// BroadcastToAuction queues an event for every subscriber of one auction.
func (m *ConnectionManager) BroadcastToAuction(auctionID uuid.UUID, event *AuctionEvent) {
	m.enqueue(broadcastMessage{auctionID: &auctionID, event: event})
}

// BroadcastAll queues an event for every connected client.
func (m *ConnectionManager) BroadcastAll(event *AuctionEvent) {
	m.enqueue(broadcastMessage{event: event})
}

func (m *ConnectionManager) enqueue(msg broadcastMessage) {
	select {
	case m.broadcastCh <- msg:
	default:
		log.Warn().Str("event_type", string(msg.event.Type)).Msg("broadcast channel full, dropping event")
	}
}

func (m *ConnectionManager) deliver(msg broadcastMessage) {
	m.mu.RLock()
	var targets []*Connection
	if msg.auctionID != nil {
		for conn := range m.auctionSubs[*msg.auctionID] {
			targets = append(targets, conn)
		}
	} else {
		for conn := range m.connections {
			targets = append(targets, conn)
		}
	}
	m.mu.RUnlock()

	for _, conn := range targets {
		if !conn.trySend(msg.event) {
			log.Warn().Str("connection_id", conn.id).Msg("client send buffer full, dropping connection")
			m.unregister(conn)
		}
	}
}

func (m *ConnectionManager) closeAll() {
	m.mu.Lock()
	conns := make([]*Connection, 0, len(m.connections))
	for conn := range m.connections {
		conns = append(conns, conn)
	}
	m.connections = make(map[*Connection]bool)
	m.auctionSubs = make(map[uuid.UUID]map[*Connection]bool)
	m.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}

// ConnectionCount reports the number of connected clients.
func (m *ConnectionManager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// readPump consumes client messages until the connection drops.
func (m *ConnectionManager) readPump(conn *Connection) {
	defer m.unregister(conn)

	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("connection_id", conn.id).Msg("websocket read error")
			}
			return
		}
		m.handleClientMessage(conn, data)
	}
}

func (m *ConnectionManager) handleClientMessage(conn *Connection, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		conn.trySend(errorEvent("invalid message"))
		return
	}

	switch msg.Action {
	case ClientActionPing:
		// keepalive only

	case ClientActionJoin, ClientActionLeave:
		auctionID, err := uuid.Parse(msg.AuctionID)
		if err != nil {
			conn.trySend(errorEvent("invalid auctionId"))
			return
		}
		if msg.Action == ClientActionJoin {
			m.Join(conn, auctionID)
			conn.trySend(&AuctionEvent{Type: EventTypeSubscribed, AuctionID: &auctionID, Timestamp: time.Now()})
		} else {
			m.Leave(conn, auctionID)
			conn.trySend(&AuctionEvent{Type: EventTypeUnsubscribed, AuctionID: &auctionID, Timestamp: time.Now()})
		}

	default:
		conn.trySend(errorEvent("unknown action"))
	}
}

// writePump flushes queued events and pings the client.
func (m *ConnectionManager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.ws.Close()
	}()

	for {
		select {
		case event, ok := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.ws.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func errorEvent(msg string) *AuctionEvent {
	payload, _ := json.Marshal(map[string]string{"message": msg})
	return &AuctionEvent{Type: EventTypeError, Payload: payload, Timestamp: time.Now()}
}
