package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType is the set of message types pushed to websocket clients.
type EventType string

const (
	EventTypeAuctionStarted EventType = "AuctionStarted"
	EventTypeBidPlaced      EventType = "BidPlaced"
	EventTypePrebidPlaced   EventType = "PrebidPlaced"
	EventTypeAuctionEnded   EventType = "AuctionEnded"
	EventTypeTimerUpdate    EventType = "TimerUpdate"
	EventTypeConnected      EventType = "Connected"
	EventTypeSubscribed     EventType = "Subscribed"
	EventTypeUnsubscribed   EventType = "Unsubscribed"
	EventTypeError          EventType = "Error"
)

// AuctionEvent is the wire format for all websocket messages.
type AuctionEvent struct {
	Type      EventType       `json:"type"`
	AuctionID *uuid.UUID      `json:"auctionId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// TimerUpdatePayload carries the seconds remaining for every active
// auction, keyed by auction ID.
type TimerUpdatePayload struct {
	Timers map[string]int `json:"timers"`
}

// ClientMessage is what clients send to manage their subscriptions.
type ClientMessage struct {
	Action    string `json:"action"`
	AuctionID string `json:"auctionId,omitempty"`
}

const (
	ClientActionJoin  = "join"
	ClientActionLeave = "leave"
	ClientActionPing  = "ping"
)
