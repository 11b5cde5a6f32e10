package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is a pending event row written in the same transaction as the
// auction state change it describes.
type OutboxEvent struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// Envelope is the wire format published to the message bus.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	AuctionID string          `json:"auctionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}
