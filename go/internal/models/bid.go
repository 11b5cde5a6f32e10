package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid represents a single accepted bid on an auction. Bids are immutable
// once created; the most recent bid determines the current leader.
type Bid struct {
	ID          uuid.UUID  `json:"id"`
	AuctionID   uuid.UUID  `json:"auction_id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"` // nil for bot bids
	IsBot       bool       `json:"is_bot"`
	BotName     *string    `json:"bot_name,omitempty"`
	AmountCents int64      `json:"amount_cents"` // auction price at placement
	CreatedAt   time.Time  `json:"created_at"`
}

// BidderLabel returns a display name for whoever placed the bid.
func (b *Bid) BidderLabel() string {
	if b.IsBot && b.BotName != nil {
		return *b.BotName
	}
	if b.UserID != nil {
		return b.UserID.String()
	}
	return "unknown"
}
