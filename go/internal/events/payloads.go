package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types carried through the outbox and out to subscribers.
const (
	TypeAuctionStarted = "AuctionStarted"
	TypeBidPlaced      = "BidPlaced"
	TypePrebidPlaced   = "PrebidPlaced"
	TypeAuctionEnded   = "AuctionEnded"
)

// AuctionStartedPayload is emitted when an upcoming auction is promoted to
// live, after all of its prebids have been converted.
type AuctionStartedPayload struct {
	AuctionID         string     `json:"auction_id"`
	StartedAt         time.Time  `json:"started_at"`
	EndsAt            time.Time  `json:"ends_at"`
	CurrentPriceCents int64      `json:"current_price_cents"`
	BidCount          int        `json:"bid_count"`
	PrebidsConverted  int        `json:"prebids_converted"`
	LeaderUserID      *uuid.UUID `json:"leader_user_id,omitempty"`
}

// BidPlacedPayload is emitted for every accepted bid, including converted
// prebids and bot bids.
type BidPlacedPayload struct {
	BidID             string     `json:"bid_id"`
	AuctionID         string     `json:"auction_id"`
	UserID            *uuid.UUID `json:"user_id,omitempty"`
	IsBot             bool       `json:"is_bot"`
	BotName           *string    `json:"bot_name,omitempty"`
	AmountCents       int64      `json:"amount_cents"`
	CurrentPriceCents int64      `json:"current_price_cents"`
	BidCount          int        `json:"bid_count"`
	EndsAt            time.Time  `json:"ends_at"`
	PlacedAt          time.Time  `json:"placed_at"`
}

// PrebidPlacedPayload is emitted when a reservation lands on an upcoming auction.
type PrebidPlacedPayload struct {
	PrebidID    string    `json:"prebid_id"`
	AuctionID   string    `json:"auction_id"`
	UserID      string    `json:"user_id"`
	PrebidCount int       `json:"prebid_count"`
	PlacedAt    time.Time `json:"placed_at"`
}

// AuctionEndedPayload is emitted when a live auction's countdown expires.
type AuctionEndedPayload struct {
	AuctionID       string     `json:"auction_id"`
	EndedAt         time.Time  `json:"ended_at"`
	FinalPriceCents int64      `json:"final_price_cents"`
	BidCount        int        `json:"bid_count"`
	WinnerUserID    *uuid.UUID `json:"winner_user_id,omitempty"`
	WinnerBotName   *string    `json:"winner_bot_name,omitempty"`
}
