package models

import (
	"time"

	"github.com/google/uuid"
)

// AuctionStatus defines the lifecycle state of an auction.
// Transitions are forward-only: upcoming -> live -> finished.
type AuctionStatus string

const (
	AuctionStatusUpcoming AuctionStatus = "upcoming"
	AuctionStatusLive     AuctionStatus = "live"
	AuctionStatusFinished AuctionStatus = "finished"
)

// Auction represents a penny auction. Prices are integer cents.
type Auction struct {
	ID                uuid.UUID     `json:"id"`
	DisplayID         string        `json:"display_id"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	ImageURL          string        `json:"image_url"`
	RetailPriceCents  int64         `json:"retail_price_cents"`
	StartPriceCents   int64         `json:"start_price_cents"`
	CurrentPriceCents int64         `json:"current_price_cents"`
	BidIncrementCents int64         `json:"bid_increment_cents"`
	Status            AuctionStatus `json:"status"`
	StartTime         time.Time     `json:"start_time"`
	EndsAt            *time.Time    `json:"ends_at,omitempty"` // nil until live
	BidCount          int           `json:"bid_count"`
	PrebidCount       int           `json:"prebid_count"`
	WinnerUserID      *uuid.UUID    `json:"winner_user_id,omitempty"`
	WinnerBotName     *string       `json:"winner_bot_name,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// SecondsRemaining derives the countdown value at the given instant:
// time to start for upcoming auctions, time to end for live ones.
func (a *Auction) SecondsRemaining(now time.Time) int {
	var until time.Time
	switch a.Status {
	case AuctionStatusUpcoming:
		until = a.StartTime
	case AuctionStatusLive:
		if a.EndsAt == nil {
			return 0
		}
		until = *a.EndsAt
	default:
		return 0
	}
	secs := int(until.Sub(now) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
