package auctions

import (
	"time"

	"github.com/google/uuid"
	"github.com/pennyrush/pennyrush/go/internal/models"
)

// CreateAuctionRequest carries the fields needed to create an auction.
type CreateAuctionRequest struct {
	DisplayID         string    `json:"display_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	ImageURL          string    `json:"image_url"`
	RetailPriceCents  int64     `json:"retail_price_cents"`
	StartPriceCents   int64     `json:"start_price_cents"`
	BidIncrementCents int64     `json:"bid_increment_cents"`
	StartTime         time.Time `json:"start_time"`
}

// Snapshot groups auctions by lifecycle state for the REST snapshot endpoint.
type Snapshot struct {
	Live     []models.Auction `json:"live"`
	Upcoming []models.Auction `json:"upcoming"`
	Finished []models.Auction `json:"finished"`
}

// NextDeadline is the earliest pending lifecycle deadline across all
// auctions: a start time for an upcoming auction or an end time for a
// live one.
type NextDeadline struct {
	AuctionID uuid.UUID            `json:"auction_id"`
	Status    models.AuctionStatus `json:"status"`
	Deadline  time.Time            `json:"deadline"`
}

// DueAuction identifies an auction whose deadline has passed and the state
// it was in when fetched.
type DueAuction struct {
	ID     uuid.UUID
	Status models.AuctionStatus
}
