package bidding

import (
	"time"

	"github.com/google/uuid"
	"github.com/pennyrush/pennyrush/go/internal/models"
)

// BidActor identifies who is placing a bid: an authenticated user or a
// house bot driven by the scheduler's strategy.
type BidActor struct {
	UserID  uuid.UUID
	IsBot   bool
	BotName string
}

// PlaceBidResult is returned for every accepted bid.
type PlaceBidResult struct {
	Auction *models.Auction `json:"auction"`
	Bid     *models.Bid     `json:"bid"`
}

// PrebidWithAuction pairs a user's reservation with its auction for the
// "my prebids" listing.
type PrebidWithAuction struct {
	Prebid  models.Prebid  `json:"prebid"`
	Auction models.Auction `json:"auction"`
}

// Policy holds the bidding policy values. These are configuration, not
// constants: the server is authoritative for both.
type Policy struct {
	ExtensionWindow time.Duration // countdown reset applied on every accepted bid
	BidSpacing      time.Duration // minimum spacing between one user's bids on one auction
}

// DefaultPolicy returns the stock policy values.
func DefaultPolicy() Policy {
	return Policy{
		ExtensionWindow: 12 * time.Second,
		BidSpacing:      2 * time.Second,
	}
}

// ApplyBidRequest is the transactional write for one accepted bid. PayloadFn
// builds the outbox event from the post-commit-visible state and runs inside
// the transaction.
type ApplyBidRequest struct {
	AuctionID uuid.UUID
	Actor     BidActor
	PlacedAt  time.Time
	EndsAt    time.Time
	PayloadFn func(auction *models.Auction, bid *models.Bid) ([]byte, error)
}

// ApplyPrebidRequest is the transactional write for one reservation.
type ApplyPrebidRequest struct {
	AuctionID uuid.UUID
	UserID    uuid.UUID
	PayloadFn func(prebid *models.Prebid, prebidCount int) ([]byte, error)
}
