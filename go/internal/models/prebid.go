package models

import (
	"time"

	"github.com/google/uuid"
)

// Prebid is a reservation placed on an upcoming auction. At most one per
// (user, auction) pair. Prebids are consumed exactly once when the auction
// goes live, converted into automatic bids in creation order.
type Prebid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
