package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account holder. Accounts are owned by the auth
// subsystem; the auction core only reads and debits BidBalance.
type User struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	BidBalance int       `json:"bid_balance"` // purchased bid credits, never negative
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
