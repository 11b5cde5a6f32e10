package scheduler

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pennyrush/pennyrush/go/internal/models"
)

// Strategy decides when the house places bot bids. Bots go through the
// same sequencer entry point as users, so every bot bid obeys the same
// price and timer rules.
type Strategy interface {
	// OnPromoted is consulted once right after an auction goes live.
	OnPromoted(a *models.Auction) (botName string, ok bool)
	// OnExpiring is consulted when a live auction's countdown has run out,
	// before the auction is finalized. Returning ok extends the auction
	// with one more bot bid.
	OnExpiring(a *models.Auction) (botName string, ok bool)
}

// NopStrategy never bids.
type NopStrategy struct{}

func (NopStrategy) OnPromoted(*models.Auction) (string, bool) { return "", false }
func (NopStrategy) OnExpiring(*models.Auction) (string, bool) { return "", false }

// RosterConfig tunes the stock bot policy.
type RosterConfig struct {
	Roster     []string `yaml:"roster"`       // bot display names, cycled round-robin
	MinBids    int      `yaml:"min_bids"`     // keep auctions alive until this many bids exist
	MaxBotBids int      `yaml:"max_bot_bids"` // hard cap of bot bids per auction
	SeedOnLive bool     `yaml:"seed_on_live"` // place one bid when a prebid-less auction goes live
}

// RosterStrategy keeps a roster of named bots and keeps thin auctions
// alive until they reach MinBids, never exceeding MaxBotBids per auction.
type RosterStrategy struct {
	cfg RosterConfig

	mu     sync.Mutex
	placed map[uuid.UUID]int
}

// NewRosterStrategy creates the stock bot strategy.
func NewRosterStrategy(cfg RosterConfig) *RosterStrategy {
	return &RosterStrategy{
		cfg:    cfg,
		placed: make(map[uuid.UUID]int),
	}
}

func (r *RosterStrategy) OnPromoted(a *models.Auction) (string, bool) {
	if !r.cfg.SeedOnLive || len(r.cfg.Roster) == 0 || a.BidCount > 0 {
		return "", false
	}
	return r.take(a.ID)
}

func (r *RosterStrategy) OnExpiring(a *models.Auction) (string, bool) {
	if len(r.cfg.Roster) == 0 || a.BidCount >= r.cfg.MinBids {
		return "", false
	}
	return r.take(a.ID)
}

// take picks the next roster name for the auction and counts it against
// the per-auction cap. The count is optimistic: a rejected bot bid still
// burns a slot, which keeps the cap a true upper bound.
func (r *RosterStrategy) take(auctionID uuid.UUID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.placed[auctionID]
	if n >= r.cfg.MaxBotBids {
		return "", false
	}
	r.placed[auctionID] = n + 1
	return r.cfg.Roster[n%len(r.cfg.Roster)], true
}
