package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/pennyrush/pennyrush/go/internal/events"
	"github.com/pennyrush/pennyrush/go/internal/models"
)

const (
	timerTick      = 1 * time.Second
	resyncInterval = 30 * time.Second
)

// AuctionLister loads the auctions the timer engine should track.
type AuctionLister interface {
	ListActive(ctx context.Context) ([]models.Auction, error)
}

type timerEntry struct {
	status    models.AuctionStatus
	startTime time.Time
	endsAt    time.Time
}

// TimerEngine maintains an in-memory countdown for every upcoming and
// live auction. It reseeds from the store periodically and adjusts
// entries as auction events arrive, so the broadcast countdowns stay
// consistent with the database without a query per tick.
type TimerEngine struct {
	store   AuctionLister
	manager *ConnectionManager
	clock   clockwork.Clock

	mu      sync.RWMutex
	entries map[uuid.UUID]timerEntry
}

func NewTimerEngine(store AuctionLister, manager *ConnectionManager, clock clockwork.Clock) *TimerEngine {
	return &TimerEngine{
		store:   store,
		manager: manager,
		clock:   clock,
		entries: make(map[uuid.UUID]timerEntry),
	}
}

// Run ticks once per second until ctx is cancelled. A failed initial
// seed is not fatal: the next resync retries it.
func (e *TimerEngine) Run(ctx context.Context) error {
	if err := e.resync(ctx); err != nil {
		log.Warn().Err(err).Msg("timer engine seed failed")
	}

	ticker := e.clock.NewTicker(timerTick)
	defer ticker.Stop()
	resync := e.clock.NewTicker(resyncInterval)
	defer resync.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			e.broadcast()
		case <-resync.Chan():
			if err := e.resync(ctx); err != nil {
				log.Warn().Err(err).Msg("timer engine resync failed")
			}
		}
	}
}

func (e *TimerEngine) resync(ctx context.Context) error {
	active, err := e.store.ListActive(ctx)
	if err != nil {
		return err
	}

	entries := make(map[uuid.UUID]timerEntry, len(active))
	for _, a := range active {
		entry := timerEntry{status: a.Status, startTime: a.StartTime}
		if a.EndsAt != nil {
			entry.endsAt = *a.EndsAt
		}
		entries[a.ID] = entry
	}

	e.mu.Lock()
	e.entries = entries
	e.mu.Unlock()
	return nil
}

// Apply adjusts the tracked countdowns from a single auction event.
func (e *TimerEngine) Apply(eventType string, auctionID uuid.UUID, payload json.RawMessage) {
	switch eventType {
	case events.TypeAuctionStarted:
		var p events.AuctionStartedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("unparseable AuctionStarted payload")
			return
		}
		e.mu.Lock()
		e.entries[auctionID] = timerEntry{status: models.AuctionStatusLive, endsAt: p.EndsAt}
		e.mu.Unlock()

	case events.TypeBidPlaced:
		var p events.BidPlacedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("unparseable BidPlaced payload")
			return
		}
		e.mu.Lock()
		if entry, ok := e.entries[auctionID]; ok {
			entry.status = models.AuctionStatusLive
			entry.endsAt = p.EndsAt
			e.entries[auctionID] = entry
		} else {
			e.entries[auctionID] = timerEntry{status: models.AuctionStatusLive, endsAt: p.EndsAt}
		}
		e.mu.Unlock()

	case events.TypeAuctionEnded:
		e.mu.Lock()
		delete(e.entries, auctionID)
		e.mu.Unlock()
	}
}

// Snapshot reports seconds remaining per tracked auction. Upcoming
// auctions count down to their start time, live ones to their end.
func (e *TimerEngine) Snapshot() map[string]int {
	now := e.clock.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	timers := make(map[string]int, len(e.entries))
	for id, entry := range e.entries {
		var deadline time.Time
		switch entry.status {
		case models.AuctionStatusUpcoming:
			deadline = entry.startTime
		case models.AuctionStatusLive:
			deadline = entry.endsAt
		default:
			continue
		}
		remaining := int(deadline.Sub(now) / time.Second)
		if remaining < 0 {
			remaining = 0
		}
		timers[id.String()] = remaining
	}
	return timers
}

func (e *TimerEngine) broadcast() {
	timers := e.Snapshot()
	if len(timers) == 0 {
		return
	}

	payload, err := json.Marshal(TimerUpdatePayload{Timers: timers})
	if err != nil {
		log.Error().Err(err).Msg("marshaling timer update")
		return
	}
	e.manager.BroadcastAll(&AuctionEvent{
		Type:      EventTypeTimerUpdate,
		Payload:   payload,
		Timestamp: e.clock.Now(),
	})
}
