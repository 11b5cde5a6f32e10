package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pennyrush/pennyrush/go/internal/auctions"
	"github.com/pennyrush/pennyrush/go/internal/bidding"
	"github.com/pennyrush/pennyrush/go/internal/models"
	"github.com/rs/zerolog/log"
)

// AuctionStore defines what the scheduler needs from the auctions app.
type AuctionStore interface {
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	FetchNextDeadline(ctx context.Context) (*auctions.NextDeadline, error)
	FetchAuctionsDue(ctx context.Context, limit int32) ([]auctions.DueAuction, error)
	ClaimPromotion(ctx context.Context, id uuid.UUID, endsAt time.Time) (bool, error)
	ClaimFinish(ctx context.Context, id uuid.UUID, winnerUserID *uuid.UUID, winnerBotName *string) (*models.Auction, error)
}

// BidSequencer defines what the scheduler needs from the bidding app.
type BidSequencer interface {
	PlaceBid(ctx context.Context, auctionID uuid.UUID, actor bidding.BidActor) (*bidding.PlaceBidResult, error)
	ConvertPrebid(ctx context.Context, prebid models.Prebid) (*bidding.PlaceBidResult, error)
	ListPrebids(ctx context.Context, auctionID uuid.UUID) ([]models.Prebid, error)
	LatestBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error)
}

// OutboxApp defines what the scheduler needs from the outbox app.
type OutboxApp interface {
	InsertAuctionStartedEvent(ctx context.Context, auctionID uuid.UUID, payload []byte) error
	InsertAuctionEndedEvent(ctx context.Context, auctionID uuid.UUID, payload []byte) error
}

// Config holds scheduler tuning values.
type Config struct {
	LiveDuration time.Duration // initial countdown when an auction with no prebids goes live
	BatchSize    int32         // how many due auctions to claim at once
	NumWorkers   int
	IdlePoll     time.Duration // poll interval while no deadline is pending
}

// DefaultConfig returns the stock scheduler configuration.
func DefaultConfig() Config {
	return Config{
		LiveDuration: 60 * time.Second,
		BatchSize:    50,
		NumWorkers:   8,
		IdlePoll:     5 * time.Second,
	}
}

// Scheduler drives auction lifecycle transitions. A single loop sleeps
// until the earliest pending deadline (an upcoming auction's start or a
// live auction's end), claims due auctions and hands them to a worker
// pool. Claims are conditional updates, so re-evaluating an auction that
// already transitioned is a no-op and multiple instances stay safe.
type Scheduler struct {
	store      AuctionStore
	sequencer  BidSequencer
	outboxApp  OutboxApp
	strat      Strategy
	cfg        Config
	clock      clockwork.Clock
	wakeCh     chan struct{}
	instanceID string

	workCh chan auctions.DueAuction

	// Track in-flight work to prevent duplicate processing
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

// New creates a scheduler with the given collaborators.
func New(store AuctionStore, sequencer BidSequencer, outboxApp OutboxApp, strat Strategy, cfg Config, clock clockwork.Clock) *Scheduler {
	if strat == nil {
		strat = NopStrategy{}
	}
	return &Scheduler{
		store:      store,
		sequencer:  sequencer,
		outboxApp:  outboxApp,
		strat:      strat,
		cfg:        cfg,
		clock:      clock,
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8], // short ID for logging
		workCh:     make(chan auctions.DueAuction, cfg.NumWorkers*2),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// Wake nudges the loop to re-read the next deadline, e.g. after an auction
// was created or extended by an out-of-band path.
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Run loops until the context is cancelled, sleeping until the next
// deadline and firing lifecycle transitions.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Str("instance", s.instanceID).Int("workers", s.cfg.NumWorkers).Msg("lifecycle scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < s.cfg.NumWorkers; i++ {
		wg.Add(1)
		go s.worker(workerCtx, &wg, i)
	}

	defer func() {
		cancelWorkers()
		close(s.workCh)
		wg.Wait()
		log.Info().Str("instance", s.instanceID).Msg("all workers shut down")
	}()

	timer := s.clock.NewTimer(0)
	defer timer.Stop()

	retryCount := 0
	const maxRetries = 3

	for {
		select {
		case <-s.wakeCh:
		default:
		}

		nd, err := s.store.FetchNextDeadline(ctx)
		if err != nil {
			retryCount++
			if retryCount <= maxRetries {
				log.Error().
					Err(err).
					Int("retry", retryCount).
					Str("instance", s.instanceID).
					Msg("error fetching next deadline, retrying")
				timer.Reset(time.Second * time.Duration(retryCount))
				select {
				case <-timer.Chan():
					continue
				case <-ctx.Done():
					return nil
				}
			}
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error fetching next deadline after retries")
			return err
		}
		retryCount = 0

		if nd == nil {
			// Nothing pending; idle until poll or wake.
			timer.Reset(s.cfg.IdlePoll)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				log.Info().Str("instance", s.instanceID).Msg("shutdown during idle")
				return nil
			case <-s.wakeCh:
				continue
			}
		}

		if wait := nd.Deadline.Sub(s.clock.Now()); wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.Chan():
			case <-ctx.Done():
				log.Info().Str("instance", s.instanceID).Msg("shutdown during wait")
				return nil
			case <-s.wakeCh:
				continue
			}
		}

		due, err := s.store.FetchAuctionsDue(ctx, s.cfg.BatchSize)
		if err != nil {
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error fetching due auctions")
			timer.Reset(time.Second)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		for _, d := range due {
			s.inFlightMu.Lock()
			if s.inFlight[d.ID] {
				s.inFlightMu.Unlock()
				continue
			}
			s.inFlight[d.ID] = true
			s.inFlightMu.Unlock()

			select {
			case <-ctx.Done():
				s.inFlightMu.Lock()
				delete(s.inFlight, d.ID)
				s.inFlightMu.Unlock()
				log.Info().Str("instance", s.instanceID).Msg("shutdown while queueing transitions")
				return nil
			case s.workCh <- d:
			}
		}

		if len(due) == 0 {
			// Deadline fired but the claim found nothing (already handled
			// elsewhere); avoid a tight loop while the row updates settle.
			timer.Reset(250 * time.Millisecond)
			select {
			case <-timer.Chan():
			case <-ctx.Done():
				return nil
			case <-s.wakeCh:
			}
		}
	}
}

// worker processes lifecycle transitions from the work channel.
func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case due, ok := <-s.workCh:
			if !ok {
				return
			}

			if err := s.handleDue(ctx, due); err != nil {
				log.Error().
					Err(err).
					Str("auction_id", due.ID.String()).
					Str("instance", s.instanceID).
					Int("worker_id", workerID).
					Msg("lifecycle transition failed")
			}

			s.inFlightMu.Lock()
			delete(s.inFlight, due.ID)
			s.inFlightMu.Unlock()
		}
	}
}

// handleDue routes a due auction to promotion or finalization based on the
// state it was fetched in.
func (s *Scheduler) handleDue(ctx context.Context, due auctions.DueAuction) error {
	switch due.Status {
	case models.AuctionStatusUpcoming:
		return s.promote(ctx, due.ID)
	case models.AuctionStatusLive:
		return s.finalize(ctx, due.ID)
	default:
		log.Warn().
			Str("auction_id", due.ID.String()).
			Str("status", string(due.Status)).
			Msg("due auction in unexpected state - ignoring")
		return nil
	}
}
