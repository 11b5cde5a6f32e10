package bidding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pennyrush/pennyrush/go/internal/biderrors"
	"github.com/pennyrush/pennyrush/go/internal/events"
	"github.com/pennyrush/pennyrush/go/internal/models"
)

// BidRepository defines what the app layer needs from the repository.
type BidRepository interface {
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	LatestBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error)
	UserBalance(ctx context.Context, userID uuid.UUID) (int, error)
	LastUserBidTime(ctx context.Context, auctionID, userID uuid.UUID) (*time.Time, error)
	ApplyBid(ctx context.Context, req ApplyBidRequest) (*PlaceBidResult, error)
	ApplyPrebid(ctx context.Context, req ApplyPrebidRequest) (*models.Prebid, error)
	ListPrebids(ctx context.Context, auctionID uuid.UUID) ([]models.Prebid, error)
	ListPrebidsForUser(ctx context.Context, userID uuid.UUID) ([]PrebidWithAuction, error)
}

// App is the bid sequencer: the single entry point through which every bid
// and prebid mutates an auction. Bids on one auction are serialized by a
// per-auction mutex; the mutex is held only across validation and the
// database transaction, never across broadcast (the outbox relay handles
// delivery after commit).
type App struct {
	repo   BidRepository
	clock  clockwork.Clock
	policy Policy
	locks  *auctionLocks
}

// NewApp creates a new bidding App.
func NewApp(repo BidRepository, clock clockwork.Clock, policy Policy) *App {
	return &App{
		repo:   repo,
		clock:  clock,
		policy: policy,
		locks:  newAuctionLocks(),
	}
}

// PlaceBid validates and applies a single bid. Preconditions are checked
// in order, each failing with its own sentinel: auction exists, auction is
// live, actor is authenticated, balance covers the bid, the actor's last
// bid is outside the spacing window, and the actor is not already leading.
func (a *App) PlaceBid(ctx context.Context, auctionID uuid.UUID, actor BidActor) (*PlaceBidResult, error) {
	if !actor.IsBot && actor.UserID == uuid.Nil {
		return nil, biderrors.ErrUnauthenticated
	}

	a.locks.lock(auctionID)
	defer a.locks.unlock(auctionID)

	auction, err := a.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.Status != models.AuctionStatusLive {
		return nil, biderrors.ErrAuctionNotLive
	}

	now := a.clock.Now()

	if !actor.IsBot {
		balance, err := a.repo.UserBalance(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if balance < 1 {
			return nil, biderrors.ErrInsufficientBalance
		}

		last, err := a.repo.LastUserBidTime(ctx, auctionID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if last != nil && now.Sub(*last) < a.policy.BidSpacing {
			return nil, biderrors.ErrRateLimited
		}
	}

	leader, err := a.repo.LatestBid(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if leaderIs(leader, actor) {
		return nil, biderrors.ErrAlreadyLeading
	}

	return a.applyBid(ctx, auctionID, actor, now)
}

// ConvertPrebid turns a reservation into a bid during promotion to live.
// Spacing and leader checks are waived: prebids are pre-registered intents
// applied in creation order. The balance debit still applies, so a drained
// balance fails the conversion (the scheduler skips and logs it).
func (a *App) ConvertPrebid(ctx context.Context, prebid models.Prebid) (*PlaceBidResult, error) {
	a.locks.lock(prebid.AuctionID)
	defer a.locks.unlock(prebid.AuctionID)

	return a.applyBid(ctx, prebid.AuctionID, BidActor{UserID: prebid.UserID}, a.clock.Now())
}

// applyBid performs the transactional write. Callers hold the auction lock.
func (a *App) applyBid(ctx context.Context, auctionID uuid.UUID, actor BidActor, now time.Time) (*PlaceBidResult, error) {
	result, err := a.repo.ApplyBid(ctx, ApplyBidRequest{
		AuctionID: auctionID,
		Actor:     actor,
		PlacedAt:  now,
		EndsAt:    now.Add(a.policy.ExtensionWindow),
		PayloadFn: buildBidPlacedPayload,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PlacePrebid reserves an automatic bid on an upcoming auction. No balance
// is debited here; the debit happens when the prebid converts at start.
func (a *App) PlacePrebid(ctx context.Context, auctionID, userID uuid.UUID) (*models.Prebid, error) {
	if userID == uuid.Nil {
		return nil, biderrors.ErrUnauthenticated
	}

	auction, err := a.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.Status != models.AuctionStatusUpcoming {
		return nil, biderrors.ErrAuctionNotUpcoming
	}

	return a.repo.ApplyPrebid(ctx, ApplyPrebidRequest{
		AuctionID: auctionID,
		UserID:    userID,
		PayloadFn: func(prebid *models.Prebid, prebidCount int) ([]byte, error) {
			return json.Marshal(events.PrebidPlacedPayload{
				PrebidID:    prebid.ID.String(),
				AuctionID:   prebid.AuctionID.String(),
				UserID:      prebid.UserID.String(),
				PrebidCount: prebidCount,
				PlacedAt:    prebid.CreatedAt,
			})
		},
	})
}

// ListPrebids returns an auction's reservations in creation order.
func (a *App) ListPrebids(ctx context.Context, auctionID uuid.UUID) ([]models.Prebid, error) {
	return a.repo.ListPrebids(ctx, auctionID)
}

// ListPrebidsForUser returns the caller's reservations with their auctions.
func (a *App) ListPrebidsForUser(ctx context.Context, userID uuid.UUID) ([]PrebidWithAuction, error) {
	if userID == uuid.Nil {
		return nil, biderrors.ErrUnauthenticated
	}
	return a.repo.ListPrebidsForUser(ctx, userID)
}

// LatestBid exposes the current leader for read paths.
func (a *App) LatestBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	return a.repo.LatestBid(ctx, auctionID)
}

func leaderIs(leader *models.Bid, actor BidActor) bool {
	if leader == nil {
		return false
	}
	if actor.IsBot {
		return leader.IsBot && leader.BotName != nil && *leader.BotName == actor.BotName
	}
	return !leader.IsBot && leader.UserID != nil && *leader.UserID == actor.UserID
}

func buildBidPlacedPayload(auction *models.Auction, bid *models.Bid) ([]byte, error) {
	if auction.EndsAt == nil {
		return nil, fmt.Errorf("accepted bid left auction %s without a countdown", auction.ID)
	}
	return json.Marshal(events.BidPlacedPayload{
		BidID:             bid.ID.String(),
		AuctionID:         bid.AuctionID.String(),
		UserID:            bid.UserID,
		IsBot:             bid.IsBot,
		BotName:           bid.BotName,
		AmountCents:       bid.AmountCents,
		CurrentPriceCents: auction.CurrentPriceCents,
		BidCount:          auction.BidCount,
		EndsAt:            *auction.EndsAt,
		PlacedAt:          bid.CreatedAt,
	})
}
