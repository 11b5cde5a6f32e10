package auctions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pennyrush/pennyrush/go/internal/models"
)

// AuctionRepository defines what the app layer needs from the repository.
type AuctionRepository interface {
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*models.Auction, error)
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	Snapshot(ctx context.Context, finishedSince time.Time) (*Snapshot, error)
	ListActive(ctx context.Context) ([]models.Auction, error)
	FetchNextDeadline(ctx context.Context) (*NextDeadline, error)
	FetchAuctionsDue(ctx context.Context, now time.Time, limit int32) ([]DueAuction, error)
	ClaimPromotion(ctx context.Context, id uuid.UUID, endsAt time.Time) (bool, error)
	ClaimFinish(ctx context.Context, id uuid.UUID, now time.Time, winnerUserID *uuid.UUID, winnerBotName *string) (*models.Auction, error)
}

// App handles auction store business logic.
type App struct {
	repo           AuctionRepository
	clock          clockwork.Clock
	finishedWindow time.Duration // how far back the snapshot includes finished auctions
}

// NewApp creates a new auctions App.
func NewApp(repo AuctionRepository, clock clockwork.Clock, finishedWindow time.Duration) *App {
	return &App{
		repo:           repo,
		clock:          clock,
		finishedWindow: finishedWindow,
	}
}

// CreateAuction validates and creates a new upcoming auction.
func (a *App) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*models.Auction, error) {
	if err := a.validateCreateAuctionRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return a.repo.CreateAuction(ctx, req)
}

// GetAuction retrieves an auction by ID.
func (a *App) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return a.repo.GetAuction(ctx, id)
}

// Snapshot returns live, upcoming and recently finished auctions.
func (a *App) Snapshot(ctx context.Context) (*Snapshot, error) {
	return a.repo.Snapshot(ctx, a.clock.Now().Add(-a.finishedWindow))
}

// ListActive returns all auctions with a pending countdown.
func (a *App) ListActive(ctx context.Context) ([]models.Auction, error) {
	return a.repo.ListActive(ctx)
}

// FetchNextDeadline returns the earliest pending lifecycle deadline.
func (a *App) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	return a.repo.FetchNextDeadline(ctx)
}

// FetchAuctionsDue returns auctions whose deadline has passed.
func (a *App) FetchAuctionsDue(ctx context.Context, limit int32) ([]DueAuction, error) {
	return a.repo.FetchAuctionsDue(ctx, a.clock.Now(), limit)
}

// ClaimPromotion flips an upcoming auction to live.
func (a *App) ClaimPromotion(ctx context.Context, id uuid.UUID, endsAt time.Time) (bool, error) {
	return a.repo.ClaimPromotion(ctx, id, endsAt)
}

// ClaimFinish flips an expired live auction to finished with its winner.
func (a *App) ClaimFinish(ctx context.Context, id uuid.UUID, winnerUserID *uuid.UUID, winnerBotName *string) (*models.Auction, error) {
	return a.repo.ClaimFinish(ctx, id, a.clock.Now(), winnerUserID, winnerBotName)
}

func (a *App) validateCreateAuctionRequest(req CreateAuctionRequest) error {
	if req.DisplayID == "" {
		return fmt.Errorf("display_id is required")
	}
	if req.Title == "" {
		return fmt.Errorf("title is required")
	}
	if req.RetailPriceCents <= 0 {
		return fmt.Errorf("retail_price_cents must be positive")
	}
	if req.StartPriceCents < 0 {
		return fmt.Errorf("start_price_cents must not be negative")
	}
	if req.BidIncrementCents <= 0 {
		return fmt.Errorf("bid_increment_cents must be positive")
	}
	if req.StartTime.IsZero() {
		return fmt.Errorf("start_time is required")
	}
	return nil
}
