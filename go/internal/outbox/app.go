package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pennyrush/pennyrush/go/internal/events"
	"github.com/rs/zerolog/log"
)

// OutboxRepository defines what the app layer needs from the repository.
type OutboxRepository interface {
	InsertEventTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, eventType string, payload []byte) error
	InsertEvent(ctx context.Context, auctionID uuid.UUID, eventType string, payload []byte) error
}

// App handles outbox business logic: typed event insertion with payload
// validation.
type App struct {
	repo OutboxRepository
}

// NewApp creates a new outbox App.
func NewApp(repo OutboxRepository) *App {
	return &App{repo: repo}
}

// InsertBidPlacedTx inserts a BidPlaced event inside the bid transaction.
func (a *App) InsertBidPlacedTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, payload []byte) error {
	return a.insertTx(ctx, tx, auctionID, events.TypeBidPlaced, payload)
}

// InsertPrebidPlacedTx inserts a PrebidPlaced event inside the prebid transaction.
func (a *App) InsertPrebidPlacedTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, payload []byte) error {
	return a.insertTx(ctx, tx, auctionID, events.TypePrebidPlaced, payload)
}

// InsertAuctionStartedEvent inserts an AuctionStarted event.
func (a *App) InsertAuctionStartedEvent(ctx context.Context, auctionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, auctionID, events.TypeAuctionStarted, payload)
}

// InsertAuctionEndedEvent inserts an AuctionEnded event.
func (a *App) InsertAuctionEndedEvent(ctx context.Context, auctionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, auctionID, events.TypeAuctionEnded, payload)
}

func (a *App) insertTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, eventType string, payload []byte) error {
	if err := validateEventPayload(payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", eventType, err)
	}
	if err := a.repo.InsertEventTx(ctx, tx, auctionID, eventType, payload); err != nil {
		return fmt.Errorf("failed to insert %s event: %w", eventType, err)
	}
	return nil
}

func (a *App) insert(ctx context.Context, auctionID uuid.UUID, eventType string, payload []byte) error {
	if err := validateEventPayload(payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", eventType, err)
	}
	if err := a.repo.InsertEvent(ctx, auctionID, eventType, payload); err != nil {
		return fmt.Errorf("failed to insert %s event: %w", eventType, err)
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Str("event_type", eventType).
		Msg("outbox event inserted")
	return nil
}

func validateEventPayload(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("payload is empty")
	}
	if !json.Valid(payload) {
		return fmt.Errorf("payload is not valid JSON")
	}
	return nil
}
