package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository writes outbox rows on the write side. The read side lives in
// the relay, which runs over database/sql so it can share the pq listener
// connection handling.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new outbox repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertEventTx inserts an outbox row inside an existing transaction, so the
// event commits or rolls back together with the state change.
func (r *Repository) InsertEventTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, eventType string, payload []byte) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO auction_outbox (id, auction_id, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), auctionID, eventType, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// InsertEvent inserts an outbox row outside any caller transaction.
func (r *Repository) InsertEvent(ctx context.Context, auctionID uuid.UUID, eventType string, payload []byte) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auction_outbox (id, auction_id, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), auctionID, eventType, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}
