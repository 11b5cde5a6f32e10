package auctions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pennyrush/pennyrush/go/internal/biderrors"
	"github.com/pennyrush/pennyrush/go/internal/models"
)

const auctionColumns = `id, display_id, title, description, image_url,
	retail_price_cents, start_price_cents, current_price_cents, bid_increment_cents,
	status, start_time, ends_at, bid_count, prebid_count,
	winner_user_id, winner_bot_name, created_at, updated_at`

// Repository implements auction data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new auctions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateAuction inserts a new upcoming auction.
func (r *Repository) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*models.Auction, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO auctions (
			id, display_id, title, description, image_url,
			retail_price_cents, start_price_cents, current_price_cents, bid_increment_cents,
			status, start_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8, 'upcoming', $9)
		RETURNING `+auctionColumns,
		uuid.New(), req.DisplayID, req.Title, req.Description, req.ImageURL,
		req.RetailPriceCents, req.StartPriceCents, req.BidIncrementCents, req.StartTime,
	)

	auction, err := scanAuction(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}
	return auction, nil
}

// GetAuction retrieves an auction by ID.
func (r *Repository) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)

	auction, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, biderrors.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return auction, nil
}

// Snapshot returns all live and upcoming auctions plus auctions finished
// after the given cutoff, each group ordered for display.
func (r *Repository) Snapshot(ctx context.Context, finishedSince time.Time) (*Snapshot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE status IN ('live', 'upcoming')
		   OR (status = 'finished' AND updated_at >= $1)
		ORDER BY status, start_time`,
		finishedSince,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query auction snapshot: %w", err)
	}
	defer rows.Close()

	snap := &Snapshot{
		Live:     []models.Auction{},
		Upcoming: []models.Auction{},
		Finished: []models.Auction{},
	}
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction row: %w", err)
		}
		switch auction.Status {
		case models.AuctionStatusLive:
			snap.Live = append(snap.Live, *auction)
		case models.AuctionStatusUpcoming:
			snap.Upcoming = append(snap.Upcoming, *auction)
		case models.AuctionStatusFinished:
			snap.Finished = append(snap.Finished, *auction)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read auction snapshot: %w", err)
	}
	return snap, nil
}

// ListActive returns all auctions that still have a pending countdown.
func (r *Repository) ListActive(ctx context.Context) ([]models.Auction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE status IN ('live', 'upcoming')
		ORDER BY start_time`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active auctions: %w", err)
	}
	defer rows.Close()

	var auctions []models.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction row: %w", err)
		}
		auctions = append(auctions, *auction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active auctions: %w", err)
	}
	return auctions, nil
}

// FetchNextDeadline returns the earliest pending lifecycle deadline, or nil
// when no auction has one.
func (r *Repository) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, status, deadline FROM (
			SELECT id, status, start_time AS deadline FROM auctions WHERE status = 'upcoming'
			UNION ALL
			SELECT id, status, ends_at FROM auctions WHERE status = 'live' AND ends_at IS NOT NULL
		) pending
		ORDER BY deadline
		LIMIT 1`)

	var nd NextDeadline
	if err := row.Scan(&nd.AuctionID, &nd.Status, &nd.Deadline); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch next deadline: %w", err)
	}
	return &nd, nil
}

// FetchAuctionsDue returns auctions whose deadline has passed, oldest first.
func (r *Repository) FetchAuctionsDue(ctx context.Context, now time.Time, limit int32) ([]DueAuction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, status FROM auctions
		WHERE (status = 'upcoming' AND start_time <= $1)
		   OR (status = 'live' AND ends_at <= $1)
		ORDER BY COALESCE(ends_at, start_time)
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due auctions: %w", err)
	}
	defer rows.Close()

	var due []DueAuction
	for rows.Next() {
		var d DueAuction
		if err := rows.Scan(&d.ID, &d.Status); err != nil {
			return nil, fmt.Errorf("failed to scan due auction: %w", err)
		}
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due auctions: %w", err)
	}
	return due, nil
}

// ClaimPromotion atomically flips an upcoming auction to live, setting the
// initial countdown. Returns false when another instance already claimed it.
func (r *Repository) ClaimPromotion(ctx context.Context, id uuid.UUID, endsAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auctions
		SET status = 'live', ends_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'upcoming'`,
		id, endsAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to promote auction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimFinish atomically flips a live auction whose countdown expired to
// finished and records the winner. Returns false when the auction was
// extended or finished in the meantime.
func (r *Repository) ClaimFinish(ctx context.Context, id uuid.UUID, now time.Time, winnerUserID *uuid.UUID, winnerBotName *string) (*models.Auction, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE auctions
		SET status = 'finished', winner_user_id = $3, winner_bot_name = $4, updated_at = now()
		WHERE id = $1 AND status = 'live' AND ends_at <= $2
		RETURNING `+auctionColumns,
		id, now, winnerUserID, winnerBotName,
	)

	auction, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to finish auction: %w", err)
	}
	return auction, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(row rowScanner) (*models.Auction, error) {
	var a models.Auction
	err := row.Scan(
		&a.ID, &a.DisplayID, &a.Title, &a.Description, &a.ImageURL,
		&a.RetailPriceCents, &a.StartPriceCents, &a.CurrentPriceCents, &a.BidIncrementCents,
		&a.Status, &a.StartTime, &a.EndsAt, &a.BidCount, &a.PrebidCount,
		&a.WinnerUserID, &a.WinnerBotName, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
