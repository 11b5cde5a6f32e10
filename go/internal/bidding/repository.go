package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pennyrush/pennyrush/go/internal/biderrors"
	"github.com/pennyrush/pennyrush/go/internal/events"
	"github.com/pennyrush/pennyrush/go/internal/models"
	"github.com/pennyrush/pennyrush/go/internal/outbox"
	"github.com/pennyrush/pennyrush/go/internal/sqlutil"
)

const uniqueViolation = "23505"

const auctionColumns = `id, display_id, title, description, image_url,
	retail_price_cents, start_price_cents, current_price_cents, bid_increment_cents,
	status, start_time, ends_at, bid_count, prebid_count,
	winner_user_id, winner_bot_name, created_at, updated_at`

const bidColumns = `id, auction_id, user_id, is_bot, bot_name, amount_cents, created_at`

// Repository implements the bid ledger writes on Postgres. Every accepted
// bid or prebid commits its outbox event in the same transaction.
type Repository struct {
	pool       *pgxpool.Pool
	outboxRepo *outbox.Repository
}

// NewRepository creates a new bidding repository.
func NewRepository(pool *pgxpool.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outboxRepo: outboxRepo}
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

// LatestBid returns the current leading bid, or nil when no bid exists.
// Ordered by amount rather than timestamp: the price strictly increases
// with every accepted bid, so the amount is a total order even when two
// bids land in the same clock tick.
func (r *Repository) LatestBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bidColumns+`
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount_cents DESC
		LIMIT 1`,
		auctionID,
	)

	bid, err := scanBid(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest bid: %w", err)
	}
	return bid, nil
}

// UserBalance returns the user's current bid credit balance.
func (r *Repository) UserBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := r.pool.QueryRow(ctx, `SELECT bid_balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, biderrors.ErrUnauthenticated
		}
		return 0, fmt.Errorf("failed to get user balance: %w", err)
	}
	return balance, nil
}

// LastUserBidTime returns when the user last bid on the auction, or nil.
func (r *Repository) LastUserBidTime(ctx context.Context, auctionID, userID uuid.UUID) (*time.Time, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT created_at
		FROM bids
		WHERE auction_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		auctionID, userID,
	)

	var at time.Time
	if err := row.Scan(&at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last user bid time: %w", err)
	}
	return &at, nil
}

// ApplyBid runs the bid transaction: debit one credit (users only), bump
// the price, extend the countdown, append the bid and insert the outbox
// event. Any failure rolls the whole thing back.
func (r *Repository) ApplyBid(ctx context.Context, req ApplyBidRequest) (*PlaceBidResult, error) {
	var result PlaceBidResult

	err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		if !req.Actor.IsBot {
			tag, err := tx.Exec(ctx, `
				UPDATE users
				SET bid_balance = bid_balance - 1, updated_at = now()
				WHERE id = $1 AND bid_balance >= 1`,
				req.Actor.UserID,
			)
			if err != nil {
				return fmt.Errorf("failed to debit balance: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return biderrors.ErrInsufficientBalance
			}
		}

		row := tx.QueryRow(ctx, `
			UPDATE auctions
			SET current_price_cents = current_price_cents + bid_increment_cents,
			    bid_count = bid_count + 1,
			    ends_at = $2,
			    updated_at = now()
			WHERE id = $1 AND status = 'live'
			RETURNING `+auctionColumns,
			req.AuctionID, req.EndsAt,
		)
		auction, err := scanAuction(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return biderrors.ErrAuctionNotLive
			}
			return fmt.Errorf("failed to apply bid to auction: %w", err)
		}

		var userID *uuid.UUID
		var botName *string
		if req.Actor.IsBot {
			botName = &req.Actor.BotName
		} else {
			userID = &req.Actor.UserID
		}

		bidRow := tx.QueryRow(ctx, `
			INSERT INTO bids (id, auction_id, user_id, is_bot, bot_name, amount_cents, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+bidColumns,
			uuid.New(), req.AuctionID, userID, req.Actor.IsBot, botName,
			auction.CurrentPriceCents, req.PlacedAt,
		)
		bid, err := scanBid(bidRow)
		if err != nil {
			return fmt.Errorf("failed to insert bid: %w", err)
		}

		payload, err := req.PayloadFn(auction, bid)
		if err != nil {
			return fmt.Errorf("failed to build bid event payload: %w", err)
		}
		if err := r.outboxRepo.InsertEventTx(ctx, tx, req.AuctionID, events.TypeBidPlaced, payload); err != nil {
			return err
		}

		result.Auction = auction
		result.Bid = bid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ApplyPrebid inserts a reservation, bumps the auction's prebid count and
// writes the outbox event in one transaction. The count bump runs first
// and re-checks the status: it takes the auction row lock, so a prebid
// serializes against the promotion claim and loses cleanly once the
// auction went live. A duplicate (user, auction) pair maps to
// ErrDuplicatePrebid via the unique index.
func (r *Repository) ApplyPrebid(ctx context.Context, req ApplyPrebidRequest) (*models.Prebid, error) {
	var created models.Prebid

	err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		var prebidCount int
		countRow := tx.QueryRow(ctx, `
			UPDATE auctions
			SET prebid_count = prebid_count + 1, updated_at = now()
			WHERE id = $1 AND status = 'upcoming'
			RETURNING prebid_count`,
			req.AuctionID,
		)
		if err := countRow.Scan(&prebidCount); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return biderrors.ErrAuctionNotUpcoming
			}
			return fmt.Errorf("failed to bump prebid count: %w", err)
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO prebids (id, auction_id, user_id)
			VALUES ($1, $2, $3)
			RETURNING id, auction_id, user_id, created_at`,
			uuid.New(), req.AuctionID, req.UserID,
		)
		if err := row.Scan(&created.ID, &created.AuctionID, &created.UserID, &created.CreatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return biderrors.ErrDuplicatePrebid
			}
			return fmt.Errorf("failed to insert prebid: %w", err)
		}

		payload, err := req.PayloadFn(&created, prebidCount)
		if err != nil {
			return fmt.Errorf("failed to build prebid event payload: %w", err)
		}
		return r.outboxRepo.InsertEventTx(ctx, tx, req.AuctionID, events.TypePrebidPlaced, payload)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListPrebids returns an auction's reservations in creation order.
func (r *Repository) ListPrebids(ctx context.Context, auctionID uuid.UUID) ([]models.Prebid, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, auction_id, user_id, created_at
		FROM prebids
		WHERE auction_id = $1
		ORDER BY created_at`,
		auctionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query prebids: %w", err)
	}
	defer rows.Close()

	var prebids []models.Prebid
	for rows.Next() {
		var p models.Prebid
		if err := rows.Scan(&p.ID, &p.AuctionID, &p.UserID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prebid: %w", err)
		}
		prebids = append(prebids, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prebids: %w", err)
	}
	return prebids, nil
}

// ListPrebidsForUser returns a user's reservations joined with their auctions.
func (r *Repository) ListPrebidsForUser(ctx context.Context, userID uuid.UUID) ([]PrebidWithAuction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.auction_id, p.user_id, p.created_at,
		       a.id, a.display_id, a.title, a.description, a.image_url,
		       a.retail_price_cents, a.start_price_cents, a.current_price_cents, a.bid_increment_cents,
		       a.status, a.start_time, a.ends_at, a.bid_count, a.prebid_count,
		       a.winner_user_id, a.winner_bot_name, a.created_at, a.updated_at
		FROM prebids p
		JOIN auctions a ON a.id = p.auction_id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query user prebids: %w", err)
	}
	defer rows.Close()

	var out []PrebidWithAuction
	for rows.Next() {
		var pa PrebidWithAuction
		if err := rows.Scan(
			&pa.Prebid.ID, &pa.Prebid.AuctionID, &pa.Prebid.UserID, &pa.Prebid.CreatedAt,
			&pa.Auction.ID, &pa.Auction.DisplayID, &pa.Auction.Title, &pa.Auction.Description, &pa.Auction.ImageURL,
			&pa.Auction.RetailPriceCents, &pa.Auction.StartPriceCents, &pa.Auction.CurrentPriceCents, &pa.Auction.BidIncrementCents,
			&pa.Auction.Status, &pa.Auction.StartTime, &pa.Auction.EndsAt, &pa.Auction.BidCount, &pa.Auction.PrebidCount,
			&pa.Auction.WinnerUserID, &pa.Auction.WinnerBotName, &pa.Auction.CreatedAt, &pa.Auction.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user prebid: %w", err)
		}
		out = append(out, pa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user prebids: %w", err)
	}
	return out, nil
}

func scanAuction(row pgx.Row) (*models.Auction, error) {
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

func scanBid(row pgx.Row) (*models.Bid, error) {
	var b models.Bid
	err := row.Scan(&b.ID, &b.AuctionID, &b.UserID, &b.IsBot, &b.BotName, &b.AmountCents, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
