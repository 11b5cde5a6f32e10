package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pennyrush/pennyrush/go/internal/biderrors"
	"github.com/pennyrush/pennyrush/go/internal/models"
)

const userColumns = `id, username, bid_balance, role, created_at, updated_at`

// Repository implements user data access on Postgres. Balance debits are
// not here: they happen inside the bid transaction in the bidding package.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser creates a new user.
func (r *Repository) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, bid_balance, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		uuid.New(), req.Username, req.BidBalance, req.Role,
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, biderrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, biderrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// CreditBalance adds purchased bid credits to a user's balance.
func (r *Repository) CreditBalance(ctx context.Context, id uuid.UUID, credits int) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET bid_balance = bid_balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, credits,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, biderrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.BidBalance, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
