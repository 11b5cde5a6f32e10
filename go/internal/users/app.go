package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pennyrush/pennyrush/go/internal/models"
)

// UserRepository defines what the app layer needs from the repository.
type UserRepository interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreditBalance(ctx context.Context, id uuid.UUID, credits int) (*models.User, error)
}

// App handles user business logic.
type App struct {
	repo UserRepository
}

// NewApp creates a new users App.
func NewApp(repo UserRepository) *App {
	return &App{repo: repo}
}

// CreateUser validates and creates a new user.
func (a *App) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if req.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if req.BidBalance < 0 {
		return nil, fmt.Errorf("bid_balance must not be negative")
	}
	if req.Role == "" {
		req.Role = "user"
	}
	return a.repo.CreateUser(ctx, req)
}

// GetUser retrieves a user by ID.
func (a *App) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return a.repo.GetUser(ctx, id)
}

// GetUserByUsername retrieves a user by username.
func (a *App) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return a.repo.GetUserByUsername(ctx, username)
}

// CreditBalance adds purchased bid credits to a user's balance.
func (a *App) CreditBalance(ctx context.Context, id uuid.UUID, credits int) (*models.User, error) {
	if credits <= 0 {
		return nil, fmt.Errorf("credits must be positive")
	}
	return a.repo.CreditBalance(ctx, id, credits)
}
