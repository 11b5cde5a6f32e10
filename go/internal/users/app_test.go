package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pennyrush/pennyrush/go/internal/models"
)

type fakeUserRepo struct {
	created     *CreateUserRequest
	credited    int
	creditCalls int
}

func (f *fakeUserRepo) CreateUser(_ context.Context, req CreateUserRequest) (*models.User, error) {
	f.created = &req
	return &models.User{ID: uuid.New(), Username: req.Username, BidBalance: req.BidBalance, Role: req.Role}, nil
}

func (f *fakeUserRepo) GetUser(context.Context, uuid.UUID) (*models.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) CreditBalance(_ context.Context, _ uuid.UUID, credits int) (*models.User, error) {
	f.credited += credits
	f.creditCalls++
	return &models.User{BidBalance: f.credited}, nil
}

func TestCreateUser(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateUserRequest
		wantErr bool
	}{
		{name: "valid", req: CreateUserRequest{Username: "alice", BidBalance: 50}},
		{name: "missing_username", req: CreateUserRequest{BidBalance: 50}, wantErr: true},
		{name: "negative_balance", req: CreateUserRequest{Username: "alice", BidBalance: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUserRepo{}
			app := NewApp(repo)

			_, err := app.CreateUser(context.Background(), tt.req)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, repo.created)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "user", repo.created.Role)
		})
	}
}

func TestCreditBalance(t *testing.T) {
	repo := &fakeUserRepo{}
	app := NewApp(repo)
	ctx := context.Background()

	_, err := app.CreditBalance(ctx, uuid.New(), 0)
	require.Error(t, err)
	_, err = app.CreditBalance(ctx, uuid.New(), -5)
	require.Error(t, err)
	require.Zero(t, repo.creditCalls)

	user, err := app.CreditBalance(ctx, uuid.New(), 25)
	require.NoError(t, err)
	require.Equal(t, 25, user.BidBalance)
}
