package bidding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/pennyrush/pennyrush/go/internal/biderrors"
	"github.com/pennyrush/pennyrush/go/internal/models"
)

// fakeBidRepo emulates the transactional repository in memory: the debit,
// the price bump and the bid insert happen atomically under one mutex.
type fakeBidRepo struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*models.Auction
	bids     map[uuid.UUID][]models.Bid
	prebids  map[uuid.UUID][]models.Prebid
	balances map[uuid.UUID]int
	payloads [][]byte

	// runs at the top of ApplyPrebid, standing in for writes that commit
	// between the app's status read and the repository transaction
	beforeApplyPrebid func()
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{
		auctions: make(map[uuid.UUID]*models.Auction),
		bids:     make(map[uuid.UUID][]models.Bid),
		prebids:  make(map[uuid.UUID][]models.Prebid),
		balances: make(map[uuid.UUID]int),
	}
}

func (f *fakeBidRepo) GetAuction(_ context.Context, id uuid.UUID) (*models.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.auctions[id]
	if !ok {
		return nil, biderrors.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeBidRepo) LatestBid(_ context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bids := f.bids[auctionID]
	if len(bids) == 0 {
		return nil, nil
	}
	// highest amount wins, like the repository's ORDER BY
	leader := bids[0]
	for _, b := range bids[1:] {
		if b.AmountCents > leader.AmountCents {
			leader = b
		}
	}
	return &leader, nil
}

func (f *fakeBidRepo) UserBalance(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[userID]
	if !ok {
		return 0, biderrors.ErrUnauthenticated
	}
	return balance, nil
}

func (f *fakeBidRepo) LastUserBidTime(_ context.Context, auctionID, userID uuid.UUID) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bids := f.bids[auctionID]
	for i := len(bids) - 1; i >= 0; i-- {
		if bids[i].UserID != nil && *bids[i].UserID == userID {
			t := bids[i].CreatedAt
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeBidRepo) ApplyBid(_ context.Context, req ApplyBidRequest) (*PlaceBidResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.auctions[req.AuctionID]
	if !ok {
		return nil, biderrors.ErrAuctionNotFound
	}
	if a.Status != models.AuctionStatusLive {
		return nil, biderrors.ErrAuctionNotLive
	}
	if !req.Actor.IsBot {
		if f.balances[req.Actor.UserID] < 1 {
			return nil, biderrors.ErrInsufficientBalance
		}
		f.balances[req.Actor.UserID]--
	}

	a.CurrentPriceCents += a.BidIncrementCents
	a.BidCount++
	endsAt := req.EndsAt
	a.EndsAt = &endsAt

	bid := models.Bid{
		ID:          uuid.New(),
		AuctionID:   req.AuctionID,
		IsBot:       req.Actor.IsBot,
		AmountCents: a.CurrentPriceCents,
		CreatedAt:   req.PlacedAt,
	}
	if req.Actor.IsBot {
		name := req.Actor.BotName
		bid.BotName = &name
	} else {
		userID := req.Actor.UserID
		bid.UserID = &userID
	}
	f.bids[req.AuctionID] = append(f.bids[req.AuctionID], bid)

	payload, err := req.PayloadFn(a, &bid)
	if err != nil {
		return nil, err
	}
	f.payloads = append(f.payloads, payload)

	auctionCopy := *a
	return &PlaceBidResult{Auction: &auctionCopy, Bid: &bid}, nil
}

func (f *fakeBidRepo) ApplyPrebid(_ context.Context, req ApplyPrebidRequest) (*models.Prebid, error) {
	if f.beforeApplyPrebid != nil {
		f.beforeApplyPrebid()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.auctions[req.AuctionID]
	if !ok {
		return nil, biderrors.ErrAuctionNotFound
	}
	if a.Status != models.AuctionStatusUpcoming {
		return nil, biderrors.ErrAuctionNotUpcoming
	}
	for _, p := range f.prebids[req.AuctionID] {
		if p.UserID == req.UserID {
			return nil, biderrors.ErrDuplicatePrebid
		}
	}

	prebid := models.Prebid{
		ID:        uuid.New(),
		AuctionID: req.AuctionID,
		UserID:    req.UserID,
		CreatedAt: time.Now(),
	}
	f.prebids[req.AuctionID] = append(f.prebids[req.AuctionID], prebid)
	a.PrebidCount++

	payload, err := req.PayloadFn(&prebid, a.PrebidCount)
	if err != nil {
		return nil, err
	}
	f.payloads = append(f.payloads, payload)
	return &prebid, nil
}

func (f *fakeBidRepo) ListPrebids(_ context.Context, auctionID uuid.UUID) ([]models.Prebid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Prebid(nil), f.prebids[auctionID]...), nil
}

func (f *fakeBidRepo) ListPrebidsForUser(_ context.Context, userID uuid.UUID) ([]PrebidWithAuction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []PrebidWithAuction
	for auctionID, prebids := range f.prebids {
		for _, p := range prebids {
			if p.UserID == userID {
				out = append(out, PrebidWithAuction{Prebid: p, Auction: *f.auctions[auctionID]})
			}
		}
	}
	return out, nil
}

func (f *fakeBidRepo) addAuction(status models.AuctionStatus, startPrice, increment int64) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.auctions[id] = &models.Auction{
		ID:                id,
		Status:            status,
		StartPriceCents:   startPrice,
		CurrentPriceCents: startPrice,
		BidIncrementCents: increment,
	}
	return id
}

func (f *fakeBidRepo) addUser(balance int) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.balances[id] = balance
	return id
}

func (f *fakeBidRepo) setStatus(id uuid.UUID, status models.AuctionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auctions[id].Status = status
}

func (f *fakeBidRepo) auctionState(id uuid.UUID) models.Auction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.auctions[id]
}

func newTestApp(repo *fakeBidRepo) (*App, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewApp(repo, clock, DefaultPolicy()), clock
}

func TestPlaceBid_PriceArithmetic(t *testing.T) {
	repo := newFakeBidRepo()
	app, clock := newTestApp(repo)
	ctx := context.Background()

	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)
	alice := repo.addUser(10)
	bob := repo.addUser(10)

	users := []uuid.UUID{alice, bob, alice, bob, alice}
	for _, userID := range users {
		_, err := app.PlaceBid(ctx, auctionID, BidActor{UserID: userID})
		require.NoError(t, err)
		clock.Advance(3 * time.Second)
	}

	a := repo.auctionState(auctionID)
	require.Equal(t, int64(5), a.CurrentPriceCents)
	require.Equal(t, 5, a.BidCount)
	require.Equal(t, 7, repo.balances[alice])
	require.Equal(t, 8, repo.balances[bob])
}

func TestPlaceBid_ExtendsCountdown(t *testing.T) {
	repo := newFakeBidRepo()
	app, clock := newTestApp(repo)

	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)
	alice := repo.addUser(10)

	result, err := app.PlaceBid(context.Background(), auctionID, BidActor{UserID: alice})
	require.NoError(t, err)
	require.NotNil(t, result.Auction.EndsAt)
	require.Equal(t, clock.Now().Add(12*time.Second), *result.Auction.EndsAt)
}

func TestPlaceBid_Unauthenticated(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)
	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)

	_, err := app.PlaceBid(context.Background(), auctionID, BidActor{})
	require.ErrorIs(t, err, biderrors.ErrUnauthenticated)
}

func TestPlaceBid_AuctionNotFound(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)
	alice := repo.addUser(10)

	_, err := app.PlaceBid(context.Background(), uuid.New(), BidActor{UserID: alice})
	require.ErrorIs(t, err, biderrors.ErrAuctionNotFound)
}

func TestPlaceBid_AuctionNotLive(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)
	alice := repo.addUser(10)

	for _, status := range []models.AuctionStatus{models.AuctionStatusUpcoming, models.AuctionStatusFinished} {
		auctionID := repo.addAuction(status, 0, 1)
		_, err := app.PlaceBid(context.Background(), auctionID, BidActor{UserID: alice})
		require.ErrorIs(t, err, biderrors.ErrAuctionNotLive)
	}
}

func TestPlaceBid_InsufficientBalanceLeavesNoTrace(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)

	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)
	broke := repo.addUser(0)

	_, err := app.PlaceBid(context.Background(), auctionID, BidActor{UserID: broke})
	require.ErrorIs(t, err, biderrors.ErrInsufficientBalance)

	a := repo.auctionState(auctionID)
	require.Equal(t, int64(0), a.CurrentPriceCents)
	require.Equal(t, 0, a.BidCount)
	require.Nil(t, a.EndsAt)
	require.Empty(t, repo.bids[auctionID])
}

func TestPlaceBid_BalanceCheckedBeforeSpacingAndLeader(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)
	ctx := context.Background()

	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)
	alice := repo.addUser(1)

	_, err := app.PlaceBid(ctx, auctionID, BidActor{UserID: alice})
	require.NoError(t, err)

	// alice is now broke, leading, and inside the spacing window; the
	// drained balance is what the caller must hear about
	_, err = app.PlaceBid(ctx, auctionID, BidActor{UserID: alice})
	require.ErrorIs(t, err, biderrors.ErrInsufficientBalance)
}

func TestPlaceBid_LeaderByAmountOnTimestampTie(t *testing.T) {
	repo := newFakeBidRepo()
	app, clock := newTestApp(repo)
	ctx := context.Background()

	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)
	alice := repo.addUser(10)
	bob := repo.addUser(10)

	// both bids carry the same timestamp; the higher amount leads
	_, err := app.PlaceBid(ctx, auctionID, BidActor{UserID: alice})
	require.NoError(t, err)
	_, err = app.PlaceBid(ctx, auctionID, BidActor{UserID: bob})
	require.NoError(t, err)

	clock.Advance(3 * time.Second)
	_, err = app.PlaceBid(ctx, auctionID, BidActor{UserID: bob})
	require.ErrorIs(t, err, biderrors.ErrAlreadyLeading)
}

func TestPlaceBid_RateLimited(t *testing.T) {
	repo := newFakeBidRepo()
	app, clock := newTestApp(repo)
	ctx := context.Background()

	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)
	alice := repo.addUser(10)

	_, err := app.PlaceBid(ctx, auctionID, BidActor{UserID: alice})
	require.NoError(t, err)

	clock.Advance(1 * time.Second)
	_, err = app.PlaceBid(ctx, auctionID, BidActor{UserID: alice})
	require.ErrorIs(t, err, biderrors.ErrRateLimited)
}

func TestPlaceBid_AlreadyLeading(t *testing.T) {
	repo := newFakeBidRepo()
	app, clock := newTestApp(repo)
	ctx := context.Background()

	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)
	alice := repo.addUser(10)

	_, err := app.PlaceBid(ctx, auctionID, BidActor{UserID: alice})
	require.NoError(t, err)

	// outside the spacing window, so the leader check is what fires
	clock.Advance(3 * time.Second)
	_, err = app.PlaceBid(ctx, auctionID, BidActor{UserID: alice})
	require.ErrorIs(t, err, biderrors.ErrAlreadyLeading)
}

func TestPlaceBid_BotSkipsBalanceAndSpacing(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)
	ctx := context.Background()

	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)

	_, err := app.PlaceBid(ctx, auctionID, BidActor{IsBot: true, BotName: "LightningLucy"})
	require.NoError(t, err)

	// a different bot may bid immediately; the same bot is leading
	_, err = app.PlaceBid(ctx, auctionID, BidActor{IsBot: true, BotName: "BidMasterBeth"})
	require.NoError(t, err)

	_, err = app.PlaceBid(ctx, auctionID, BidActor{IsBot: true, BotName: "BidMasterBeth"})
	require.ErrorIs(t, err, biderrors.ErrAlreadyLeading)

	a := repo.auctionState(auctionID)
	require.Equal(t, int64(2), a.CurrentPriceCents)
	require.Equal(t, 2, a.BidCount)
}

func TestPlaceBid_ConcurrentBidsBothApply(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)
	ctx := context.Background()

	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)
	alice := repo.addUser(10)
	bob := repo.addUser(10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []uuid.UUID{alice, bob} {
		wg.Add(1)
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = app.PlaceBid(ctx, auctionID, BidActor{UserID: userID})
		}(i, userID)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	a := repo.auctionState(auctionID)
	require.Equal(t, int64(2), a.CurrentPriceCents)
	require.Equal(t, 2, a.BidCount)
	require.Len(t, repo.bids[auctionID], 2)
}

func TestConvertPrebid_WaivesSpacingAndLeaderChecks(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)
	ctx := context.Background()

	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)
	alice := repo.addUser(10)

	// alice is already leading and well inside the spacing window
	_, err := app.PlaceBid(ctx, auctionID, BidActor{UserID: alice})
	require.NoError(t, err)

	result, err := app.ConvertPrebid(ctx, models.Prebid{AuctionID: auctionID, UserID: alice})
	require.NoError(t, err)
	require.Equal(t, int64(2), result.Auction.CurrentPriceCents)
	require.Equal(t, 8, repo.balances[alice])
}

func TestConvertPrebid_StillDebitsBalance(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)

	auctionID := repo.addAuction(models.AuctionStatusLive, 0, 1)
	broke := repo.addUser(0)

	_, err := app.ConvertPrebid(context.Background(), models.Prebid{AuctionID: auctionID, UserID: broke})
	require.ErrorIs(t, err, biderrors.ErrInsufficientBalance)
}

func TestPlacePrebid(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)
	ctx := context.Background()

	upcoming := repo.addAuction(models.AuctionStatusUpcoming, 0, 1)
	live := repo.addAuction(models.AuctionStatusLive, 0, 1)
	alice := repo.addUser(10)

	tests := []struct {
		name      string
		auctionID uuid.UUID
		userID    uuid.UUID
		wantErr   error
	}{
		{name: "unauthenticated", auctionID: upcoming, userID: uuid.Nil, wantErr: biderrors.ErrUnauthenticated},
		{name: "unknown_auction", auctionID: uuid.New(), userID: alice, wantErr: biderrors.ErrAuctionNotFound},
		{name: "live_auction", auctionID: live, userID: alice, wantErr: biderrors.ErrAuctionNotUpcoming},
		{name: "first_prebid", auctionID: upcoming, userID: alice, wantErr: nil},
		{name: "duplicate_prebid", auctionID: upcoming, userID: alice, wantErr: biderrors.ErrDuplicatePrebid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prebid, err := app.PlacePrebid(ctx, tt.auctionID, tt.userID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.auctionID, prebid.AuctionID)
			require.Equal(t, tt.userID, prebid.UserID)
		})
	}

	require.Equal(t, 1, repo.auctionState(upcoming).PrebidCount)
}

func TestPlacePrebid_RejectedOnceAuctionGoesLive(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)

	auctionID := repo.addAuction(models.AuctionStatusUpcoming, 0, 1)
	alice := repo.addUser(10)

	// the auction is promoted after the status read but before the
	// reservation commits; the write-side check must reject it
	repo.beforeApplyPrebid = func() {
		repo.setStatus(auctionID, models.AuctionStatusLive)
	}

	_, err := app.PlacePrebid(context.Background(), auctionID, alice)
	require.ErrorIs(t, err, biderrors.ErrAuctionNotUpcoming)
	require.Empty(t, repo.prebids[auctionID])
	require.Equal(t, 0, repo.auctionState(auctionID).PrebidCount)
}

func TestPlacePrebid_NoBalanceDebit(t *testing.T) {
	repo := newFakeBidRepo()
	app, _ := newTestApp(repo)

	auctionID := repo.addAuction(models.AuctionStatusUpcoming, 0, 1)
	broke := repo.addUser(0)

	// reservations don't touch the balance; the debit happens at conversion
	_, err := app.PlacePrebid(context.Background(), auctionID, broke)
	require.NoError(t, err)
}
