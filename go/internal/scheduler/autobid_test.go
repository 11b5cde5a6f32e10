package scheduler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pennyrush/pennyrush/go/internal/models"
)

func TestRosterStrategy_OnExpiring(t *testing.T) {
	strat := NewRosterStrategy(RosterConfig{
		Roster:     []string{"A", "B"},
		MinBids:    3,
		MaxBotBids: 3,
	})
	auction := &models.Auction{ID: uuid.New(), BidCount: 0}

	// round-robin through the roster until the cap burns out
	for _, want := range []string{"A", "B", "A"} {
		name, ok := strat.OnExpiring(auction)
		require.True(t, ok)
		require.Equal(t, want, name)
	}

	_, ok := strat.OnExpiring(auction)
	require.False(t, ok)
}

func TestRosterStrategy_OnExpiringRespectsMinBids(t *testing.T) {
	strat := NewRosterStrategy(RosterConfig{
		Roster:     []string{"A"},
		MinBids:    3,
		MaxBotBids: 10,
	})

	_, ok := strat.OnExpiring(&models.Auction{ID: uuid.New(), BidCount: 3})
	require.False(t, ok)

	_, ok = strat.OnExpiring(&models.Auction{ID: uuid.New(), BidCount: 2})
	require.True(t, ok)
}

func TestRosterStrategy_OnPromoted(t *testing.T) {
	tests := []struct {
		name     string
		cfg      RosterConfig
		bidCount int
		want     bool
	}{
		{
			name:     "seed_disabled",
			cfg:      RosterConfig{Roster: []string{"A"}, MaxBotBids: 5},
			bidCount: 0,
			want:     false,
		},
		{
			name:     "seed_enabled_no_bids",
			cfg:      RosterConfig{Roster: []string{"A"}, MaxBotBids: 5, SeedOnLive: true},
			bidCount: 0,
			want:     true,
		},
		{
			name:     "seed_enabled_has_bids",
			cfg:      RosterConfig{Roster: []string{"A"}, MaxBotBids: 5, SeedOnLive: true},
			bidCount: 2,
			want:     false,
		},
		{
			name:     "empty_roster",
			cfg:      RosterConfig{SeedOnLive: true, MaxBotBids: 5},
			bidCount: 0,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strat := NewRosterStrategy(tt.cfg)
			_, ok := strat.OnPromoted(&models.Auction{ID: uuid.New(), BidCount: tt.bidCount})
			require.Equal(t, tt.want, ok)
		})
	}
}

func TestNopStrategyNeverBids(t *testing.T) {
	var strat NopStrategy
	a := &models.Auction{ID: uuid.New()}

	_, ok := strat.OnPromoted(a)
	require.False(t, ok)
	_, ok = strat.OnExpiring(a)
	require.False(t, ok)
}
