package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pennyrush/pennyrush/go/internal/bidding"
	"github.com/pennyrush/pennyrush/go/internal/events"
	"github.com/pennyrush/pennyrush/go/internal/models"
	"github.com/rs/zerolog/log"
)

// promote flips an upcoming auction to live and converts its prebids into
// automatic bids in creation order. A failed conversion (typically a
// balance drained since the prebid was placed) is logged and skipped; it
// never aborts the promotion or the remaining conversions.
func (s *Scheduler) promote(ctx context.Context, auctionID uuid.UUID) error {
	startedAt := s.clock.Now()
	claimed, err := s.store.ClaimPromotion(ctx, auctionID, startedAt.Add(s.cfg.LiveDuration))
	if err != nil {
		return fmt.Errorf("failed to claim promotion: %w", err)
	}
	if !claimed {
		// Another instance or an earlier tick already promoted it.
		return nil
	}

	prebids, err := s.sequencer.ListPrebids(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("failed to list prebids for promotion: %w", err)
	}

	converted := 0
	for _, prebid := range prebids {
		if _, err := s.sequencer.ConvertPrebid(ctx, prebid); err != nil {
			log.Warn().
				Err(err).
				Str("auction_id", auctionID.String()).
				Str("prebid_id", prebid.ID.String()).
				Str("user_id", prebid.UserID.String()).
				Msg("skipping prebid conversion")
			continue
		}
		converted++
	}

	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("failed to load auction after promotion: %w", err)
	}

	if name, ok := s.strat.OnPromoted(auction); ok {
		if result, err := s.sequencer.PlaceBid(ctx, auctionID, bidding.BidActor{IsBot: true, BotName: name}); err != nil {
			log.Warn().Err(err).Str("auction_id", auctionID.String()).Str("bot", name).Msg("bot seed bid rejected")
		} else {
			auction = result.Auction
		}
	}

	var leaderUserID *uuid.UUID
	if leader, err := s.sequencer.LatestBid(ctx, auctionID); err == nil && leader != nil {
		leaderUserID = leader.UserID
	}

	payload, err := json.Marshal(events.AuctionStartedPayload{
		AuctionID:         auction.ID.String(),
		StartedAt:         startedAt,
		EndsAt:            derefEndsAt(auction),
		CurrentPriceCents: auction.CurrentPriceCents,
		BidCount:          auction.BidCount,
		PrebidsConverted:  converted,
		LeaderUserID:      leaderUserID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal AuctionStarted payload: %w", err)
	}
	if err := s.outboxApp.InsertAuctionStartedEvent(ctx, auctionID, payload); err != nil {
		log.Error().Err(err).Str("auction_id", auctionID.String()).Msg("failed to emit AuctionStarted event")
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Int("prebids", len(prebids)).
		Int("converted", converted).
		Int64("price_cents", auction.CurrentPriceCents).
		Msg("auction promoted to live")

	s.Wake()
	return nil
}

// finalize ends a live auction whose countdown expired, unless the bot
// strategy decides to extend it with one more bid.
func (s *Scheduler) finalize(ctx context.Context, auctionID uuid.UUID) error {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("failed to load auction for finalization: %w", err)
	}

	if name, ok := s.strat.OnExpiring(auction); ok {
		if _, err := s.sequencer.PlaceBid(ctx, auctionID, bidding.BidActor{IsBot: true, BotName: name}); err == nil {
			// Countdown extended; the auction stays live.
			s.Wake()
			return nil
		} else {
			log.Debug().Err(err).Str("auction_id", auctionID.String()).Str("bot", name).Msg("bot extension bid rejected")
		}
	}

	leader, err := s.sequencer.LatestBid(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("failed to load leading bid: %w", err)
	}

	var winnerUserID *uuid.UUID
	var winnerBotName *string
	if leader != nil {
		winnerUserID = leader.UserID
		if leader.IsBot {
			winnerBotName = leader.BotName
		}
	}

	finished, err := s.store.ClaimFinish(ctx, auctionID, winnerUserID, winnerBotName)
	if err != nil {
		return fmt.Errorf("failed to claim finish: %w", err)
	}
	if finished == nil {
		// A bid extended the countdown between fetch and claim.
		return nil
	}

	payload, err := json.Marshal(events.AuctionEndedPayload{
		AuctionID:       finished.ID.String(),
		EndedAt:         s.clock.Now(),
		FinalPriceCents: finished.CurrentPriceCents,
		BidCount:        finished.BidCount,
		WinnerUserID:    winnerUserID,
		WinnerBotName:   winnerBotName,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal AuctionEnded payload: %w", err)
	}
	if err := s.outboxApp.InsertAuctionEndedEvent(ctx, auctionID, payload); err != nil {
		log.Error().Err(err).Str("auction_id", auctionID.String()).Msg("failed to emit AuctionEnded event")
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Int("bids", finished.BidCount).
		Int64("final_price_cents", finished.CurrentPriceCents).
		Msg("auction finished")

	return nil
}

func derefEndsAt(a *models.Auction) time.Time {
	if a.EndsAt == nil {
		return time.Time{}
	}
	return *a.EndsAt
}
