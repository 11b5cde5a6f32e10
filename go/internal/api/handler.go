package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pennyrush/pennyrush/go/internal/auctions"
	"github.com/pennyrush/pennyrush/go/internal/bidding"
	"github.com/pennyrush/pennyrush/go/internal/biderrors"
	"github.com/pennyrush/pennyrush/go/internal/models"
)

// AuctionsApp provides the auction snapshot and lookup queries.
type AuctionsApp interface {
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	Snapshot(ctx context.Context) (*auctions.Snapshot, error)
}

// BiddingApp is the bid sequencer surface the handlers call into.
type BiddingApp interface {
	PlaceBid(ctx context.Context, auctionID uuid.UUID, actor bidding.BidActor) (*bidding.PlaceBidResult, error)
	PlacePrebid(ctx context.Context, auctionID, userID uuid.UUID) (*models.Prebid, error)
	ListPrebidsForUser(ctx context.Context, userID uuid.UUID) ([]bidding.PrebidWithAuction, error)
}

// UsersApp provides the profile lookup for the "me" endpoint.
type UsersApp interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TimerSource reports seconds remaining per active auction.
type TimerSource interface {
	Snapshot() map[string]int
}

// Handler serves the REST surface.
type Handler struct {
	auctions AuctionsApp
	bidding  BiddingApp
	users    UsersApp
	timers   TimerSource
}

func NewHandler(auctionsApp AuctionsApp, biddingApp BiddingApp, usersApp UsersApp, timers TimerSource) *Handler {
	return &Handler{
		auctions: auctionsApp,
		bidding:  biddingApp,
		users:    usersApp,
		timers:   timers,
	}
}

// ListAuctions handles GET /api/auctions.
func (h *Handler) ListAuctions(c *gin.Context) {
	snapshot, err := h.auctions.Snapshot(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetAuction handles GET /api/auctions/:id.
func (h *Handler) GetAuction(c *gin.Context) {
	auctionID, ok := parseAuctionID(c)
	if !ok {
		return
	}

	auction, err := h.auctions.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, auction)
}

// GetTimers handles GET /api/timers.
func (h *Handler) GetTimers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"timers": h.timers.Snapshot()})
}

// PlaceBid handles POST /api/auctions/:id/bid.
func (h *Handler) PlaceBid(c *gin.Context) {
	auctionID, ok := parseAuctionID(c)
	if !ok {
		return
	}
	userID, ok := authedUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	result, err := h.bidding.PlaceBid(c.Request.Context(), auctionID, bidding.BidActor{UserID: userID})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PlacePrebid handles POST /api/auctions/:id/prebid.
func (h *Handler) PlacePrebid(c *gin.Context) {
	auctionID, ok := parseAuctionID(c)
	if !ok {
		return
	}
	userID, ok := authedUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	prebid, err := h.bidding.PlacePrebid(c.Request.Context(), auctionID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, prebid)
}

// ListMyPrebids handles GET /api/me/prebids.
func (h *Handler) ListMyPrebids(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	prebids, err := h.bidding.ListPrebidsForUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if prebids == nil {
		prebids = []bidding.PrebidWithAuction{}
	}
	c.JSON(http.StatusOK, gin.H{"prebids": prebids})
}

// GetMe handles GET /api/me.
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseAuctionID(c *gin.Context) (uuid.UUID, bool) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auction id"})
		return uuid.Nil, false
	}
	return auctionID, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusForError maps the sentinel taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, biderrors.ErrAuctionNotFound),
		errors.Is(err, biderrors.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, biderrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, biderrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, biderrors.ErrAuctionNotLive),
		errors.Is(err, biderrors.ErrAuctionNotUpcoming),
		errors.Is(err, biderrors.ErrInsufficientBalance),
		errors.Is(err, biderrors.ErrAlreadyLeading),
		errors.Is(err, biderrors.ErrDuplicatePrebid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
