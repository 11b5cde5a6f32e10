package biderrors

import "errors"

// Lookup errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrUserNotFound    = errors.New("user not found")
)

// Business rule errors. All of these are recoverable and leave no
// partial state behind.
var (
	ErrAuctionNotLive      = errors.New("auction is not live")
	ErrAuctionNotUpcoming  = errors.New("auction is not upcoming")
	ErrUnauthenticated     = errors.New("authentication required")
	ErrInsufficientBalance = errors.New("insufficient bid balance")
	ErrRateLimited         = errors.New("bid placed too soon after previous bid")
	ErrAlreadyLeading      = errors.New("already holding the leading bid")
	ErrDuplicatePrebid     = errors.New("prebid already placed for this auction")
)
