package biderrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrInvalidOperation  = errors.New("invalid operation for listing")
	ErrAuctionNotStarted = errors.New("auction has not started yet")
	ErrAuctionClosed     = errors.New("auction has ended")
	ErrBidTooLow         = errors.New("bid amount too low")
	ErrBidConflict       = errors.New("bid lost a concurrent update race")
)

// BidTooLowError reports the minimum acceptable amount alongside the
// rejection so callers can surface it to the bidder.
type BidTooLowError struct {
	Minimum decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid must be at least %s", e.Minimum)
}

func (e *BidTooLowError) Unwrap() error { return ErrBidTooLow }
