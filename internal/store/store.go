package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"marketbid/internal/models"
)

var (
	// ErrStaleListing means the listing's current-bid fields no longer match
	// the state the caller observed. The caller re-reads and retries.
	ErrStaleListing = errors.New("listing state changed since read")

	// ErrAlreadyClosed means a close raced with an earlier close.
	ErrAlreadyClosed = errors.New("listing already closed")
)

// CurrentBid is the observed high bid used as the compare-and-set condition
// for ApplyBid. A nil *CurrentBid means "no bid yet".
type CurrentBid struct {
	Amount   decimal.Decimal
	BidderID string
}

// Store is the product-store contract the bidding engine runs against.
// ApplyBid and CloseListing must be atomic: two racing ApplyBid calls for
// the same listing cannot both succeed against the same observed state, and
// CloseListing flips the closed flag exactly once.
type Store interface {
	// GetListing returns the listing or biderrors.ErrListingNotFound.
	GetListing(ctx context.Context, id string) (*models.AuctionListing, error)

	// ApplyBid installs bid as the listing's current bid, conditioned on prev
	// matching the stored current-bid fields (nil prev matches "no bid").
	// On success the previously active bid, if any, is demoted to outbid and
	// the new bid is recorded as active. A condition mismatch, or a listing
	// that closed in the meantime, returns ErrStaleListing with no effect.
	ApplyBid(ctx context.Context, listingID string, prev *CurrentBid, bid *models.Bid) error

	// CloseListing flips the closed flag false->true, marks the final
	// bidder's active bid as won and returns the winner, or nil when the
	// auction received no bids. An already-closed listing returns
	// ErrAlreadyClosed.
	CloseListing(ctx context.Context, listingID string) (*CurrentBid, error)

	// ListStandingBids returns bids with status active or won, ordered by
	// amount descending, ties broken by earliest placement.
	ListStandingBids(ctx context.Context, listingID string) ([]models.Bid, error)

	// ListBidsByBidder returns a page of the bidder's full history, newest
	// first, along with the total number of bids the bidder has placed.
	ListBidsByBidder(ctx context.Context, bidderID string, limit, offset int) ([]models.Bid, int, error)

	// ListDueListings returns ids of open auction listings whose end time has
	// passed, for the closing sweep.
	ListDueListings(ctx context.Context, now time.Time) ([]string, error)
}
