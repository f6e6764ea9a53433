package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketbid/internal/biderrors"
	"marketbid/internal/models"
	"marketbid/internal/notify"
	"marketbid/internal/store"
)

// minIncrementRatio is the flat minimum increment over the current high bid.
var minIncrementRatio = decimal.RequireFromString("1.05")

// maxBidAttempts bounds the optimistic retry loop before a bid surfaces
// ErrBidConflict.
const maxBidAttempts = 3

// CloseResult reports the settled auction. WinnerID is empty when the
// auction closed without bids.
type CloseResult struct {
	WinnerID      string
	WinningAmount decimal.Decimal
}

type IBiddingService interface {
	PlaceBid(ctx context.Context, listingID, bidderID string, amount decimal.Decimal) (*models.Bid, decimal.Decimal, error)
	CloseAuction(ctx context.Context, listingID string) (*CloseResult, error)
	GetListing(ctx context.Context, listingID string) (*models.AuctionListing, error)
	ListBids(ctx context.Context, listingID string) ([]models.Bid, error)
	ListBidsByBidder(ctx context.Context, bidderID string, limit, offset int) ([]models.Bid, int, error)
}

type biddingService struct {
	store    store.Store
	notifier notify.Notifier
	now      func() time.Time
}

func NewBiddingService(st store.Store, n notify.Notifier) IBiddingService {
	return &biddingService{
		store:    st,
		notifier: n,
		now:      time.Now,
	}
}

// PlaceBid validates the bid against the listing's auction window and the
// minimum increment, then installs it with a compare-and-set on the current
// high bid. Losing the CAS re-reads and re-validates; after maxBidAttempts
// the bid fails with ErrBidConflict.
func (svc *biddingService) PlaceBid(ctx context.Context, listingID, bidderID string, amount decimal.Decimal) (*models.Bid, decimal.Decimal, error) {
	for attempt := 0; attempt < maxBidAttempts; attempt++ {
		l, err := svc.store.GetListing(ctx, listingID)
		if err != nil {
			return nil, decimal.Decimal{}, err
		}

		now := svc.now().UTC()
		if err := validateWindow(l, now); err != nil {
			return nil, decimal.Decimal{}, err
		}

		minimum := l.StartPrice
		var prev *store.CurrentBid
		if l.HasBid() {
			minimum = l.CurrentBidAmount.Mul(minIncrementRatio)
			prev = &store.CurrentBid{Amount: *l.CurrentBidAmount, BidderID: l.CurrentBidderID}
		}
		if !amount.IsPositive() || amount.LessThan(minimum) {
			return nil, decimal.Decimal{}, &biderrors.BidTooLowError{Minimum: minimum}
		}

		bid := &models.Bid{
			ID:        uuid.NewString(),
			ListingID: listingID,
			BidderID:  bidderID,
			Amount:    amount,
			Status:    models.BidActive,
			CreatedAt: now,
		}

		err = svc.store.ApplyBid(ctx, listingID, prev, bid)
		if errors.Is(err, store.ErrStaleListing) {
			continue // someone else bid or closed; re-validate against fresh state
		}
		if err != nil {
			return nil, decimal.Decimal{}, fmt.Errorf("place bid on %s: %w", listingID, err)
		}

		if err := svc.notifier.BidPlaced(ctx, notify.BidUpdate{
			ListingID: listingID,
			Amount:    amount,
			BidderID:  bidderID,
			Timestamp: now,
		}); err != nil {
			zap.L().Warn("bid_notify_failed", zap.String("listing_id", listingID), zap.Error(err))
		}
		return bid, amount, nil
	}
	return nil, decimal.Decimal{}, fmt.Errorf("place bid on %s: %w", listingID, biderrors.ErrBidConflict)
}

// CloseAuction settles the listing at most once. No end-time guard: an
// administrative caller may close early. The store's conditional flip of the
// closed flag decides the winner of racing closes; the loser reports
// ErrInvalidOperation and the recorded winner is untouched.
func (svc *biddingService) CloseAuction(ctx context.Context, listingID string) (*CloseResult, error) {
	l, err := svc.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !l.IsAuction {
		return nil, fmt.Errorf("close listing %s: not an auction: %w", listingID, biderrors.ErrInvalidOperation)
	}
	if l.Closed {
		return nil, fmt.Errorf("close listing %s: already closed: %w", listingID, biderrors.ErrInvalidOperation)
	}

	winner, err := svc.store.CloseListing(ctx, listingID)
	if errors.Is(err, store.ErrAlreadyClosed) {
		return nil, fmt.Errorf("close listing %s: already closed: %w", listingID, biderrors.ErrInvalidOperation)
	}
	if err != nil {
		return nil, err
	}

	res := &CloseResult{}
	if winner != nil {
		res.WinnerID = winner.BidderID
		res.WinningAmount = winner.Amount
	}

	if err := svc.notifier.AuctionFinished(ctx, notify.AuctionFinished{
		ListingID:     listingID,
		WinnerID:      res.WinnerID,
		WinningAmount: res.WinningAmount,
		Timestamp:     svc.now().UTC(),
	}); err != nil {
		zap.L().Warn("close_notify_failed", zap.String("listing_id", listingID), zap.Error(err))
	}
	return res, nil
}

// GetListing returns the listing's current auction state.
func (svc *biddingService) GetListing(ctx context.Context, listingID string) (*models.AuctionListing, error) {
	return svc.store.GetListing(ctx, listingID)
}

// ListBids returns the current standing of a listing: active and won bids,
// highest first. Outbid and cancelled history is excluded.
func (svc *biddingService) ListBids(ctx context.Context, listingID string) ([]models.Bid, error) {
	return svc.store.ListStandingBids(ctx, listingID)
}

// ListBidsByBidder returns a page of the bidder's bid history, newest first.
func (svc *biddingService) ListBidsByBidder(ctx context.Context, bidderID string, limit, offset int) ([]models.Bid, int, error) {
	return svc.store.ListBidsByBidder(ctx, bidderID, limit, offset)
}

func validateWindow(l *models.AuctionListing, now time.Time) error {
	if !l.IsAuction {
		return fmt.Errorf("listing %s is not an auction: %w", l.ID, biderrors.ErrInvalidOperation)
	}
	if l.Closed || !now.Before(l.EndTime) {
		return fmt.Errorf("listing %s: %w", l.ID, biderrors.ErrAuctionClosed)
	}
	if now.Before(l.StartTime) {
		return fmt.Errorf("listing %s: %w", l.ID, biderrors.ErrAuctionNotStarted)
	}
	return nil
}
