package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"marketbid/internal/models"
	"marketbid/internal/notify"
	"marketbid/internal/services/bidding"
	"marketbid/internal/store/memstore"
)

type nopNotifier struct{}

func (nopNotifier) BidPlaced(context.Context, notify.BidUpdate) error        { return nil }
func (nopNotifier) AuctionFinished(context.Context, notify.AuctionFinished) error { return nil }

func TestSweepClosesDueAuctions(t *testing.T) {
	ms := memstore.New()
	svc := bidding.NewBiddingService(ms, nopNotifier{})
	now := time.Now().UTC()
	ctx := context.Background()

	due := &models.AuctionListing{
		ID:         "due",
		StartPrice: decimal.RequireFromString("100"),
		StartTime:  now.Add(-2 * time.Hour),
		EndTime:    now.Add(-time.Minute),
		IsAuction:  true,
	}
	ms.AddListing(due)

	open := &models.AuctionListing{
		ID:         "open",
		StartPrice: decimal.RequireFromString("100"),
		StartTime:  now.Add(-time.Hour),
		EndTime:    now.Add(time.Hour),
		IsAuction:  true,
	}
	ms.AddListing(open)

	// a bid placed while the auction was still running
	_, _, err := svc.PlaceBid(ctx, "open", "user1", decimal.RequireFromString("100"))
	require.NoError(t, err)

	Sweep(ctx, ms, svc, now)

	l, err := ms.GetListing(ctx, "due")
	require.NoError(t, err)
	require.True(t, l.Closed)

	l, err = ms.GetListing(ctx, "open")
	require.NoError(t, err)
	require.False(t, l.Closed)

	// a second pass over the same state is a no-op
	Sweep(ctx, ms, svc, now)
	l, err = ms.GetListing(ctx, "due")
	require.NoError(t, err)
	require.True(t, l.Closed)
}

func TestSweepDeclaresWinner(t *testing.T) {
	ms := memstore.New()
	svc := bidding.NewBiddingService(ms, nopNotifier{})
	now := time.Now().UTC()
	ctx := context.Background()

	listing := &models.AuctionListing{
		ID:         "listing1",
		StartPrice: decimal.RequireFromString("100"),
		StartTime:  now.Add(-2 * time.Hour),
		EndTime:    now.Add(time.Minute),
		IsAuction:  true,
	}
	ms.AddListing(listing)

	_, _, err := svc.PlaceBid(ctx, "listing1", "user1", decimal.RequireFromString("100"))
	require.NoError(t, err)

	Sweep(ctx, ms, svc, now.Add(2*time.Minute))

	standing, err := ms.ListStandingBids(ctx, "listing1")
	require.NoError(t, err)
	require.Len(t, standing, 1)
	require.Equal(t, models.BidWon, standing[0].Status)
	require.True(t, standing[0].Winning)
}
