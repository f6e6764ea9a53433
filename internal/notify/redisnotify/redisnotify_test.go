package redisnotify

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"marketbid/internal/notify"
)

func TestBidPlaced(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	p := NewPublisher(rdc)

	ev := notify.BidUpdate{
		ListingID: "listing1",
		Amount:    decimal.RequireFromString("105"),
		BidderID:  "user2",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	payload, err := notify.Envelope(notify.EventBidUpdate, ev)
	require.NoError(t, err)

	mock.ExpectPublish("listing:listing1:events", payload).SetVal(1)

	require.NoError(t, p.BidPlaced(context.Background(), ev))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuctionFinished(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	p := NewPublisher(rdc)

	ev := notify.AuctionFinished{
		ListingID:     "listing1",
		WinnerID:      "user2",
		WinningAmount: decimal.RequireFromString("105"),
		Timestamp:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	payload, err := notify.Envelope(notify.EventAuctionFinished, ev)
	require.NoError(t, err)

	mock.ExpectPublish("listing:listing1:events", payload).SetVal(1)

	require.NoError(t, p.AuctionFinished(context.Background(), ev))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishFailureSurfaces(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	p := NewPublisher(rdc)

	ev := notify.BidUpdate{
		ListingID: "listing1",
		Amount:    decimal.RequireFromString("105"),
		BidderID:  "user2",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	payload, err := notify.Envelope(notify.EventBidUpdate, ev)
	require.NoError(t, err)

	mock.ExpectPublish("listing:listing1:events", payload).SetErr(context.DeadlineExceeded)

	require.Error(t, p.BidPlaced(context.Background(), ev))
}
