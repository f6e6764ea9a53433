package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Events fanned out to viewers watching a listing. Delivery is best-effort,
// at-most-once: a failed publish is logged and never fails the operation
// that produced it.

const (
	EventBidUpdate       = "auctions/bid-update"
	EventAuctionFinished = "auctions/finished"
)

type BidUpdate struct {
	ListingID string          `json:"listing_id"`
	Amount    decimal.Decimal `json:"amount"`
	BidderID  string          `json:"bidder_id"`
	Timestamp time.Time       `json:"timestamp"`
}

type AuctionFinished struct {
	ListingID     string          `json:"listing_id"`
	WinnerID      string          `json:"winner_id,omitempty"`
	WinningAmount decimal.Decimal `json:"winning_amount"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Notifier is the engine's outbound event channel.
type Notifier interface {
	BidPlaced(ctx context.Context, ev BidUpdate) error
	AuctionFinished(ctx context.Context, ev AuctionFinished) error
}

// Envelope wraps an event body into the wire frame viewers receive:
//
//	{"event":"auctions/bid-update","body":{...}}
func Envelope(event string, body any) ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Body  any    `json:"body"`
	}{Event: event, Body: body})
}
