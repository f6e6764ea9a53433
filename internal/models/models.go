package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidStatus tracks a bid through its lifetime. A bid starts out active and
// moves exactly once to outbid, won or cancelled.
type BidStatus string

const (
	BidActive    BidStatus = "active"
	BidOutbid    BidStatus = "outbid"
	BidWon       BidStatus = "won"
	BidCancelled BidStatus = "cancelled"
)

// AuctionListing is the auction-facing subset of a marketplace product.
// The catalog owns the full product record; the bidding engine only reads
// and mutates these fields through the store.
type AuctionListing struct {
	ID               string           `json:"id"`
	StartPrice       decimal.Decimal  `json:"start_price"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	IsAuction        bool             `json:"is_auction"`
	Closed           bool             `json:"closed"`
	CurrentBidAmount *decimal.Decimal `json:"current_bid_amount,omitempty"`
	CurrentBidderID  string           `json:"current_bidder_id,omitempty"`
}

// HasBid reports whether the listing carries a current high bid.
// CurrentBidAmount and CurrentBidderID are set and cleared together.
func (l *AuctionListing) HasBid() bool {
	return l.CurrentBidAmount != nil && l.CurrentBidderID != ""
}

// Bid is a single offer on an auction listing. Records are immutable except
// for Status and the Winning flag, which the store flips on outbid/close.
type Bid struct {
	ID        string          `json:"id"`
	ListingID string          `json:"listing_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    BidStatus       `json:"status"`
	Winning   bool            `json:"winning"`
	CreatedAt time.Time       `json:"created_at"`
}
