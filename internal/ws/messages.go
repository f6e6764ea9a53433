package ws

import (
	"encoding/json"

	"marketbid/internal/models"
)

// Envelope wraps every outbound WS frame.
type Envelope struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// EventSnapshot is sent once when a viewer attaches: listing state plus the
// current standing bids.
const EventSnapshot = "auctions/snapshot"

type SnapshotBody struct {
	Listing *models.AuctionListing `json:"listing"`
	Bids    []models.Bid           `json:"bids"`
}
