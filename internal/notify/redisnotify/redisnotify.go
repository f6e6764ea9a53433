package redisnotify

import (
	"context"

	"github.com/redis/go-redis/v9"

	"marketbid/internal/notify"
)

// Publisher pushes listing events through Redis pub/sub so every service
// instance can fan them out to its own websocket clients.
type Publisher struct {
	rdc *redis.Client
}

func NewPublisher(rdc *redis.Client) *Publisher { return &Publisher{rdc: rdc} }

// ChannelFor names the pub/sub channel carrying a listing's events.
func ChannelFor(listingID string) string {
	return "listing:" + listingID + ":events"
}

func (p *Publisher) BidPlaced(ctx context.Context, ev notify.BidUpdate) error {
	return p.publish(ctx, ev.ListingID, notify.EventBidUpdate, ev)
}

func (p *Publisher) AuctionFinished(ctx context.Context, ev notify.AuctionFinished) error {
	return p.publish(ctx, ev.ListingID, notify.EventAuctionFinished, ev)
}

func (p *Publisher) publish(ctx context.Context, listingID, event string, body any) error {
	payload, err := notify.Envelope(event, body)
	if err != nil {
		return err
	}
	return p.rdc.Publish(ctx, ChannelFor(listingID), payload).Err()
}
