package ws

import (
	"context"

	"marketbid/internal/notify"
)

// LocalNotifier feeds listing events straight into the in-process hub.
// Used with the memory store backend, where there is no Redis to bridge
// instances.
type LocalNotifier struct {
	hub *Hub
}

func NewLocalNotifier(hub *Hub) *LocalNotifier { return &LocalNotifier{hub: hub} }

func (n *LocalNotifier) BidPlaced(_ context.Context, ev notify.BidUpdate) error {
	payload, err := notify.Envelope(notify.EventBidUpdate, ev)
	if err != nil {
		return err
	}
	n.hub.Broadcast(ev.ListingID, payload)
	return nil
}

func (n *LocalNotifier) AuctionFinished(_ context.Context, ev notify.AuctionFinished) error {
	payload, err := notify.Envelope(notify.EventAuctionFinished, ev)
	if err != nil {
		return err
	}
	n.hub.Broadcast(ev.ListingID, payload)
	return nil
}
