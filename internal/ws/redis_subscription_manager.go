package ws

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"marketbid/internal/notify/redisnotify"
)

// subscriptionManager keeps exactly one Redis subscription per
// "listing:<id>:events" channel, no matter how many websocket viewers watch
// the same listing on this instance.
type subscriptionManager struct {
	rdb  *redis.Client
	hub  *Hub
	mu   sync.Mutex
	subs map[string]*subEntry // listingID -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, hub *Hub) *subscriptionManager {
	return &subscriptionManager{
		rdb:  rdb,
		hub:  hub,
		subs: make(map[string]*subEntry),
	}
}

// Subscribe ensures the process is subscribed to the listing's channel;
// subsequent calls for the same listing only bump the ref-counter.
func (sm *subscriptionManager) Subscribe(listingID string) {
	sm.mu.Lock()
	if e, ok := sm.subs[listingID]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	// First viewer: create the Redis SUB and the fan-out loop.
	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, redisnotify.ChannelFor(listingID))

	sm.subs[listingID] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go func() {
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok { // Redis connection closed
					return
				}
				// The publisher already wrapped the payload in the WS
				// envelope; forward it verbatim.
				sm.hub.Broadcast(listingID, []byte(m.Payload))
			}
		}
	}()
}

// Unsubscribe drops the ref-counter and tears the Redis SUB down when the
// last viewer leaves the room.
func (sm *subscriptionManager) Unsubscribe(listingID string) {
	sm.mu.Lock()
	e, ok := sm.subs[listingID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, listingID)
	sm.mu.Unlock()

	// Outside the lock: stop the fan-out goroutine.
	e.cancel()
}
