package ws

import (
	"sync"
)

// Hub keeps viewer connections grouped per listing.
type Hub struct {
	rooms sync.Map // listingID -> *room
}

func NewHub() *Hub { return &Hub{} }

// Broadcast pushes a frame to every viewer of the listing.
func (h *Hub) Broadcast(listingID string, msg []byte) {
	if v, ok := h.rooms.Load(listingID); ok {
		v.(*room).broadcast(msg)
	}
}

func (h *Hub) Join(listingID string, c *clientConn) {
	r, _ := h.rooms.LoadOrStore(listingID, newRoom())
	r.(*room).add(c)
}

func (h *Hub) Leave(listingID string, c *clientConn) {
	if v, ok := h.rooms.Load(listingID); ok {
		v.(*room).remove(c)
	}
}
