package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"marketbid/internal/biderrors"
	"marketbid/internal/models"
	"marketbid/internal/store"
)

// MemStore is a concurrency-safe in-memory implementation of store.Store.
// The single mutex makes every operation atomic, which is exactly the
// conditional-update contract the engine needs. Used by tests and the
// "memory" backend for local runs.
type MemStore struct {
	mu       sync.Mutex
	listings map[string]*models.AuctionListing
	bids     map[string][]*models.Bid // listingID -> bids in placement order
}

func New() *MemStore {
	return &MemStore{
		listings: make(map[string]*models.AuctionListing),
		bids:     make(map[string][]*models.Bid),
	}
}

// AddListing seeds a listing. The catalog owns listing creation in
// production; this exists for the memory backend and tests.
func (m *MemStore) AddListing(l *models.AuctionListing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.listings[l.ID] = &cp
}

func (m *MemStore) GetListing(_ context.Context, id string) (*models.AuctionListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return nil, fmt.Errorf("get listing %s: %w", id, biderrors.ErrListingNotFound)
	}
	cp := *l
	return &cp, nil
}

func (m *MemStore) ApplyBid(_ context.Context, listingID string, prev *store.CurrentBid, bid *models.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[listingID]
	if !ok {
		return fmt.Errorf("apply bid on %s: %w", listingID, biderrors.ErrListingNotFound)
	}
	if l.Closed || !matchesCurrent(l, prev) {
		return store.ErrStaleListing
	}

	for _, b := range m.bids[listingID] {
		if b.Status == models.BidActive {
			b.Status = models.BidOutbid
		}
	}

	cp := *bid
	m.bids[listingID] = append(m.bids[listingID], &cp)

	amount := bid.Amount
	l.CurrentBidAmount = &amount
	l.CurrentBidderID = bid.BidderID
	return nil
}

func (m *MemStore) CloseListing(_ context.Context, listingID string) (*store.CurrentBid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[listingID]
	if !ok {
		return nil, fmt.Errorf("close listing %s: %w", listingID, biderrors.ErrListingNotFound)
	}
	if l.Closed {
		return nil, store.ErrAlreadyClosed
	}
	l.Closed = true

	if !l.HasBid() {
		return nil, nil
	}
	for _, b := range m.bids[listingID] {
		if b.Status == models.BidActive && b.BidderID == l.CurrentBidderID {
			b.Status = models.BidWon
			b.Winning = true
		}
	}
	return &store.CurrentBid{Amount: *l.CurrentBidAmount, BidderID: l.CurrentBidderID}, nil
}

func (m *MemStore) ListStandingBids(_ context.Context, listingID string) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.listings[listingID]; !ok {
		return nil, fmt.Errorf("list bids for %s: %w", listingID, biderrors.ErrListingNotFound)
	}

	out := make([]models.Bid, 0)
	for _, b := range m.bids[listingID] {
		if b.Status == models.BidActive || b.Status == models.BidWon {
			out = append(out, *b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemStore) ListBidsByBidder(_ context.Context, bidderID string, limit, offset int) ([]models.Bid, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]models.Bid, 0)
	for _, bids := range m.bids {
		for _, b := range bids {
			if b.BidderID == bidderID {
				all = append(all, *b)
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []models.Bid{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *MemStore) ListDueListings(_ context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []string
	for id, l := range m.listings {
		if l.IsAuction && !l.Closed && !l.EndTime.After(now) {
			due = append(due, id)
		}
	}
	sort.Strings(due)
	return due, nil
}

func matchesCurrent(l *models.AuctionListing, prev *store.CurrentBid) bool {
	if prev == nil {
		return !l.HasBid()
	}
	return l.HasBid() &&
		l.CurrentBidderID == prev.BidderID &&
		l.CurrentBidAmount.Equal(prev.Amount)
}
