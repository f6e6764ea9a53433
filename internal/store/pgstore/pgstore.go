package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"marketbid/internal/biderrors"
	"marketbid/internal/models"
	"marketbid/internal/store"
)

// PgStore implements store.Store on Postgres. Atomicity comes from running
// each mutation in a single transaction with a conditional UPDATE on the
// listing's current-bid fields, so racing writers serialize on the row.
type PgStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PgStore { return &PgStore{db: db} }

const listingCols = `id, start_price, start_time, end_time, is_auction, closed,
                     current_bid_amount, current_bidder_id`

func (s *PgStore) GetListing(ctx context.Context, id string) (*models.AuctionListing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listingCols+` FROM listings WHERE id = $1`, id)

	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get listing %s: %w", id, biderrors.ErrListingNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}
	return l, nil
}

func (s *PgStore) ApplyBid(ctx context.Context, listingID string, prev *store.CurrentBid, bid *models.Bid) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The CAS: only flip the current-bid fields if they still match what the
	// engine observed and the listing has not closed in the meantime.
	var prevAmount decimal.NullDecimal
	var prevBidder sql.NullString
	if prev != nil {
		prevAmount = decimal.NullDecimal{Decimal: prev.Amount, Valid: true}
		prevBidder = sql.NullString{String: prev.BidderID, Valid: true}
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE listings
		   SET current_bid_amount = $2, current_bidder_id = $3
		 WHERE id = $1 AND is_auction AND NOT closed
		   AND current_bid_amount IS NOT DISTINCT FROM $4
		   AND current_bidder_id  IS NOT DISTINCT FROM $5`,
		listingID, bid.Amount, bid.BidderID, prevAmount, prevBidder)
	if err != nil {
		return fmt.Errorf("apply bid on %s: %w", listingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrStaleListing
	}

	if prev != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE bids SET status = 'outbid'
			  WHERE listing_id = $1 AND status = 'active'`, listingID); err != nil {
			return fmt.Errorf("demote active bid on %s: %w", listingID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bids (id, listing_id, bidder_id, amount, status, winning, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)`,
		bid.ID, bid.ListingID, bid.BidderID, bid.Amount, bid.Status, bid.CreatedAt); err != nil {
		return fmt.Errorf("insert bid on %s: %w", listingID, err)
	}

	return tx.Commit()
}

func (s *PgStore) CloseListing(ctx context.Context, listingID string) (*store.CurrentBid, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var amount decimal.NullDecimal
	var bidder sql.NullString
	err = tx.QueryRowContext(ctx, `
		UPDATE listings SET closed = true
		 WHERE id = $1 AND NOT closed
		 RETURNING current_bid_amount, current_bidder_id`,
		listingID).Scan(&amount, &bidder)
	if errors.Is(err, sql.ErrNoRows) {
		// Either unknown or already closed; look to tell the two apart.
		var closed bool
		err = s.db.QueryRowContext(ctx,
			`SELECT closed FROM listings WHERE id = $1`, listingID).Scan(&closed)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("close listing %s: %w", listingID, biderrors.ErrListingNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("close listing %s: %w", listingID, err)
		}
		return nil, store.ErrAlreadyClosed
	}
	if err != nil {
		return nil, fmt.Errorf("close listing %s: %w", listingID, err)
	}

	if !amount.Valid || !bidder.Valid {
		return nil, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE bids SET status = 'won', winning = true
		 WHERE listing_id = $1 AND bidder_id = $2 AND status = 'active'`,
		listingID, bidder.String); err != nil {
		return nil, fmt.Errorf("mark winning bid on %s: %w", listingID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &store.CurrentBid{Amount: amount.Decimal, BidderID: bidder.String}, nil
}

const bidCols = `id, listing_id, bidder_id, amount, status, winning, created_at`

func (s *PgStore) ListStandingBids(ctx context.Context, listingID string) ([]models.Bid, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bidCols+` FROM bids
		 WHERE listing_id = $1 AND status IN ('active', 'won')
		 ORDER BY amount DESC, created_at ASC`, listingID)
	if err != nil {
		return nil, fmt.Errorf("list bids for %s: %w", listingID, err)
	}
	defer rows.Close()
	return collectBids(rows)
}

func (s *PgStore) ListBidsByBidder(ctx context.Context, bidderID string, limit, offset int) ([]models.Bid, int, error) {
	if limit <= 0 {
		limit = 10
	}
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM bids WHERE bidder_id = $1`, bidderID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bids for %s: %w", bidderID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bidCols+` FROM bids
		 WHERE bidder_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, bidderID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bids for %s: %w", bidderID, err)
	}
	defer rows.Close()

	bids, err := collectBids(rows)
	if err != nil {
		return nil, 0, err
	}
	return bids, total, nil
}

func (s *PgStore) ListDueListings(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM listings
		 WHERE is_auction AND NOT closed AND end_time <= $1
		 ORDER BY end_time ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("list due listings: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.AuctionListing, error) {
	var l models.AuctionListing
	var amount decimal.NullDecimal
	var bidder sql.NullString
	if err := row.Scan(&l.ID, &l.StartPrice, &l.StartTime, &l.EndTime,
		&l.IsAuction, &l.Closed, &amount, &bidder); err != nil {
		return nil, err
	}
	if amount.Valid {
		l.CurrentBidAmount = &amount.Decimal
	}
	l.CurrentBidderID = bidder.String
	return &l, nil
}

func collectBids(rows *sql.Rows) ([]models.Bid, error) {
	bids := make([]models.Bid, 0)
	for rows.Next() {
		var b models.Bid
		if err := rows.Scan(&b.ID, &b.ListingID, &b.BidderID,
			&b.Amount, &b.Status, &b.Winning, &b.CreatedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}
