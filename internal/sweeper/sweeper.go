package sweeper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"marketbid/internal/biderrors"
	"marketbid/internal/services/bidding"
	"marketbid/internal/store"
)

// Run closes due auctions on a fixed interval. The store's at-most-once
// close makes racing a manual close harmless.
func Run(ctx context.Context, st store.Store, svc bidding.IBiddingService, every time.Duration) {
	tk := time.NewTicker(every)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				Sweep(ctx, st, svc, time.Now().UTC())
			}
		}
	}()
}

// Sweep performs one pass: every open auction whose end time has passed is
// closed and its winner declared.
func Sweep(ctx context.Context, st store.Store, svc bidding.IBiddingService, now time.Time) {
	ids, err := st.ListDueListings(ctx, now)
	if err != nil {
		zap.L().Warn("sweeper.list_due", zap.Error(err))
		return
	}

	for _, id := range ids {
		res, err := svc.CloseAuction(ctx, id)
		if err != nil {
			// An admin close may have landed between the listing and the
			// close; that is a no-op, not a failure.
			if !errors.Is(err, biderrors.ErrInvalidOperation) {
				zap.L().Warn("sweeper.close", zap.String("listing_id", id), zap.Error(err))
			}
			continue
		}
		zap.L().Info("auction closed by sweep",
			zap.String("listing_id", id),
			zap.String("winner_id", res.WinnerID),
		)
	}
}
