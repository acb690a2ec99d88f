package items

import (
	"context"
	"time"

	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/metrics"
)

// Expirer flips overdue items.
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// ExpiryWorker periodically marks active items past their expiry date as
// expired. Claim acceptance never depends on it having run.
type ExpiryWorker struct {
	store    Expirer
	interval time.Duration
	log      logger.Logger
	now      func() time.Time
}

func NewExpiryWorker(store Expirer, interval time.Duration, log logger.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		store:    store,
		interval: interval,
		log:      log.With("component", "expiry_worker"),
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *ExpiryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs a single expiry pass.
func (w *ExpiryWorker) Sweep(ctx context.Context) int64 {
	n, err := w.store.ExpireOverdue(ctx, w.now())
	if err != nil {
		if ctx.Err() == nil {
			w.log.ErrorContext(ctx, "expiry sweep failed", "error", err)
		}
		return 0
	}
	if n > 0 {
		metrics.ItemsExpired.Add(float64(n))
		w.log.InfoContext(ctx, "expired overdue items", "count", n)
	}
	return n
}
