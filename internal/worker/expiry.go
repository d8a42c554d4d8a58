// Package worker runs background maintenance for the booking engine.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper expires PENDING bookings whose payment deadline has passed and
// returns how many it expired.
type Sweeper interface {
	SweepExpired(ctx context.Context, limit int) (int, error)
}

// ExpiryWorker calls the sweeper on a fixed interval.
type ExpiryWorker struct {
	sweeper  Sweeper
	interval time.Duration
	batch    int
	log      logrus.FieldLogger
}

func NewExpiryWorker(s Sweeper, interval time.Duration, batch int, log logrus.FieldLogger) *ExpiryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ExpiryWorker{sweeper: s, interval: interval, batch: batch, log: log.WithField("component", "expiry-worker")}
}

// Start blocks until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("expiry worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("expiry worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce drains expired bookings batch by batch.  It stops after a short
// batch, an error, or cancellation, so one tick never spins forever.
func (w *ExpiryWorker) RunOnce(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n, err := w.sweeper.SweepExpired(ctx, w.batch)
		total += n
		if err != nil {
			w.log.WithError(err).Errorf("expiry sweep failed after %d bookings", total)
			break
		}
		if n < w.batch {
			break
		}
	}
	if total > 0 {
		w.log.Infof("expired %d pending bookings", total)
	}
	return total
}
