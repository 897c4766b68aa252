package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/whatodo/internal/metrics"
	"go.uber.org/zap"
)

// purgeTimeout bounds a single sweep of the dead-letter queue
const purgeTimeout = 2 * time.Minute

// GarbageCollector drops dead-lettered schedule events once they are older
// than retention. A failed export stays inspectable until then.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewGarbageCollector sweeps purger every interval
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarbageCollector{purger: purger, interval: interval, retention: retention, logger: logger}
}

// Start sweeps once immediately, then on every tick until ctx is cancelled
func (gc *GarbageCollector) Start(ctx context.Context) error {
	gc.sweep(ctx)
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.sweep(ctx)
		}
	}
}

func (gc *GarbageCollector) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("dlq_gc_failed", zap.Error(err))
	}
}

// Collect runs one purge and returns how many events were removed
func (gc *GarbageCollector) Collect(ctx context.Context) (int, error) {
	if gc.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()
	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return n, fmt.Errorf("purge dead letters: %w", err)
	}
	if n > 0 {
		metrics.RecordDLQPurged(n)
		gc.logger.Info("dlq_gc_purged", zap.Int("count", n), zap.Duration("retention", gc.retention))
	}
	return n, nil
}
