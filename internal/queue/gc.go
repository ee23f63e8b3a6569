package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultDLQRetention is how long dead summary jobs are kept for inspection
const DefaultDLQRetention = 24 * time.Hour

// collectTimeout bounds a single purge pass
const collectTimeout = 2 * time.Minute

// GarbageCollector trims the dead-letter queue of summary report jobs. Jobs land
// there when they expire before a worker picks them up, cannot be decoded, or
// their outcome could not be stored.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	purged    atomic.Int64
}

// NewGarbageCollector creates a collector purging dead letters older than retention every interval
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = DefaultDLQRetention
	}
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start purges once, then every interval until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	gc.run(ctx)
	if gc.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.run(ctx)
		}
	}
}

func (gc *GarbageCollector) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("dlq_gc_failed", zap.Error(err))
	}
}

// Collect runs one purge pass and returns the number of dead letters removed
func (gc *GarbageCollector) Collect(ctx context.Context) (int, error) {
	if gc.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return 0, fmt.Errorf("failed to purge DLQ: %w", err)
	}
	if n > 0 {
		total := gc.purged.Add(int64(n))
		gc.logger.Info("dlq_gc_purged",
			zap.Int("count", n),
			zap.Int64("total_purged", total),
			zap.Duration("retention", gc.retention),
		)
	}
	return n, nil
}

// Purged reports how many dead letters this collector has removed so far
func (gc *GarbageCollector) Purged() int64 {
	return gc.purged.Load()
}
