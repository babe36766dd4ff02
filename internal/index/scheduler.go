package index

import (
	"context"
	"time"
)

const (
	// DefaultRebuildInterval is the drift-correction interval: a full
	// rebuild is due once the last one is a month old.
	DefaultRebuildInterval = 30 * 24 * time.Hour

	// DefaultRebuildCheck is how often the watch loop re-evaluates
	// whether a rebuild is due.
	DefaultRebuildCheck = time.Hour
)

// Scheduler periodically triggers full rebuilds as a safety net against
// index/collection drift, and exposes a manual escape hatch.
type Scheduler struct {
	builder    *Builder
	store      *Store
	logger     Logger
	clock      Clock
	interval   time.Duration
	checkEvery time.Duration
}

// NewScheduler creates a Scheduler. Non-positive durations select the
// defaults.
func NewScheduler(builder *Builder, store *Store, logger Logger, clock Clock, interval, checkEvery time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultRebuildInterval
	}
	if checkEvery <= 0 {
		checkEvery = DefaultRebuildCheck
	}
	return &Scheduler{
		builder:    builder,
		store:      store,
		logger:     logger,
		clock:      clock,
		interval:   interval,
		checkEvery: checkEvery,
	}
}

// RebuildIfDue triggers a full rebuild when the last one is older than the
// rebuild interval, or when no build has ever completed. Returns whether a
// rebuild ran.
func (s *Scheduler) RebuildIfDue(ctx context.Context) (bool, error) {
	last := s.store.LastFullBuildAt()
	if s.store.IsReady() && s.clock.Now().Sub(last) < s.interval {
		return false, nil
	}

	s.logger.Info("rebuild due", "last_full_build", last)
	if _, err := s.builder.BuildFull(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// RebuildNow unconditionally triggers a full rebuild. Used for explicit
// recovery when a caller detects stale query results.
func (s *Scheduler) RebuildNow(ctx context.Context) (int, error) {
	return s.builder.BuildFull(ctx)
}

// Run re-evaluates RebuildIfDue on a fixed cadence until the context is
// cancelled. Build errors are logged and retried on the next pass.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.checkEvery)
	defer ticker.Stop()

	for {
		if _, err := s.RebuildIfDue(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("scheduled rebuild failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
