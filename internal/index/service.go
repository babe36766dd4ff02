package index

import (
	"context"
	"sync"
	"time"

	"pix-go/internal/model"
)

// Options tunes the index service. Zero values select the defaults.
type Options struct {
	// ChunkSize bounds the builder's per-chunk asset materialization.
	ChunkSize int

	// RebuildInterval is the drift-correction rebuild cadence.
	RebuildInterval time.Duration

	// RebuildCheck is how often the watch loop checks RebuildIfDue.
	RebuildCheck time.Duration

	// PersistDelay debounces incremental payload writes.
	PersistDelay time.Duration
}

// Service is the index core exposed to external collaborators: builders and
// the scheduler as writers, the query layer as reader. It owns the store;
// consumers only ever receive resolved AssetRef lists, never a reference
// into the store itself.
type Service struct {
	store     *Store
	builder   *Builder
	updater   *Updater
	scheduler *Scheduler
	payloads  PayloadStore
	logger    Logger
}

// NewService wires a Service from its collaborators.
func NewService(library Library, payloads PayloadStore, logger Logger, clock Clock, opts Options) *Service {
	store := NewStore()
	builder := NewBuilder(library, store, payloads, logger, clock, opts.ChunkSize)
	return &Service{
		store:     store,
		builder:   builder,
		updater:   NewUpdater(library, store, payloads, logger, opts.PersistDelay),
		scheduler: NewScheduler(builder, store, logger, clock, opts.RebuildInterval, opts.RebuildCheck),
		payloads:  payloads,
		logger:    logger,
	}
}

// LoadPayload restores the store from the persisted payload, if one exists
// and is compatible. Any load failure degrades to an empty index; the next
// rebuild recreates the payload.
func (s *Service) LoadPayload() {
	p, err := s.payloads.Load()
	if err != nil {
		s.logger.Warn("payload unusable, starting empty", "error", &PersistenceError{Op: "load", Err: err})
		return
	}
	if p == nil {
		s.logger.Debug("no persisted payload")
		return
	}
	s.store.Restore(p)
	s.logger.Info("index restored from payload",
		"entries", len(p.Entries), "last_full_build", p.LastFullBuildAt)
}

// IsReady reports whether at least one full build has completed in this
// process lifetime, whether just now or restored from disk.
func (s *Service) IsReady() bool { return s.store.IsReady() }

// BuildFull runs a full scan and atomically replaces the index.
func (s *Service) BuildFull(ctx context.Context) (int, error) {
	return s.builder.BuildFull(ctx)
}

// RebuildIfDue rebuilds when the last full build is older than the rebuild
// interval. Returns whether a rebuild ran.
func (s *Service) RebuildIfDue(ctx context.Context) (bool, error) {
	return s.scheduler.RebuildIfDue(ctx)
}

// RebuildNow unconditionally rebuilds.
func (s *Service) RebuildNow(ctx context.Context) (int, error) {
	return s.scheduler.RebuildNow(ctx)
}

// ApplyChanges applies one change notification as a single atomic patch.
func (s *Service) ApplyChanges(ctx context.Context, cs model.ChangeSet) {
	s.updater.Apply(ctx, cs)
}

// Run services change notifications and the rebuild schedule until the
// context is cancelled, then flushes pending payload writes.
func (s *Service) Run(ctx context.Context, changes <-chan model.ChangeSet) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.updater.Run(ctx, changes)
	}()
	go func() {
		defer wg.Done()
		s.scheduler.Run(ctx)
	}()
	wg.Wait()
}

// Stats reports readiness, entry count, and last full build time.
func (s *Service) Stats() (ready bool, entries int, lastFullBuild time.Time) {
	snap := s.store.Snapshot()
	return snap.Ready(), snap.Len(), snap.lastFullBuild
}
