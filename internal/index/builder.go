package index

import (
	"context"
	"fmt"
	"sync"

	"pix-go/internal/model"
)

// DefaultChunkSize bounds how many assets the builder materializes at once
// while enumerating the library. Entries themselves are small; the chunking
// keeps metadata fetches bounded regardless of library size.
const DefaultChunkSize = 500

// Builder performs full scans of the library and commits the result to the
// store atomically. Concurrent BuildFull calls coalesce onto one in-flight
// build.
type Builder struct {
	library   Library
	store     *Store
	payloads  PayloadStore
	logger    Logger
	clock     Clock
	chunkSize int

	mu       sync.Mutex
	inflight *buildRun
}

// buildRun carries the result of an in-flight build to coalesced callers.
type buildRun struct {
	done  chan struct{}
	count int
	err   error
}

// NewBuilder creates a Builder. chunkSize <= 0 selects DefaultChunkSize.
func NewBuilder(library Library, store *Store, payloads PayloadStore, logger Logger, clock Clock, chunkSize int) *Builder {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Builder{
		library:   library,
		store:     store,
		payloads:  payloads,
		logger:    logger,
		clock:     clock,
		chunkSize: chunkSize,
	}
}

// BuildFull enumerates every eligible asset, scores it, and atomically
// replaces the store contents, then persists the new payload. Returns the
// number of entries committed.
//
// Safely re-entrant: if a build is already in progress the call waits for it
// and returns its result instead of starting a second scan. Cancellable: a
// cancelled build discards its partial work and leaves the store untouched.
func (b *Builder) BuildFull(ctx context.Context) (int, error) {
	b.mu.Lock()
	if run := b.inflight; run != nil {
		b.mu.Unlock()
		select {
		case <-run.done:
			return run.count, run.err
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	run := &buildRun{done: make(chan struct{})}
	b.inflight = run
	b.mu.Unlock()

	run.count, run.err = b.build(ctx)

	b.mu.Lock()
	b.inflight = nil
	b.mu.Unlock()
	close(run.done)

	return run.count, run.err
}

func (b *Builder) build(ctx context.Context) (int, error) {
	var entries []model.IndexEntry

	err := b.library.EnumerateImages(ctx, b.chunkSize, func(chunk []model.AssetMetadata) error {
		// Cancellation is checked between chunks; a cancelled build
		// never commits.
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, m := range chunk {
			entries = append(entries, NewEntry(m))
		}
		return nil
	})
	if err != nil {
		b.logger.Warn("full build aborted", "error", err)
		return 0, &BuildError{Err: fmt.Errorf("enumerating library: %w", err)}
	}

	b.store.CommitFull(entries, b.clock.Now())
	b.logger.Info("full build committed", "entries", len(entries))

	if err := b.payloads.Save(b.store.Snapshot().Payload()); err != nil {
		// Write failures never fail the build; the payload is rewritten
		// on the next mutation.
		b.logger.Warn("payload save failed", "error", &PersistenceError{Op: "save", Err: err})
	}

	return len(entries), nil
}
