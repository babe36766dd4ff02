package index

import (
	"sync"
	"time"

	"pix-go/internal/model"
)

// Snapshot is an immutable, internally consistent view of the index at one
// point in time. Readers acquired a snapshot keep scanning it even while
// writers commit a newer one; no reader ever observes a half-applied batch.
type Snapshot struct {
	entries       map[string]model.IndexEntry
	order         []string // asset IDs in insertion order
	ready         bool
	lastFullBuild time.Time
}

// Ready reports whether at least one full build has completed, either in
// this process lifetime or restored from disk.
func (s *Snapshot) Ready() bool { return s.ready }

// Len returns the number of entries in the snapshot.
func (s *Snapshot) Len() int { return len(s.entries) }

// Get returns the entry for an asset ID.
func (s *Snapshot) Get(assetID string) (model.IndexEntry, bool) {
	e, ok := s.entries[assetID]
	return e, ok
}

// Each calls fn for every entry in insertion order. Iteration stops when fn
// returns false.
func (s *Snapshot) Each(fn func(e model.IndexEntry) bool) {
	for _, id := range s.order {
		if !fn(s.entries[id]) {
			return
		}
	}
}

// Payload serializes the snapshot into the persisted payload form,
// preserving insertion order.
func (s *Snapshot) Payload() *model.IndexPayload {
	entries := make([]model.IndexEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.entries[id])
	}
	return &model.IndexPayload{
		SchemaVersion:   model.SchemaVersion,
		LastFullBuildAt: s.lastFullBuild,
		Entries:         entries,
	}
}

// Store owns the entry map. Single-writer, multi-reader: writers build a
// complete replacement snapshot and swap the visible reference atomically;
// readers always see either the prior or the next complete state.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
	gen  uint64
}

// NewStore creates an empty, not-yet-ready store.
func NewStore() *Store {
	return &Store{snap: &Snapshot{entries: map[string]model.IndexEntry{}}}
}

// Snapshot returns the current snapshot. O(1): no copying happens here.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// IsReady reports whether at least one full build has completed.
func (s *Store) IsReady() bool { return s.Snapshot().ready }

// LastFullBuildAt returns when the last full build committed (zero if none).
func (s *Store) LastFullBuildAt() time.Time { return s.Snapshot().lastFullBuild }

// Generation returns a counter that increments whenever the store is
// replaced wholesale (full build commit or payload restore). Incremental
// patches staged against an older generation are rejected: the full build is
// the authoritative re-derivation and wins.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// CommitFull atomically replaces the entire index with the given entries, in
// the order given, and records the build time.
func (s *Store) CommitFull(entries []model.IndexEntry, builtAt time.Time) {
	next := &Snapshot{
		entries:       make(map[string]model.IndexEntry, len(entries)),
		order:         make([]string, 0, len(entries)),
		ready:         true,
		lastFullBuild: builtAt,
	}
	for _, e := range entries {
		if _, dup := next.entries[e.AssetID]; !dup {
			next.order = append(next.order, e.AssetID)
		}
		next.entries[e.AssetID] = e
	}

	s.mu.Lock()
	s.snap = next
	s.gen++
	s.mu.Unlock()
}

// ApplyPatch atomically merges a batch of upserts and removals staged
// against the given generation. Returns false without touching the store if
// a full build has committed since the batch was staged.
func (s *Store) ApplyPatch(gen uint64, upserts []model.IndexEntry, removals []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return false
	}

	prev := s.snap
	next := &Snapshot{
		entries:       make(map[string]model.IndexEntry, len(prev.entries)+len(upserts)),
		ready:         prev.ready,
		lastFullBuild: prev.lastFullBuild,
	}
	for id, e := range prev.entries {
		next.entries[id] = e
	}

	removed := make(map[string]bool, len(removals))
	for _, id := range removals {
		if _, ok := next.entries[id]; ok {
			delete(next.entries, id)
			removed[id] = true
		}
	}

	order := make([]string, 0, len(prev.order)+len(upserts))
	for _, id := range prev.order {
		if !removed[id] {
			order = append(order, id)
		}
	}
	for _, e := range upserts {
		// Existing entries keep their original insertion position, so
		// tie order stays stable; new entries go to the end.
		if _, ok := next.entries[e.AssetID]; !ok {
			order = append(order, e.AssetID)
		}
		next.entries[e.AssetID] = e
	}
	next.order = order

	s.snap = next
	return true
}

// Restore replaces the store contents from a persisted payload and marks the
// store ready. Entry order in the payload becomes the insertion order.
func (s *Store) Restore(p *model.IndexPayload) {
	s.CommitFull(p.Entries, p.LastFullBuildAt)
}
