package index

import (
	"context"
	"errors"
	"sync"
	"time"

	"pix-go/internal/model"
)

// DefaultPersistDelay is how long the updater waits after a patch before
// writing the payload, so a burst of notifications produces one disk write.
const DefaultPersistDelay = 2 * time.Second

// Updater applies minimal patches to the store in response to library change
// notifications, without ever triggering a full rescan.
type Updater struct {
	library      Library
	store        *Store
	payloads     PayloadStore
	logger       Logger
	persistDelay time.Duration

	mu         sync.Mutex
	flushTimer *time.Timer
}

// NewUpdater creates an Updater. persistDelay <= 0 selects
// DefaultPersistDelay.
func NewUpdater(library Library, store *Store, payloads PayloadStore, logger Logger, persistDelay time.Duration) *Updater {
	if persistDelay <= 0 {
		persistDelay = DefaultPersistDelay
	}
	return &Updater{
		library:      library,
		store:        store,
		payloads:     payloads,
		logger:       logger,
		persistDelay: persistDelay,
	}
}

// Run consumes change notifications until the channel closes or the context
// is cancelled, then flushes any pending payload write. The reaction to each
// notification is atomic; the channel itself is not.
func (u *Updater) Run(ctx context.Context, changes <-chan model.ChangeSet) {
	defer u.Flush()
	for {
		select {
		case cs, ok := <-changes:
			if !ok {
				return
			}
			u.Apply(ctx, cs)
		case <-ctx.Done():
			return
		}
	}
}

// Apply stages and commits one notification as a single atomic patch.
// Inserted and updated assets are re-fetched and re-scored; deleted assets
// are removed. An asset that cannot be fetched is indistinguishable from a
// deletion race and is treated as a removal.
func (u *Updater) Apply(ctx context.Context, cs model.ChangeSet) {
	if cs.Empty() {
		return
	}
	if !u.store.IsReady() {
		// Nothing to patch before the first full build; the build will
		// observe these assets itself.
		u.logger.Debug("change notification before first build, ignored")
		return
	}

	gen := u.store.Generation()

	var upserts []model.IndexEntry
	var removals []string

	seen := make(map[string]bool, len(cs.Inserted)+len(cs.Updated))
	for _, id := range append(append([]string(nil), cs.Inserted...), cs.Updated...) {
		if seen[id] {
			continue
		}
		seen[id] = true

		m, err := u.library.FetchMetadata(ctx, id)
		switch {
		case errors.Is(err, ErrAssetNotFound):
			removals = append(removals, id)
		case err != nil:
			u.logger.Warn("metadata fetch failed, treating as removal", "asset", id, "error", err)
			removals = append(removals, id)
		case m.Kind != model.MediaImage:
			// Only images are indexed; an asset that stopped being
			// one drops out.
			removals = append(removals, id)
		default:
			upserts = append(upserts, NewEntry(m))
		}
	}
	removals = append(removals, cs.Deleted...)

	if !u.store.ApplyPatch(gen, upserts, removals) {
		u.logger.Debug("patch superseded by full build, dropped",
			"upserts", len(upserts), "removals", len(removals))
		return
	}

	u.logger.Debug("patch applied", "upserts", len(upserts), "removals", len(removals))
	u.schedulePersist()
}

// schedulePersist arms (or re-arms) the debounced payload write.
func (u *Updater) schedulePersist() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.flushTimer != nil {
		u.flushTimer.Stop()
	}
	u.flushTimer = time.AfterFunc(u.persistDelay, u.Flush)
}

// Flush writes the current payload immediately if a write is pending or has
// failed before. Safe to call at any time, including shutdown.
func (u *Updater) Flush() {
	u.mu.Lock()
	if u.flushTimer != nil {
		u.flushTimer.Stop()
		u.flushTimer = nil
	}
	u.mu.Unlock()

	if !u.store.IsReady() {
		return
	}
	if err := u.payloads.Save(u.store.Snapshot().Payload()); err != nil {
		u.logger.Warn("payload save failed", "error", &PersistenceError{Op: "save", Err: err})
	}
}
