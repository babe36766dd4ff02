package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"pix-go/internal/index"
	"pix-go/internal/model"
)

// DefaultDebounce is how long the watcher waits for the event stream to go
// quiet before emitting a change set. Imports and edits touch many files in
// quick succession; batching them keeps patches and payload writes coarse.
const DefaultDebounce = 500 * time.Millisecond

// Watcher turns raw filesystem events under the library root into debounced
// model.ChangeSet notifications for the incremental updater. Sidecar changes
// surface as updates to their asset.
type Watcher struct {
	root     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	logger   index.Logger
	changes  chan model.ChangeSet
}

// NewWatcher creates a watcher over the given library. debounce <= 0 selects
// DefaultDebounce.
func NewWatcher(lib *FSLibrary, debounce time.Duration, logger index.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     lib.Root(),
		debounce: debounce,
		fsw:      fsw,
		logger:   logger,
		changes:  make(chan model.ChangeSet, 16),
	}

	if err := w.watchTree(w.root, nil); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Changes returns the notification channel. It is closed when Run returns.
func (w *Watcher) Changes() <-chan model.ChangeSet { return w.changes }

// Run processes filesystem events until the context is cancelled. Changes
// are buffered and emitted once the stream has been quiet for the debounce
// window.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.changes)
	defer w.fsw.Close()

	pending := newPending()
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.collect(pending, ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("library watch error", "error", err)

		case <-timerC:
			timer, timerC = nil, nil
			cs := pending.changeSet()
			pending = newPending()
			if cs.Empty() {
				continue
			}
			select {
			case w.changes <- cs:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// collect folds one raw event into the pending buffer. Returns whether
// anything relevant was recorded.
func (w *Watcher) collect(p *pending, ev fsnotify.Event) bool {
	path := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// New directory: watch it and report any images already
			// inside (moves land whole trees at once).
			if err := w.watchTree(path, p); err != nil {
				w.logger.Warn("watching new directory failed", "path", path, "error", err)
			}
			return !p.empty()
		}
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	id := filepath.ToSlash(rel)
	base := filepath.Base(path)

	if strings.HasSuffix(base, sidecarSuffix) {
		// Any sidecar change, including deletion, is a metadata update
		// for its asset; the updater re-fetches and decides.
		p.markUpdated(strings.TrimSuffix(id, sidecarSuffix))
		return true
	}
	if strings.HasPrefix(base, ".") || kindForPath(path) != model.MediaImage {
		return false
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		p.markInserted(id)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		p.markDeleted(id)
	case ev.Op&(fsnotify.Write|fsnotify.Chmod) != 0:
		p.markUpdated(id)
	default:
		return false
	}
	return true
}

// watchTree registers the directory and all subdirectories with fsnotify.
// When p is non-nil, images found along the way are marked inserted.
func (w *Watcher) watchTree(dir string, p *pending) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != w.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return w.fsw.Add(path)
		}
		if p != nil && !strings.HasPrefix(name, ".") &&
			!strings.HasSuffix(name, sidecarSuffix) && kindForPath(path) == model.MediaImage {
			if rel, err := filepath.Rel(w.root, path); err == nil {
				p.markInserted(filepath.ToSlash(rel))
			}
		}
		return nil
	})
}

// pending accumulates classified asset changes between emissions.
type pending struct {
	inserted map[string]bool
	updated  map[string]bool
	deleted  map[string]bool
}

func newPending() *pending {
	return &pending{
		inserted: make(map[string]bool),
		updated:  make(map[string]bool),
		deleted:  make(map[string]bool),
	}
}

func (p *pending) empty() bool {
	return len(p.inserted) == 0 && len(p.updated) == 0 && len(p.deleted) == 0
}

func (p *pending) markInserted(id string) {
	delete(p.deleted, id)
	delete(p.updated, id)
	p.inserted[id] = true
}

func (p *pending) markUpdated(id string) {
	if p.inserted[id] || p.deleted[id] {
		return
	}
	p.updated[id] = true
}

func (p *pending) markDeleted(id string) {
	delete(p.inserted, id)
	delete(p.updated, id)
	p.deleted[id] = true
}

// changeSet renders the buffer as a ChangeSet with sorted identifier lists.
func (p *pending) changeSet() model.ChangeSet {
	return model.ChangeSet{
		Inserted: sortedKeys(p.inserted),
		Updated:  sortedKeys(p.updated),
		Deleted:  sortedKeys(p.deleted),
	}
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
