package library_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pix-go/internal/index"
	"pix-go/internal/library"
	"pix-go/internal/model"
)

func startWatcher(t *testing.T, root string) <-chan model.ChangeSet {
	t.Helper()

	lib, err := library.NewFSLibrary(root)
	if err != nil {
		t.Fatalf("NewFSLibrary() error = %v", err)
	}
	w, err := library.NewWatcher(lib, 50*time.Millisecond, index.NewNopLogger())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
	return w.Changes()
}

func awaitChange(t *testing.T, changes <-chan model.ChangeSet) model.ChangeSet {
	t.Helper()
	select {
	case cs := <-changes:
		return cs
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification arrived")
		return model.ChangeSet{}
	}
}

func TestWatcher(t *testing.T) {
	t.Run("new image surfaces as inserted", func(t *testing.T) {
		root := t.TempDir()
		changes := startWatcher(t, root)

		writePNG(t, filepath.Join(root, "fresh.png"), 4, 4)

		cs := awaitChange(t, changes)
		if !contains(cs.Inserted, "fresh.png") {
			t.Errorf("change set = %+v, want fresh.png inserted", cs)
		}
	})

	t.Run("removed image surfaces as deleted", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, "doomed.png")
		writePNG(t, path, 4, 4)
		changes := startWatcher(t, root)

		if err := os.Remove(path); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}

		cs := awaitChange(t, changes)
		if !contains(cs.Deleted, "doomed.png") {
			t.Errorf("change set = %+v, want doomed.png deleted", cs)
		}
	})

	t.Run("sidecar write surfaces as an update to its asset", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "tagged.png"), 4, 4)
		changes := startWatcher(t, root)

		writeFile(t, filepath.Join(root, "tagged.png.pix.json"), `{"adjustments": true}`)

		cs := awaitChange(t, changes)
		if !contains(cs.Updated, "tagged.png") {
			t.Errorf("change set = %+v, want tagged.png updated", cs)
		}
	})

	t.Run("images inside a new directory surface as inserted", func(t *testing.T) {
		root := t.TempDir()
		changes := startWatcher(t, root)

		// Build the tree outside the root, then move it in, the way an
		// import drops a whole album at once.
		staging := t.TempDir()
		writePNG(t, filepath.Join(staging, "album", "one.png"), 4, 4)
		if err := os.Rename(filepath.Join(staging, "album"), filepath.Join(root, "album")); err != nil {
			t.Fatalf("Rename() error = %v", err)
		}

		cs := awaitChange(t, changes)
		if !contains(cs.Inserted, "album/one.png") {
			t.Errorf("change set = %+v, want album/one.png inserted", cs)
		}
	})

	t.Run("non-image churn emits nothing", func(t *testing.T) {
		root := t.TempDir()
		changes := startWatcher(t, root)

		writeFile(t, filepath.Join(root, "notes.txt"), "scratch")
		writeFile(t, filepath.Join(root, ".DS_Store"), "junk")

		select {
		case cs := <-changes:
			t.Errorf("unexpected change set %+v", cs)
		case <-time.After(300 * time.Millisecond):
		}
	})
}

func contains(ids []string, want string) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
