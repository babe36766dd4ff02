package index_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pix-go/internal/index"
	"pix-go/internal/library"
	"pix-go/internal/model"
	"pix-go/internal/payload"
	"pix-go/internal/testutil"
)

func TestService_LoadPayload(t *testing.T) {
	createdAt := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)

	t.Run("restores a persisted index", func(t *testing.T) {
		lib := library.NewMemoryLibrary()
		lib.Put(testutil.ImageMetadata("a.jpg", createdAt))
		lib.Put(testutil.ImageMetadata("b.jpg", createdAt))
		payloads := payload.NewMemoryPayloadStore()

		first := index.NewService(lib, payloads, index.NewNopLogger(), testutil.FixedClock(), index.Options{})
		if _, err := first.BuildFull(context.Background()); err != nil {
			t.Fatalf("BuildFull() error = %v", err)
		}

		// A fresh process restores from the same payload store.
		second := index.NewService(lib, payloads, index.NewNopLogger(), testutil.FixedClock(), index.Options{})
		second.LoadPayload()

		if !second.IsReady() {
			t.Fatal("restored service not ready")
		}
		ready, entries, lastBuild := second.Stats()
		if !ready || entries != 2 {
			t.Errorf("Stats() = (%v, %d), want (true, 2)", ready, entries)
		}
		if !lastBuild.Equal(testutil.FixedClock().Now()) {
			t.Errorf("lastBuild = %v, want %v", lastBuild, testutil.FixedClock().Now())
		}

		refs := second.TopItems(index.Filter{}, 10)
		if len(refs) != 2 {
			t.Errorf("TopItems() len = %d, want 2", len(refs))
		}
	})

	t.Run("absent payload leaves the service not ready", func(t *testing.T) {
		svc := index.NewService(library.NewMemoryLibrary(), payload.NewMemoryPayloadStore(), index.NewNopLogger(), testutil.FixedClock(), index.Options{})
		svc.LoadPayload()

		if svc.IsReady() {
			t.Error("IsReady() = true with no payload")
		}
	})

	t.Run("unreadable payload degrades to empty", func(t *testing.T) {
		svc := index.NewService(library.NewMemoryLibrary(), failingLoadStore{err: errors.New("corrupt")}, index.NewNopLogger(), testutil.FixedClock(), index.Options{})
		svc.LoadPayload()

		if svc.IsReady() {
			t.Error("IsReady() = true after a failed load")
		}
		if refs := svc.TopItems(index.Filter{}, 10); refs != nil {
			t.Errorf("TopItems() = %v, want nil", refs)
		}
	})
}

type failingLoadStore struct {
	err error
}

func (s failingLoadStore) Save(*model.IndexPayload) error     { return nil }
func (s failingLoadStore) Load() (*model.IndexPayload, error) { return nil, s.err }

func TestService_Run(t *testing.T) {
	createdAt := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)

	t.Run("applies streamed changes and stops on cancel", func(t *testing.T) {
		lib := library.NewMemoryLibrary()
		lib.Put(testutil.ImageMetadata("a.jpg", createdAt))
		payloads := payload.NewMemoryPayloadStore()

		svc := index.NewService(lib, payloads, index.NewNopLogger(), testutil.FixedClock(), index.Options{
			RebuildInterval: 24 * time.Hour,
			RebuildCheck:    time.Hour,
			PersistDelay:    time.Hour,
		})
		if _, err := svc.BuildFull(context.Background()); err != nil {
			t.Fatalf("BuildFull() error = %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		changes := make(chan model.ChangeSet)
		done := make(chan struct{})
		go func() {
			svc.Run(ctx, changes)
			close(done)
		}()

		lib.Put(testutil.ImageMetadata("b.jpg", createdAt))
		changes <- model.ChangeSet{Inserted: []string{"b.jpg"}}

		// The send is synchronous, so the patch has been applied once a
		// second notification is accepted.
		changes <- model.ChangeSet{}

		refs := svc.TopItems(index.Filter{}, 10)
		if len(refs) != 2 {
			t.Errorf("TopItems() len = %d, want 2", len(refs))
		}

		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Run() did not stop after cancel")
		}

		// Shutdown flushed the pending payload write.
		p, err := payloads.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(p.Entries) != 2 {
			t.Errorf("persisted entries = %d, want 2", len(p.Entries))
		}
	})
}
