package index_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"pix-go/internal/index"
	"pix-go/internal/library"
	"pix-go/internal/model"
	"pix-go/internal/payload"
	"pix-go/internal/testutil"
)

// blockingLibrary holds every enumeration until released, so tests can pin a
// build in flight.
type blockingLibrary struct {
	inner   *library.MemoryLibrary
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingLibrary(inner *library.MemoryLibrary) *blockingLibrary {
	return &blockingLibrary{
		inner:   inner,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (l *blockingLibrary) EnumerateImages(ctx context.Context, chunkSize int, fn func(chunk []model.AssetMetadata) error) error {
	l.once.Do(func() { close(l.started) })
	<-l.release
	return l.inner.EnumerateImages(ctx, chunkSize, fn)
}

func (l *blockingLibrary) FetchMetadata(ctx context.Context, assetID string) (model.AssetMetadata, error) {
	return l.inner.FetchMetadata(ctx, assetID)
}

func TestBuilder_BuildFull(t *testing.T) {
	createdAt := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	t.Run("indexes every enumerated asset and persists", func(t *testing.T) {
		lib := library.NewMemoryLibrary()
		lib.Put(testutil.ImageMetadata("a.jpg", createdAt))
		lib.Put(testutil.ImageMetadata("b.jpg", createdAt))
		lib.Put(testutil.ImageMetadata("sub/c.jpg", createdAt))

		store := index.NewStore()
		payloads := payload.NewMemoryPayloadStore()
		clock := testutil.FixedClock()
		b := index.NewBuilder(lib, store, payloads, index.NewNopLogger(), clock, 2)

		count, err := b.BuildFull(context.Background())
		if err != nil {
			t.Fatalf("BuildFull() error = %v", err)
		}
		if count != 3 {
			t.Errorf("BuildFull() count = %d, want 3", count)
		}
		if !store.IsReady() {
			t.Error("store not ready after build")
		}
		if got := store.LastFullBuildAt(); !got.Equal(clock.Now()) {
			t.Errorf("LastFullBuildAt() = %v, want %v", got, clock.Now())
		}
		if payloads.Saves() != 1 {
			t.Errorf("payload saves = %d, want 1", payloads.Saves())
		}
	})

	t.Run("rebuild with identical library is idempotent", func(t *testing.T) {
		lib := library.NewMemoryLibrary()
		lib.Put(testutil.ImageMetadata("a.jpg", createdAt))
		lib.Put(testutil.ImageMetadata("b.jpg", createdAt))

		store := index.NewStore()
		b := index.NewBuilder(lib, store, payload.NewMemoryPayloadStore(), index.NewNopLogger(), testutil.FixedClock(), 0)

		if _, err := b.BuildFull(context.Background()); err != nil {
			t.Fatalf("first BuildFull() error = %v", err)
		}
		first := store.Snapshot().Payload()

		if _, err := b.BuildFull(context.Background()); err != nil {
			t.Fatalf("second BuildFull() error = %v", err)
		}
		second := store.Snapshot().Payload()

		if !reflect.DeepEqual(first.Entries, second.Entries) {
			t.Errorf("entries differ between identical builds:\n%+v\nvs\n%+v", first.Entries, second.Entries)
		}
	})

	t.Run("enumeration failure leaves the store untouched", func(t *testing.T) {
		lib := library.NewMemoryLibrary()
		lib.Put(testutil.ImageMetadata("a.jpg", createdAt))

		store := index.NewStore()
		b := index.NewBuilder(lib, store, payload.NewMemoryPayloadStore(), index.NewNopLogger(), testutil.FixedClock(), 0)

		if _, err := b.BuildFull(context.Background()); err != nil {
			t.Fatalf("BuildFull() error = %v", err)
		}

		lib.Put(testutil.ImageMetadata("b.jpg", createdAt))
		lib.FailEnumeration(errors.New("library unavailable"))

		_, err := b.BuildFull(context.Background())
		var buildErr *index.BuildError
		if !errors.As(err, &buildErr) {
			t.Fatalf("BuildFull() error = %v, want *BuildError", err)
		}

		// The prior build's contents survive a failed rebuild.
		if got := store.Snapshot().Len(); got != 1 {
			t.Errorf("Len() = %d, want 1", got)
		}
	})

	t.Run("cancelled build commits nothing", func(t *testing.T) {
		lib := library.NewMemoryLibrary()
		lib.Put(testutil.ImageMetadata("a.jpg", createdAt))

		store := index.NewStore()
		b := index.NewBuilder(lib, store, payload.NewMemoryPayloadStore(), index.NewNopLogger(), testutil.FixedClock(), 0)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := b.BuildFull(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("BuildFull() error = %v, want context.Canceled", err)
		}
		if store.IsReady() {
			t.Error("cancelled build marked the store ready")
		}
	})

	t.Run("concurrent calls coalesce onto one scan", func(t *testing.T) {
		inner := library.NewMemoryLibrary()
		inner.Put(testutil.ImageMetadata("a.jpg", createdAt))
		lib := newBlockingLibrary(inner)

		store := index.NewStore()
		payloads := payload.NewMemoryPayloadStore()
		b := index.NewBuilder(lib, store, payloads, index.NewNopLogger(), testutil.FixedClock(), 0)

		results := make(chan int, 2)
		run := func() {
			count, err := b.BuildFull(context.Background())
			if err != nil {
				t.Errorf("BuildFull() error = %v", err)
			}
			results <- count
		}

		go run()
		<-lib.started // first call is now scanning
		go run()      // second call must coalesce onto it

		time.Sleep(10 * time.Millisecond)
		close(lib.release)

		for i := 0; i < 2; i++ {
			if count := <-results; count != 1 {
				t.Errorf("BuildFull() count = %d, want 1", count)
			}
		}

		// One scan, one payload write.
		if payloads.Saves() != 1 {
			t.Errorf("payload saves = %d, want 1", payloads.Saves())
		}
	})

	t.Run("payload save failure does not fail the build", func(t *testing.T) {
		lib := library.NewMemoryLibrary()
		lib.Put(testutil.ImageMetadata("a.jpg", createdAt))

		store := index.NewStore()
		payloads := payload.NewMemoryPayloadStore()
		payloads.FailSaves(errors.New("disk full"))
		b := index.NewBuilder(lib, store, payloads, index.NewNopLogger(), testutil.FixedClock(), 0)

		count, err := b.BuildFull(context.Background())
		if err != nil {
			t.Fatalf("BuildFull() error = %v", err)
		}
		if count != 1 {
			t.Errorf("BuildFull() count = %d, want 1", count)
		}
		if !store.IsReady() {
			t.Error("store not ready despite successful commit")
		}
	})
}
