package library_test

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pix-go/internal/index"
	"pix-go/internal/library"
	"pix-go/internal/model"
)

// writePNG writes a real PNG file so dimension probing has a header to read.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func enumerateAll(t *testing.T, lib *library.FSLibrary, chunkSize int) []model.AssetMetadata {
	t.Helper()
	var all []model.AssetMetadata
	err := lib.EnumerateImages(context.Background(), chunkSize, func(chunk []model.AssetMetadata) error {
		all = append(all, chunk...)
		return nil
	})
	if err != nil {
		t.Fatalf("EnumerateImages() error = %v", err)
	}
	return all
}

func TestFSLibrary_EnumerateImages(t *testing.T) {
	t.Run("finds images across subdirectories with slash ids", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "top.png"), 10, 10)
		writePNG(t, filepath.Join(root, "trips", "rome.png"), 10, 10)

		lib, err := library.NewFSLibrary(root)
		if err != nil {
			t.Fatalf("NewFSLibrary() error = %v", err)
		}

		assets := enumerateAll(t, lib, 100)
		if len(assets) != 2 {
			t.Fatalf("found %d assets, want 2", len(assets))
		}

		ids := map[string]bool{}
		for _, m := range assets {
			ids[m.AssetID] = true
		}
		if !ids["top.png"] || !ids["trips/rome.png"] {
			t.Errorf("ids = %v, want top.png and trips/rome.png", ids)
		}
	})

	t.Run("skips dot files, dot directories, sidecars, and non-images", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "keep.png"), 4, 4)
		writePNG(t, filepath.Join(root, ".hidden.png"), 4, 4)
		writePNG(t, filepath.Join(root, ".thumbs", "cached.png"), 4, 4)
		writeFile(t, filepath.Join(root, "keep.png.pix.json"), `{}`)
		writeFile(t, filepath.Join(root, "notes.txt"), "not an image")
		writeFile(t, filepath.Join(root, "clip.mov"), "not enumerated")

		lib, err := library.NewFSLibrary(root)
		if err != nil {
			t.Fatalf("NewFSLibrary() error = %v", err)
		}

		assets := enumerateAll(t, lib, 100)
		if len(assets) != 1 || assets[0].AssetID != "keep.png" {
			t.Errorf("assets = %+v, want just keep.png", assets)
		}
	})

	t.Run("delivers fixed-size chunks", func(t *testing.T) {
		root := t.TempDir()
		for _, name := range []string{"a.png", "b.png", "c.png", "d.png", "e.png"} {
			writePNG(t, filepath.Join(root, name), 4, 4)
		}

		lib, err := library.NewFSLibrary(root)
		if err != nil {
			t.Fatalf("NewFSLibrary() error = %v", err)
		}

		var sizes []int
		err = lib.EnumerateImages(context.Background(), 2, func(chunk []model.AssetMetadata) error {
			sizes = append(sizes, len(chunk))
			return nil
		})
		if err != nil {
			t.Fatalf("EnumerateImages() error = %v", err)
		}
		if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
			t.Errorf("chunk sizes = %v, want [2 2 1]", sizes)
		}
	})

	t.Run("reads pixel dimensions from the header", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "wide.png"), 320, 200)

		lib, _ := library.NewFSLibrary(root)
		assets := enumerateAll(t, lib, 10)
		if len(assets) != 1 {
			t.Fatalf("found %d assets, want 1", len(assets))
		}
		if assets[0].PixelWidth != 320 || assets[0].PixelHeight != 200 {
			t.Errorf("dimensions = %dx%d, want 320x200", assets[0].PixelWidth, assets[0].PixelHeight)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "a.png"), 4, 4)

		lib, _ := library.NewFSLibrary(root)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := lib.EnumerateImages(ctx, 10, func([]model.AssetMetadata) error { return nil })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("EnumerateImages() error = %v, want context.Canceled", err)
		}
	})
}

func TestFSLibrary_FetchMetadata(t *testing.T) {
	ctx := context.Background()

	t.Run("vanished asset reports not found", func(t *testing.T) {
		lib, _ := library.NewFSLibrary(t.TempDir())

		_, err := lib.FetchMetadata(ctx, "gone.png")
		if !errors.Is(err, index.ErrAssetNotFound) {
			t.Errorf("FetchMetadata() error = %v, want ErrAssetNotFound", err)
		}
	})

	t.Run("rejects path traversal ids", func(t *testing.T) {
		lib, _ := library.NewFSLibrary(t.TempDir())

		if _, err := lib.FetchMetadata(ctx, "../outside.png"); err == nil {
			t.Error("FetchMetadata() error = nil for traversal id")
		}
	})

	t.Run("applies the sidecar when present", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "tagged.png"), 8, 8)
		writeFile(t, filepath.Join(root, "tagged.png.pix.json"), `{
			"hidden": false,
			"depth_effect": true,
			"adjustments": true,
			"burst": true,
			"burst_user_pick": true,
			"latitude": 48.85,
			"longitude": 2.35,
			"created_at": "2022-07-14T10:00:00Z",
			"places": ["Paris"],
			"people": ["Lea"]
		}`)

		lib, _ := library.NewFSLibrary(root)
		m, err := lib.FetchMetadata(ctx, "tagged.png")
		if err != nil {
			t.Fatalf("FetchMetadata() error = %v", err)
		}

		if !m.DepthEffect || !m.Adjustments || !m.Burst || !m.BurstUserPick {
			t.Errorf("flags not applied: %+v", m)
		}
		if !m.HasLocation || m.Latitude != 48.85 || m.Longitude != 2.35 {
			t.Errorf("location not applied: %+v", m)
		}
		if got := m.CreatedAt.UTC(); !got.Equal(time.Date(2022, 7, 14, 10, 0, 0, 0, time.UTC)) {
			t.Errorf("CreatedAt = %v, want 2022-07-14T10:00:00Z", got)
		}
		if len(m.Places) != 1 || m.Places[0] != "Paris" {
			t.Errorf("Places = %v", m.Places)
		}
		if len(m.People) != 1 || m.People[0] != "Lea" {
			t.Errorf("People = %v", m.People)
		}
	})

	t.Run("location requires both coordinates", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "half.png"), 8, 8)
		writeFile(t, filepath.Join(root, "half.png.pix.json"), `{"latitude": 10.0}`)

		lib, _ := library.NewFSLibrary(root)
		m, err := lib.FetchMetadata(ctx, "half.png")
		if err != nil {
			t.Fatalf("FetchMetadata() error = %v", err)
		}
		if m.HasLocation {
			t.Error("HasLocation = true with only a latitude")
		}
	})

	t.Run("malformed sidecar degrades to no labels", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "plain.png"), 8, 8)
		writeFile(t, filepath.Join(root, "plain.png.pix.json"), "{broken")

		lib, _ := library.NewFSLibrary(root)
		m, err := lib.FetchMetadata(ctx, "plain.png")
		if err != nil {
			t.Fatalf("FetchMetadata() error = %v", err)
		}
		if m.Hidden || len(m.Places) != 0 || len(m.People) != 0 {
			t.Errorf("malformed sidecar leaked data: %+v", m)
		}
	})

	t.Run("screenshot filenames are flagged", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "Screenshot 2024-05-01.png"), 8, 8)

		lib, _ := library.NewFSLibrary(root)
		m, err := lib.FetchMetadata(ctx, "Screenshot 2024-05-01.png")
		if err != nil {
			t.Fatalf("FetchMetadata() error = %v", err)
		}
		if !m.Screenshot {
			t.Error("Screenshot = false for a screenshot filename")
		}
	})

	t.Run("creation time falls back to file modification time", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, "old.png")
		writePNG(t, path, 8, 8)

		mtime := time.Date(2020, 3, 15, 6, 0, 0, 0, time.UTC)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("Chtimes() error = %v", err)
		}

		lib, _ := library.NewFSLibrary(root)
		m, err := lib.FetchMetadata(ctx, "old.png")
		if err != nil {
			t.Fatalf("FetchMetadata() error = %v", err)
		}
		if !m.CreatedAt.Equal(mtime) {
			t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, mtime)
		}
	})
}

func TestNewFSLibrary(t *testing.T) {
	t.Run("rejects a missing root", func(t *testing.T) {
		if _, err := library.NewFSLibrary(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("NewFSLibrary() error = nil for missing root")
		}
	})

	t.Run("rejects a file root", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		writeFile(t, path, "x")
		if _, err := library.NewFSLibrary(path); err == nil {
			t.Error("NewFSLibrary() error = nil for file root")
		}
	})
}
