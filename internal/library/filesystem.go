// Package library adapts externally-owned media collections to the index
// core. The filesystem implementation treats a photo directory tree as the
// collection: image files are assets, identified by their slash-separated
// path relative to the library root.
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pix-go/internal/index"
	"pix-go/internal/model"

	// Header-only decoding for dimension probes; no pixel data is read.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// sidecarSuffix names the per-asset metadata file: for IMG_042.jpg the
// sidecar is IMG_042.jpg.pix.json. Sidecars carry the flags and labels the
// image file itself cannot (hidden, burst state, places, people); producing
// them is an upstream enrichment concern.
const sidecarSuffix = ".pix.json"

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

var videoExts = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".mkv": true,
	".m4v": true,
}

// kindForPath classifies a file by extension.
func kindForPath(path string) model.MediaKind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExts[ext]:
		return model.MediaImage
	case videoExts[ext]:
		return model.MediaVideo
	default:
		return model.MediaOther
	}
}

// FSLibrary is the filesystem implementation of index.Library.
type FSLibrary struct {
	root string
}

var _ index.Library = (*FSLibrary)(nil)

// NewFSLibrary creates a library rooted at the given directory.
func NewFSLibrary(root string) (*FSLibrary, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving library root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat library root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root is not a directory: %s", abs)
	}
	return &FSLibrary{root: abs}, nil
}

// Root returns the absolute library root directory.
func (l *FSLibrary) Root() string { return l.root }

// EnumerateImages walks the library tree and streams image assets in chunks.
// Hidden files and directories (dot-prefixed) and sidecar files are skipped.
func (l *FSLibrary) EnumerateImages(ctx context.Context, chunkSize int, fn func(chunk []model.AssetMetadata) error) error {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	chunk := make([]model.AssetMetadata, 0, chunkSize)

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != l.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, sidecarSuffix) {
			return nil
		}
		if kindForPath(path) != model.MediaImage {
			return nil
		}

		id, err := l.assetID(path)
		if err != nil {
			return err
		}
		chunk = append(chunk, l.readMetadata(path, id))
		if len(chunk) == chunkSize {
			if err := fn(chunk); err != nil {
				return err
			}
			chunk = make([]model.AssetMetadata, 0, chunkSize)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(chunk) > 0 {
		return fn(chunk)
	}
	return nil
}

// FetchMetadata returns current metadata for one asset. A vanished file
// reports index.ErrAssetNotFound.
func (l *FSLibrary) FetchMetadata(ctx context.Context, assetID string) (model.AssetMetadata, error) {
	if err := ctx.Err(); err != nil {
		return model.AssetMetadata{}, err
	}
	if assetID == "" || strings.Contains(assetID, "..") {
		return model.AssetMetadata{}, fmt.Errorf("invalid asset id: %q", assetID)
	}

	path := filepath.Join(l.root, filepath.FromSlash(assetID))
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.AssetMetadata{}, index.ErrAssetNotFound
		}
		return model.AssetMetadata{}, fmt.Errorf("stat asset: %w", err)
	}
	if !info.Mode().IsRegular() {
		return model.AssetMetadata{}, index.ErrAssetNotFound
	}

	return l.readMetadata(path, assetID), nil
}

// assetID derives the stable identifier from an absolute file path.
func (l *FSLibrary) assetID(path string) (string, error) {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return "", fmt.Errorf("relativizing asset path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// readMetadata populates the boundary struct for one asset. Unreadable
// pieces degrade to their zero values rather than failing the asset.
func (l *FSLibrary) readMetadata(path, id string) model.AssetMetadata {
	m := model.AssetMetadata{
		AssetID: id,
		Kind:    kindForPath(path),
	}

	if m.Kind == model.MediaImage {
		w, h := decodeDims(path)
		m.PixelWidth, m.PixelHeight = w, h
	}

	side, ok := readSidecar(path + sidecarSuffix)
	if ok {
		m.Hidden = side.Hidden
		m.Screenshot = side.Screenshot
		m.DepthEffect = side.DepthEffect
		m.Adjustments = side.Adjustments
		m.Burst = side.Burst
		m.BurstUserPick = side.BurstUserPick
		m.BurstAutoPick = side.BurstAutoPick
		m.Places = side.Places
		m.People = side.People
		if side.Latitude != nil && side.Longitude != nil {
			m.HasLocation = true
			m.Latitude = *side.Latitude
			m.Longitude = *side.Longitude
		}
		if t, err := time.Parse(time.RFC3339, side.CreatedAt); err == nil {
			m.CreatedAt = t.Local()
		}
	}

	if !m.Screenshot &&
		strings.HasPrefix(strings.ToLower(filepath.Base(path)), "screenshot") {
		m.Screenshot = true
	}

	if m.CreatedAt.IsZero() {
		if info, err := os.Stat(path); err == nil {
			m.CreatedAt = info.ModTime()
		}
	}

	return m
}

// sidecar mirrors the on-disk JSON format of per-asset metadata files.
type sidecar struct {
	Hidden        bool     `json:"hidden"`
	Screenshot    bool     `json:"screenshot"`
	DepthEffect   bool     `json:"depth_effect"`
	Adjustments   bool     `json:"adjustments"`
	Burst         bool     `json:"burst"`
	BurstUserPick bool     `json:"burst_user_pick"`
	BurstAutoPick bool     `json:"burst_auto_pick"`
	Latitude      *float32 `json:"latitude"`
	Longitude     *float32 `json:"longitude"`
	CreatedAt     string   `json:"created_at"`
	Places        []string `json:"places"`
	People        []string `json:"people"`
}

// readSidecar loads a sidecar file. A missing or malformed sidecar simply
// means the asset carries no labels.
func readSidecar(path string) (sidecar, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sidecar{}, false
	}
	var s sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return sidecar{}, false
	}
	return s, true
}

// decodeDims probes the image header for pixel dimensions. Only the header
// is parsed; decode failures report zero dimensions.
func decodeDims(path string) (uint16, uint16) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return clampDim(cfg.Width), clampDim(cfg.Height)
}

func clampDim(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > int(^uint16(0)) {
		return ^uint16(0)
	}
	return uint16(v)
}
