// Package index implements the on-device photo index and scoring service:
// a full-scan builder, an incremental updater driven by library change
// notifications, a snapshot-consistent in-memory store with a persisted
// mirror, and the read-only query surface used for collage assembly.
package index

import (
	"context"
	"errors"

	"pix-go/internal/model"
)

// ErrAssetNotFound is returned by Library.FetchMetadata when the asset
// vanished between a change notification and the metadata fetch. The updater
// treats it as a deletion, not an error.
var ErrAssetNotFound = errors.New("asset not found in library")

// Library is the externally-owned media collection the index derives from.
// Implementations translate whatever the source platform exposes into
// model.AssetMetadata at the boundary.
type Library interface {
	// EnumerateImages streams every eligible image asset in chunks of at
	// most chunkSize, calling fn once per chunk. Enumeration stops at the
	// first error returned by fn.
	EnumerateImages(ctx context.Context, chunkSize int, fn func(chunk []model.AssetMetadata) error) error

	// FetchMetadata returns current metadata for a single asset.
	// Returns ErrAssetNotFound if the asset no longer exists.
	FetchMetadata(ctx context.Context, assetID string) (model.AssetMetadata, error)
}

// PayloadStore persists the index payload between process lifetimes.
// Save must be atomic: a crash mid-write never leaves a corrupt payload
// visible to the next Load.
type PayloadStore interface {
	// Save writes the payload, replacing any previous one.
	Save(p *model.IndexPayload) error

	// Load reads the previously saved payload. Returns (nil, nil) when no
	// payload exists, and an error when one exists but cannot be used
	// (decode failure, schema version mismatch). Callers degrade both
	// cases to an empty index.
	Load() (*model.IndexPayload, error)
}
