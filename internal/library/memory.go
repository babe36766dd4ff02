package library

import (
	"context"
	"sync"

	"pix-go/internal/index"
	"pix-go/internal/model"
)

// MemoryLibrary is an in-memory implementation of index.Library. It is used
// for testing and preserves a stable enumeration order (first-insert order).
// Safe for concurrent use.
type MemoryLibrary struct {
	mu           sync.RWMutex
	assets       map[string]model.AssetMetadata
	order        []string
	enumerateErr error
}

var _ index.Library = (*MemoryLibrary)(nil)

// NewMemoryLibrary creates an empty in-memory library.
func NewMemoryLibrary() *MemoryLibrary {
	return &MemoryLibrary{assets: make(map[string]model.AssetMetadata)}
}

// Put inserts or replaces an asset. A replaced asset keeps its original
// enumeration position.
func (l *MemoryLibrary) Put(m model.AssetMetadata) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.assets[m.AssetID]; !ok {
		l.order = append(l.order, m.AssetID)
	}
	l.assets[m.AssetID] = m
}

// Remove deletes an asset.
func (l *MemoryLibrary) Remove(assetID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.assets[assetID]; !ok {
		return
	}
	delete(l.assets, assetID)
	order := l.order[:0]
	for _, id := range l.order {
		if id != assetID {
			order = append(order, id)
		}
	}
	l.order = order
}

// FailEnumeration makes subsequent EnumerateImages calls fail with err.
// Pass nil to clear.
func (l *MemoryLibrary) FailEnumeration(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enumerateErr = err
}

// Len returns the number of assets of any kind.
func (l *MemoryLibrary) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.assets)
}

// EnumerateImages streams image assets in insertion order.
func (l *MemoryLibrary) EnumerateImages(ctx context.Context, chunkSize int, fn func(chunk []model.AssetMetadata) error) error {
	if chunkSize <= 0 {
		chunkSize = 1
	}

	l.mu.RLock()
	if err := l.enumerateErr; err != nil {
		l.mu.RUnlock()
		return err
	}
	images := make([]model.AssetMetadata, 0, len(l.order))
	for _, id := range l.order {
		if m := l.assets[id]; m.Kind == model.MediaImage {
			images = append(images, m)
		}
	}
	l.mu.RUnlock()

	for len(images) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := chunkSize
		if n > len(images) {
			n = len(images)
		}
		if err := fn(images[:n]); err != nil {
			return err
		}
		images = images[n:]
	}
	return nil
}

// FetchMetadata returns metadata for one asset.
func (l *MemoryLibrary) FetchMetadata(ctx context.Context, assetID string) (model.AssetMetadata, error) {
	if err := ctx.Err(); err != nil {
		return model.AssetMetadata{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.assets[assetID]
	if !ok {
		return model.AssetMetadata{}, index.ErrAssetNotFound
	}
	return m, nil
}
