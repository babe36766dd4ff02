package payload

import (
	"fmt"
	"os"
	"path/filepath"

	"pix-go/internal/config"
	"pix-go/internal/index"
)

// NewPayloadStoreFromConfig creates a PayloadStore implementation based on
// the payload config type. The codec only applies to the filesystem store;
// the SQLite store keeps its own file format.
func NewPayloadStoreFromConfig(cfg config.PayloadConfig, codec Codec) (index.PayloadStore, error) {
	switch cfg.Type {
	case "filesystem", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("filesystem payload store requires path to be set")
		}
		return NewFSPayloadStore(cfg.Path, codec)
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite payload store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create payload data directory: %w", err)
		}
		return NewSQLitePayloadStore(filepath.Join(cfg.DataDir, "index.db"))
	case "memory":
		return NewMemoryPayloadStore(), nil
	default:
		return nil, fmt.Errorf("unknown payload store type: %s", cfg.Type)
	}
}
