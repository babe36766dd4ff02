package library

import (
	"fmt"

	"pix-go/internal/config"
	"pix-go/internal/index"
)

// NewLibraryFromConfig creates a Library implementation based on the library config type.
func NewLibraryFromConfig(cfg config.LibraryConfig) (index.Library, error) {
	switch cfg.Type {
	case "filesystem", "":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem library requires root to be set")
		}
		return NewFSLibrary(cfg.Root)
	case "memory":
		return NewMemoryLibrary(), nil
	default:
		return nil, fmt.Errorf("unknown library type: %s", cfg.Type)
	}
}
