package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for pix.
type Config struct {
	InstallID  string           `toml:"install_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Library    LibraryConfig    `toml:"library"`
	Payload    PayloadConfig    `toml:"payload"`
	Encryption EncryptionConfig `toml:"encryption"`
	Index      IndexConfig      `toml:"index"`
}

// LibraryConfig selects the media library backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type LibraryConfig struct {
	Type string `toml:"type"` // "filesystem" or "memory"

	// Filesystem-specific fields (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`
}

// PayloadConfig selects where the persisted index payload lives.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type PayloadConfig struct {
	Type string `toml:"type"` // "filesystem", "sqlite", or "memory"

	// Filesystem-specific fields (only used when Type == "filesystem")
	Path string `toml:"path,omitempty"`

	// SQLite-specific fields (only used when Type == "sqlite")
	DataDir string `toml:"data_dir,omitempty"`
}

// EncryptionConfig selects at-rest encryption for the payload. The payload
// can carry photo GPS coordinates, so encrypting the cache is supported.
type EncryptionConfig struct {
	Type         string `toml:"type"` // "none" (default), "age", or "test"
	IdentityPath string `toml:"identity_path,omitempty"`
}

// IndexConfig tunes the index service.
type IndexConfig struct {
	ChunkSize           int `toml:"chunk_size"`            // builder chunk size; 0 = default
	RebuildIntervalDays int `toml:"rebuild_interval_days"` // 0 = monthly default
	WatchDebounceMS     int `toml:"watch_debounce_ms"`     // 0 = default
	PersistDelayMS      int `toml:"persist_delay_ms"`      // 0 = default
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(installID, baseDir, libraryRoot string) *Config {
	return &Config{
		InstallID: installID,
		BaseDir:   baseDir,
		LogDir:    filepath.Join(baseDir, "log"),
		Library: LibraryConfig{
			Type: "filesystem",
			Root: libraryRoot,
		},
		Payload: PayloadConfig{
			Type: "filesystem",
			Path: filepath.Join(baseDir, "cache", "index.json"),
		},
		Encryption: EncryptionConfig{
			Type:         "none",
			IdentityPath: filepath.Join(baseDir, "keys", "pix.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
