package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pix-go/internal/index"
	"pix-go/internal/model"
)

// FSPayloadStore persists the payload as a single file, JSON-encoded and
// passed through the configured codec. Writes are atomic: data goes to a
// temp file in the same directory and is renamed over the destination, so a
// crash mid-write never leaves a corrupt payload visible to the next load.
type FSPayloadStore struct {
	path  string
	codec Codec
}

var _ index.PayloadStore = (*FSPayloadStore)(nil)

// NewFSPayloadStore creates a store writing to the given file path.
func NewFSPayloadStore(path string, codec Codec) (*FSPayloadStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create payload directory: %w", err)
	}
	return &FSPayloadStore{path: path, codec: codec}, nil
}

// Save writes the payload, replacing any previous one.
func (s *FSPayloadStore) Save(p *model.IndexPayload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := s.codec.Encrypt(bytes.NewReader(data), tmpFile); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write payload: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Load reads the previously saved payload. Returns (nil, nil) when no
// payload file exists.
func (s *FSPayloadStore) Load() (*model.IndexPayload, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open payload: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := s.codec.Decrypt(f, &buf); err != nil {
		return nil, fmt.Errorf("decoding stored payload: %w", err)
	}

	var p model.IndexPayload
	if err := json.Unmarshal(buf.Bytes(), &p); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	if p.SchemaVersion != model.SchemaVersion {
		return nil, fmt.Errorf("payload schema version %d, want %d", p.SchemaVersion, model.SchemaVersion)
	}
	return &p, nil
}
