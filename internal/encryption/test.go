package encryption

import (
	"bytes"
	"fmt"
	"io"

	"pix-go/internal/payload"
)

// testHeader is prepended to data by TestCodec to make the stored form
// clearly different from plaintext while remaining deterministic and
// reversible.
var testHeader = []byte("PIXENC\x00\x00")

// TestCodec is a simple, deterministic codec for testing. It prepends a
// fixed 8-byte header during encryption and strips it during decryption, so
// stored payloads differ from plaintext without requiring any crypto.
type TestCodec struct{}

var _ payload.Codec = (*TestCodec)(nil)

// NewTestCodec creates a new TestCodec.
func NewTestCodec() *TestCodec { return &TestCodec{} }

func (*TestCodec) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (*TestCodec) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
