package encryption

import (
	"fmt"
	"io"

	"pix-go/internal/payload"
)

// NopCodec passes payload bytes through unchanged. The default when the
// payload is not encrypted at rest.
type NopCodec struct{}

var _ payload.Codec = (*NopCodec)(nil)

// NewNopCodec creates a new NopCodec.
func NewNopCodec() *NopCodec { return &NopCodec{} }

func (*NopCodec) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (*NopCodec) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
