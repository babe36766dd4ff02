package encryption

import (
	"fmt"

	"pix-go/internal/config"
	"pix-go/internal/payload"
)

// NewCodecFromConfig creates a Codec based on the configuration type.
func NewCodecFromConfig(cfg config.EncryptionConfig, prompt PassphraseFunc) (payload.Codec, error) {
	switch cfg.Type {
	case "none", "":
		return NewNopCodec(), nil
	case "age":
		if cfg.IdentityPath == "" {
			return nil, fmt.Errorf("age encryption requires identity_path to be set")
		}
		return NewAgeCodec(cfg.IdentityPath, prompt), nil
	case "test":
		return NewTestCodec(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
