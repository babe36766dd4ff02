// Package encryption provides payload codecs. The age codec encrypts the
// persisted index payload at rest; the payload carries photo GPS
// coordinates, so the cache can be locked to a local key.
package encryption

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"filippo.io/age"

	"pix-go/internal/payload"
)

// PassphraseFunc asks the user for a passphrase. Wired to a terminal prompt
// in the CLI; nil means passphrase-protected keys cannot be unlocked.
type PassphraseFunc func(prompt string) (string, error)

// ageHeader marks data produced by age, used to detect whether an identity
// file is itself passphrase-protected.
const ageHeader = "age-encryption.org/v1"

// AgeCodec implements payload.Codec using filippo.io/age with an X25519
// identity file. The identity file may be passphrase-protected with age's
// scrypt encryption, in which case unlocking prompts once and caches the
// identity for the process lifetime.
type AgeCodec struct {
	identityPath string
	prompt       PassphraseFunc

	mu       sync.Mutex
	identity *age.X25519Identity
}

var _ payload.Codec = (*AgeCodec)(nil)

// NewAgeCodec creates a codec reading its identity from identityPath.
func NewAgeCodec(identityPath string, prompt PassphraseFunc) *AgeCodec {
	return &AgeCodec{identityPath: identityPath, prompt: prompt}
}

// Encrypt writes age ciphertext for r to w using the identity's recipient.
func (c *AgeCodec) Encrypt(r io.Reader, w io.Writer) error {
	identity, err := c.load()
	if err != nil {
		return err
	}

	encWriter, err := age.Encrypt(w, identity.Recipient())
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Decrypt reads age ciphertext from r and writes plaintext to w.
func (c *AgeCodec) Decrypt(r io.Reader, w io.Writer) error {
	identity, err := c.load()
	if err != nil {
		return err
	}

	decReader, err := age.Decrypt(r, identity)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}

// load reads and caches the identity, unlocking it if passphrase-protected.
func (c *AgeCodec) load() (*age.X25519Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity != nil {
		return c.identity, nil
	}

	data, err := os.ReadFile(c.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	if bytes.HasPrefix(data, []byte(ageHeader)) {
		data, err = c.unlock(data)
		if err != nil {
			return nil, err
		}
	}

	identity, err := parseIdentity(data)
	if err != nil {
		return nil, fmt.Errorf("parsing identity from %s: %w", c.identityPath, err)
	}

	c.identity = identity
	return identity, nil
}

// unlock decrypts a passphrase-protected identity file.
func (c *AgeCodec) unlock(data []byte) ([]byte, error) {
	if c.prompt == nil {
		return nil, fmt.Errorf("identity file is passphrase-protected and no prompt is available")
	}

	passphrase, err := c.prompt("Payload key passphrase: ")
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}

	scrypt, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	decReader, err := age.Decrypt(bytes.NewReader(data), scrypt)
	if err != nil {
		return nil, fmt.Errorf("unlocking identity file: %w", err)
	}

	plain, err := io.ReadAll(decReader)
	if err != nil {
		return nil, fmt.Errorf("reading unlocked identity: %w", err)
	}
	return plain, nil
}

// parseIdentity finds the first X25519 identity line in the key file.
func parseIdentity(data []byte) (*age.X25519Identity, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return age.ParseX25519Identity(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("no identity found in key file")
}

// GenerateIdentity creates a new X25519 identity file at path. A non-empty
// passphrase wraps the file with age's scrypt encryption.
func GenerateIdentity(path, passphrase string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("identity file already exists at %s", path)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	keyText := identity.String() + "\n"

	if passphrase == "" {
		if err := os.WriteFile(path, []byte(keyText), 0600); err != nil {
			return fmt.Errorf("writing identity file: %w", err)
		}
		return nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	defer f.Close()

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	w, err := age.Encrypt(f, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, keyText); err != nil {
		return fmt.Errorf("writing encrypted identity: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted identity: %w", err)
	}
	return nil
}
