// Package payload persists the index payload between process lifetimes.
// Every implementation satisfies index.PayloadStore: saves are atomic, and
// an unusable payload (missing, corrupt, wrong schema version) degrades to
// "no index" rather than an error the caller must handle.
package payload

import "io"

// Codec transforms payload bytes on their way to and from storage. The
// filesystem store uses it for at-rest encryption of the payload, which can
// contain photo GPS coordinates.
type Codec interface {
	// Encrypt reads plaintext from r and writes the stored form to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Decrypt reads the stored form from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
