// Package blob implements the confidentiality codec for record payloads:
// authenticated encryption with XChaCha20-Poly1305, zstd pre-compression,
// SHA-256 content digests, and the two-call contract against the external
// content-addressed storage network.
//
// The package never talks to a storage network itself; it hands ciphertext
// to whatever Store implementation it is given.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// DigestSize is the byte length of a content digest.
const DigestSize = sha256.Size

var (
	// ErrAuthenticationFailed is returned when a ciphertext, its nonce or
	// the key has been tampered with. Decryption never yields garbage.
	ErrAuthenticationFailed = errors.New("blob: ciphertext authentication failed")
	// ErrNotFound is returned by Store implementations when no content
	// exists for the requested identifier.
	ErrNotFound = errors.New("blob: content not found")
)

// ContentID is the opaque printable identifier under which a ciphertext is
// stored on the storage network.
type ContentID string

// ContentDigest is the SHA-256 digest of a plaintext payload. It is what
// the ledger records and what integrity verification compares against.
type ContentDigest [DigestSize]byte

// Digest computes the content digest of a payload.
func Digest(b []byte) ContentDigest {
	return sha256.Sum256(b)
}

// String returns the digest as lowercase hex.
func (d ContentDigest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest parses a lowercase-hex digest string.
func ParseDigest(s string) (ContentDigest, error) {
	var d ContentDigest
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != DigestSize {
		return d, errors.New("blob: malformed content digest")
	}
	copy(d[:], raw)
	return d, nil
}

// MarshalJSON encodes the digest as lowercase hex.
func (d ContentDigest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a lowercase-hex digest.
func (d *ContentDigest) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDigest(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsZero reports whether the digest is the zero value.
func (d ContentDigest) IsZero() bool {
	return d == ContentDigest{}
}

// Store is the boundary to the content-addressed storage network. Store
// persists opaque bytes and returns their identifier; Fetch retrieves them
// and fails with ErrNotFound for unknown identifiers.
type Store interface {
	Store(ctx context.Context, b []byte) (ContentID, error)
	Fetch(ctx context.Context, id ContentID) ([]byte, error)
}
