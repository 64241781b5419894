// Package keys implements the key management layer of the MedVault core:
// per-record symmetric content keys, Curve25519 viewer key pairs, and the
// sealed-box wrapping that makes a content key readable by exactly one
// viewer.
//
// A ContentKey exists in plaintext only inside the authoring or viewing
// process. Everything that leaves the process is a WrappedKey, produced with
// anonymous seal semantics: the sender needs no key pair of its own, only
// the recipient's public key.
package keys

import (
	"crypto/rand"
	"errors"
	"log"

	"golang.org/x/crypto/nacl/box"
)

const (
	// ContentKeySize is the byte length of a symmetric content key.
	ContentKeySize = 32
	// PublicKeySize is the byte length of a viewer public key.
	PublicKeySize = 32
	// PrivateKeySize is the byte length of a viewer private key.
	PrivateKeySize = 32
)

// ErrKeyMismatch is returned by Unwrap when the wrapped key was not produced
// for the presented key pair. The check is the authenticated-decryption
// failure itself, not a separate comparison.
var ErrKeyMismatch = errors.New("keys: wrapped key was not produced for this key pair")

// ContentKey is a fixed-length symmetric secret, one per record.
type ContentKey [ContentKeySize]byte

// WrappedKey is a ContentKey sealed to one viewer's public key.
type WrappedKey []byte

// ViewerKeyPair is the asymmetric pair owned by one principal. The public
// key is published on the ledger; the private key never leaves the owning
// principal and is only held in memory for the duration of an unwrap.
type ViewerKeyPair struct {
	PublicKey  [PublicKeySize]byte
	privateKey [PrivateKeySize]byte
}

// GenerateContentKey returns a fresh symmetric key from the platform CSPRNG.
// An unavailable random source is a process-level failure.
func GenerateContentKey() ContentKey {
	var k ContentKey
	if _, err := rand.Read(k[:]); err != nil {
		log.Fatalf("keys: platform random source unavailable: %v", err)
	}
	return k
}

// GenerateViewerKeyPair returns a fresh Curve25519 key pair suitable for
// anonymous sealed-box encryption.
func GenerateViewerKeyPair() (*ViewerKeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	kp := &ViewerKeyPair{PublicKey: *pub, privateKey: *priv}
	zero(priv[:])
	return kp, nil
}

// NewViewerKeyPair reconstructs a key pair from raw key material, for
// example after opening an at-rest keystore blob. The caller's copy of the
// private key should be zeroed afterwards.
func NewViewerKeyPair(pub, priv []byte) (*ViewerKeyPair, error) {
	if len(pub) != PublicKeySize || len(priv) != PrivateKeySize {
		return nil, errors.New("keys: invalid key material length")
	}
	kp := &ViewerKeyPair{}
	copy(kp.PublicKey[:], pub)
	copy(kp.privateKey[:], priv)
	return kp, nil
}

// Wrap seals a content key to the recipient's public key. Fresh randomness
// is drawn on every call, so wrapping the same key twice yields different
// ciphertexts.
func Wrap(key ContentKey, recipientPublicKey [PublicKeySize]byte) (WrappedKey, error) {
	sealed, err := box.SealAnonymous(nil, key[:], &recipientPublicKey, rand.Reader)
	if err != nil {
		return nil, err
	}
	return WrappedKey(sealed), nil
}

// Unwrap opens a wrapped key with the viewer's key pair. A wrapped key
// produced for a different key pair fails with ErrKeyMismatch.
func Unwrap(wrapped WrappedKey, kp *ViewerKeyPair) (ContentKey, error) {
	var key ContentKey
	if kp == nil {
		return key, ErrKeyMismatch
	}
	opened, ok := box.OpenAnonymous(nil, wrapped, &kp.PublicKey, &kp.privateKey)
	if !ok {
		return key, ErrKeyMismatch
	}
	if len(opened) != ContentKeySize {
		zero(opened)
		return key, ErrKeyMismatch
	}
	copy(key[:], opened)
	zero(opened)
	return key, nil
}

// Zero wipes the private half of the key pair. The pair is unusable for
// unwrapping afterwards.
func (kp *ViewerKeyPair) Zero() {
	zero(kp.privateKey[:])
}

// Zero wipes the content key.
func (k *ContentKey) Zero() {
	zero(k[:])
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
