package keys

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// At-rest format for a viewer private key:
//
//	version(1) | salt(16) | nonce(24) | box(priv||pub + tag)
//
// The encryption key is derived from the owner's passphrase with
// HKDF-SHA256. The private key is never persisted in plaintext.

const (
	keystoreVersion  = 1
	keystoreSaltSize = 16
)

var keystoreInfo = []byte("medvault/keystore/v1")

// ErrKeystoreCorrupt is returned when an at-rest blob cannot be parsed or
// fails authentication. A wrong passphrase is indistinguishable from a
// tampered blob.
var ErrKeystoreCorrupt = errors.New("keys: keystore blob corrupt or wrong passphrase")

// SealPrivateKey encrypts the key pair's private material under a
// passphrase for at-rest storage.
func SealPrivateKey(kp *ViewerKeyPair, passphrase []byte) ([]byte, error) {
	if kp == nil {
		return nil, errors.New("keys: nil key pair")
	}
	if len(passphrase) == 0 {
		return nil, errors.New("keys: empty passphrase")
	}

	salt := make([]byte, keystoreSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keys: drawing keystore salt: %w", err)
	}

	aead, err := deriveKeystoreAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("keys: drawing keystore nonce: %w", err)
	}

	plain := make([]byte, 0, PrivateKeySize+PublicKeySize)
	plain = append(plain, kp.privateKey[:]...)
	plain = append(plain, kp.PublicKey[:]...)

	out := make([]byte, 0, 1+keystoreSaltSize+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, keystoreVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plain, nil)
	zero(plain)
	return out, nil
}

// OpenPrivateKey decrypts an at-rest blob back into a usable key pair.
// Callers should prefer WithPrivateKey, which guarantees the material is
// wiped after use.
func OpenPrivateKey(blob, passphrase []byte) (*ViewerKeyPair, error) {
	minLen := 1 + keystoreSaltSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(blob) < minLen {
		return nil, ErrKeystoreCorrupt
	}
	if blob[0] != keystoreVersion {
		return nil, fmt.Errorf("keys: unsupported keystore version %d", blob[0])
	}

	salt := blob[1 : 1+keystoreSaltSize]
	nonce := blob[1+keystoreSaltSize : 1+keystoreSaltSize+chacha20poly1305.NonceSizeX]
	box := blob[1+keystoreSaltSize+chacha20poly1305.NonceSizeX:]

	aead, err := deriveKeystoreAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	plain, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, ErrKeystoreCorrupt
	}
	if len(plain) != PrivateKeySize+PublicKeySize {
		zero(plain)
		return nil, ErrKeystoreCorrupt
	}

	kp, err := NewViewerKeyPair(plain[PrivateKeySize:], plain[:PrivateKeySize])
	zero(plain)
	return kp, err
}

// WithPrivateKey opens an at-rest blob, hands the key pair to fn for the
// duration of one operation, and wipes the private material afterwards
// regardless of the outcome.
func WithPrivateKey(blob, passphrase []byte, fn func(kp *ViewerKeyPair) error) error {
	kp, err := OpenPrivateKey(blob, passphrase)
	if err != nil {
		return err
	}
	defer kp.Zero()
	return fn(kp)
}

func deriveKeystoreAEAD(passphrase, salt []byte) (cipher.AEAD, error) {
	kdf := hkdf.New(sha256.New, passphrase, salt, keystoreInfo)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("keys: deriving keystore key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	zero(key)
	if err != nil {
		return nil, err
	}
	return aead, nil
}
