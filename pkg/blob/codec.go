package blob

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/nazeerbasha7/Med-Vault/pkg/keys"
)

// NonceSize is the byte length of an encryption nonce.
const NonceSize = chacha20poly1305.NonceSizeX

// Encrypt compresses and then encrypts a plaintext under the content key.
// A fresh random nonce is drawn on every call; a nonce must never be reused
// with the same key, and the extended nonce size makes random generation
// safe for that.
func Encrypt(key keys.ContentKey, plaintext []byte) (nonce, ciphertext []byte, err error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, nil, fmt.Errorf("blob: creating cipher: %w", err)
	}

	compressed, err := compressWithZstd(plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("blob: compressing payload: %w", err)
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("blob: drawing nonce: %w", err)
	}

	ciphertext = aead.Seal(nil, nonce, compressed, nil)
	return nonce, ciphertext, nil
}

// Decrypt authenticates and decrypts a ciphertext, then decompresses it.
// Any tampering with ciphertext or nonce, or a wrong key, fails hard with
// ErrAuthenticationFailed.
func Decrypt(key keys.ContentKey, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("blob: creating cipher: %w", err)
	}
	if len(nonce) != NonceSize {
		return nil, ErrAuthenticationFailed
	}

	compressed, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	plaintext, err := decompressWithZstd(compressed)
	if err != nil {
		return nil, fmt.Errorf("blob: decompressing payload: %w", err)
	}
	return plaintext, nil
}

// Sealed describes an encrypted payload after it has been handed to the
// storage network: where it lives, the nonce needed to open it, and the
// plaintext digest the ledger records.
type Sealed struct {
	ContentID ContentID
	Nonce     []byte
	Digest    ContentDigest
	Size      int
}

// SealAndStore encrypts a payload and stores the ciphertext, returning
// everything the ledger adapter needs to persist the record.
func SealAndStore(ctx context.Context, st Store, key keys.ContentKey, plaintext []byte) (Sealed, error) {
	nonce, ciphertext, err := Encrypt(key, plaintext)
	if err != nil {
		return Sealed{}, err
	}

	id, err := st.Store(ctx, ciphertext)
	if err != nil {
		return Sealed{}, fmt.Errorf("blob: storing ciphertext: %w", err)
	}

	return Sealed{
		ContentID: id,
		Nonce:     nonce,
		Digest:    Digest(plaintext),
		Size:      len(plaintext),
	}, nil
}

// FetchAndOpen retrieves a ciphertext, decrypts it and verifies the
// plaintext against the expected digest. A digest mismatch after a
// successful decryption means the ledger and the store disagree and is
// reported as ErrAuthenticationFailed.
func FetchAndOpen(ctx context.Context, st Store, key keys.ContentKey, id ContentID, nonce []byte, want ContentDigest) ([]byte, error) {
	ciphertext, err := st.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	plaintext, err := Decrypt(key, nonce, ciphertext)
	if err != nil {
		return nil, err
	}

	if !want.IsZero() && Digest(plaintext) != want {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

func compressWithZstd(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err = enc.Write(data); err != nil {
		return nil, err
	}
	if err = enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressWithZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}
