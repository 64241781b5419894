// Package blobstore provides a badger-backed content-addressed blob store
// implementing the blob.Store contract. It stands in for the external
// storage network in tests, demos and single-node deployments.
//
// Ciphertexts are split with a content-defined (buzhash) chunker; chunks are
// stored under their own digests and a manifest under the blob identifier,
// so identical chunks across blobs are stored once.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"
	chunker "github.com/ipfs/boxo/chunker"
	"github.com/sirupsen/logrus"

	"github.com/nazeerbasha7/Med-Vault/pkg/blob"
)

const contentIDPrefix = "mv1"

var (
	manifestKeyPrefix = []byte("m:")
	chunkKeyPrefix    = []byte("c:")
)

// Config configures the store.
type Config struct {
	// Path is the badger data directory.
	Path string
	// Logger is optional; a default logrus logger is used when nil.
	Logger *logrus.Logger
}

// Store is a local content-addressed blob store.
type Store struct {
	db  *badger.DB
	log *logrus.Logger
}

// New opens the store at the configured path.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("blobstore: path is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = nil
	opts.ValueLogFileSize = 1024 * 1024 * 100
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("blobstore: opening badger at %s: %w", cfg.Path, err)
	}

	return &Store{db: db, log: cfg.Logger}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ContentIDFor returns the identifier the store would assign to b.
func ContentIDFor(b []byte) blob.ContentID {
	sum := sha256.Sum256(b)
	return blob.ContentID(contentIDPrefix + hex.EncodeToString(sum[:]))
}

// Store persists the bytes and returns their content identifier. Storing
// the same bytes twice is a no-op returning the same identifier.
func (s *Store) Store(ctx context.Context, b []byte) (blob.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := ContentIDFor(b)

	chunks, err := chunkBytes(b)
	if err != nil {
		return "", fmt.Errorf("blobstore: chunking payload: %w", err)
	}

	// Manifest is the concatenation of the chunk digests, in order.
	manifest := make([]byte, 0, len(chunks)*sha256.Size)
	chunkKeys := make([][]byte, len(chunks))
	for i, c := range chunks {
		sum := sha256.Sum256(c)
		manifest = append(manifest, sum[:]...)
		chunkKeys[i] = append(append([]byte(nil), chunkKeyPrefix...), sum[:]...)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for i, c := range chunks {
			if _, err := txn.Get(chunkKeys[i]); err == nil {
				continue
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(chunkKeys[i], c); err != nil {
				return err
			}
		}
		return txn.Set(manifestKey(id), manifest)
	})
	if err != nil {
		return "", fmt.Errorf("blobstore: writing blob %s: %w", id, err)
	}

	s.log.WithFields(logrus.Fields{
		"contentId": id,
		"size":      len(b),
		"chunks":    len(chunks),
	}).Debug("stored blob")

	return id, nil
}

// Fetch retrieves the bytes for an identifier, failing with blob.ErrNotFound
// when no such blob exists.
func (s *Store) Fetch(ctx context.Context, id blob.ContentID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(manifestKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return blob.ErrNotFound
		}
		if err != nil {
			return err
		}
		manifest, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if len(manifest)%sha256.Size != 0 {
			return fmt.Errorf("blobstore: manifest for %s has invalid length %d", id, len(manifest))
		}

		for off := 0; off < len(manifest); off += sha256.Size {
			key := append(append([]byte(nil), chunkKeyPrefix...), manifest[off:off+sha256.Size]...)
			chunkItem, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("blobstore: missing chunk for %s: %w", id, blob.ErrNotFound)
			}
			if err != nil {
				return err
			}
			chunk, err := chunkItem.ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, chunk...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func manifestKey(id blob.ContentID) []byte {
	return append(append([]byte(nil), manifestKeyPrefix...), []byte(id)...)
}

func chunkBytes(payload []byte) ([][]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	bz := chunker.NewBuzhash(bytes.NewReader(payload))
	var chunks [][]byte
	for {
		c, err := bz.NextBytes()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
