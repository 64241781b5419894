package blobstore

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/nazeerbasha7/Med-Vault/internal/testutil"
	"github.com/nazeerbasha7/Med-Vault/pkg/blob"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing store: %v", err)
		}
	})
	return s
}

func TestStoreFetch_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payload := []byte("encrypted record bytes")
	id, err := s.Store(ctx, payload)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if id != ContentIDFor(payload) {
		t.Error("identifier should be content-derived")
	}

	got, err := s.Fetch(ctx, id)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("fetched payload does not match stored payload")
	}
}

func TestStore_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payload := []byte("same bytes")
	id1, err := s.Store(ctx, payload)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.Store(ctx, payload)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Errorf("storing identical bytes should yield one identifier: %s != %s", id1, id2)
	}
}

func TestFetch_Missing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Fetch(context.Background(), blob.ContentID("mv1deadbeef"))
	if !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("expected blob.ErrNotFound, got %v", err)
	}
}

func TestStoreFetch_LargePayload(t *testing.T) {
	testutil.RequireLong(t)

	s := newTestStore(t)
	ctx := context.Background()

	// Large enough to force multiple buzhash chunks.
	payload := make([]byte, 4*1024*1024)
	for i := range payload {
		payload[i] = byte(i * 31)
	}

	id, err := s.Store(ctx, payload)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	got, err := s.Fetch(ctx, id)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("large payload mismatch after round trip")
	}
}

func TestStore_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Store(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
