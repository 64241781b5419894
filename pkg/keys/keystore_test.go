package keys

import (
	"errors"
	"testing"
)

func TestKeystore_SealOpenRoundTrip(t *testing.T) {
	kp, err := GenerateViewerKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	wrapped, err := Wrap(GenerateContentKey(), kp.PublicKey)
	if err != nil {
		t.Fatal(err)
	}

	blob, err := SealPrivateKey(kp, []byte("correct horse"))
	if err != nil {
		t.Fatalf("SealPrivateKey failed: %v", err)
	}

	restored, err := OpenPrivateKey(blob, []byte("correct horse"))
	if err != nil {
		t.Fatalf("OpenPrivateKey failed: %v", err)
	}
	if restored.PublicKey != kp.PublicKey {
		t.Error("public key did not survive the round trip")
	}
	if _, err := Unwrap(wrapped, restored); err != nil {
		t.Errorf("restored key pair failed to unwrap: %v", err)
	}
}

func TestKeystore_WrongPassphrase(t *testing.T) {
	kp, err := GenerateViewerKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	blob, err := SealPrivateKey(kp, []byte("right"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := OpenPrivateKey(blob, []byte("wrong")); !errors.Is(err, ErrKeystoreCorrupt) {
		t.Errorf("expected ErrKeystoreCorrupt, got %v", err)
	}
}

func TestKeystore_TamperedBlob(t *testing.T) {
	kp, err := GenerateViewerKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	blob, err := SealPrivateKey(kp, []byte("pass"))
	if err != nil {
		t.Fatal(err)
	}

	blob[len(blob)-1] ^= 0x80
	if _, err := OpenPrivateKey(blob, []byte("pass")); !errors.Is(err, ErrKeystoreCorrupt) {
		t.Errorf("expected ErrKeystoreCorrupt, got %v", err)
	}
}

func TestWithPrivateKey_ZeroesAfterUse(t *testing.T) {
	kp, err := GenerateViewerKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	wrapped, err := Wrap(GenerateContentKey(), kp.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	blob, err := SealPrivateKey(kp, []byte("pass"))
	if err != nil {
		t.Fatal(err)
	}

	var leaked *ViewerKeyPair
	err = WithPrivateKey(blob, []byte("pass"), func(scoped *ViewerKeyPair) error {
		leaked = scoped
		_, err := Unwrap(wrapped, scoped)
		return err
	})
	if err != nil {
		t.Fatalf("WithPrivateKey failed: %v", err)
	}

	// The escaped reference must be unusable once the scope ends.
	if _, err := Unwrap(wrapped, leaked); err != ErrKeyMismatch {
		t.Errorf("private material survived the scope, got %v", err)
	}
}

func TestWithPrivateKey_PropagatesError(t *testing.T) {
	kp, err := GenerateViewerKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	blob, err := SealPrivateKey(kp, []byte("pass"))
	if err != nil {
		t.Fatal(err)
	}

	sentinel := errors.New("boom")
	if err := WithPrivateKey(blob, []byte("pass"), func(*ViewerKeyPair) error {
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel error, got %v", err)
	}
}
