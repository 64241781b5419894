// Package wallet signs and submits ledger transactions on behalf of a
// local account. The LocalWallet keeps an ed25519 key in memory and
// hands signed payloads to an injectable submit function, so the same
// wallet works against a real node and against test fakes.
package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
)

// ErrNotConnected is returned by operations that need an unlocked account.
var ErrNotConnected = errors.New("wallet: not connected")

// SeedEnvVar names the environment variable holding the hex seed of the
// local account key.
const SeedEnvVar = "MEDVAULT_WALLET_SEED"

// Wallet is an account that can authorize ledger writes.
type Wallet interface {
	// Connect unlocks the wallet. It must be called before Account or
	// SignAndSubmit.
	Connect(ctx context.Context) error
	// Account returns the address of the unlocked account.
	Account() (ledger.Address, error)
	// SignAndSubmit signs the call with the account key and submits it.
	SignAndSubmit(ctx context.Context, call ledger.EntryCall) (ledger.TxHandle, error)
}

// SignedPayload is what a SubmitFunc receives: the serialized call, the
// signature over it and the signing account.
type SignedPayload struct {
	Sender    ledger.Address
	Call      ledger.EntryCall
	Message   []byte
	Signature []byte
	PublicKey ed25519.PublicKey
}

// SubmitFunc delivers a signed payload to a node and returns the
// transaction handle the node assigned.
type SubmitFunc func(ctx context.Context, p SignedPayload) (ledger.TxHandle, error)

// LocalWallet holds an ed25519 account key in process memory.
type LocalWallet struct {
	mu        sync.Mutex
	priv      ed25519.PrivateKey
	addr      ledger.Address
	connected bool

	submit SubmitFunc
	log    *slog.Logger
}

var _ Wallet = (*LocalWallet)(nil)
var _ ledger.Submitter = (*LocalWallet)(nil)

// Option configures a LocalWallet.
type Option func(*LocalWallet)

// WithLogger sets the wallet logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *LocalWallet) { w.log = l }
}

// NewLocalWallet creates a wallet around the given ed25519 seed. The
// submit function is called for every signed transaction.
func NewLocalWallet(seed []byte, submit SubmitFunc, opts ...Option) (*LocalWallet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("wallet: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	if submit == nil {
		return nil, errors.New("wallet: submit function is required")
	}
	w := &LocalWallet{
		priv:   ed25519.NewKeyFromSeed(seed),
		submit: submit,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.addr = DeriveAddress(w.priv.Public().(ed25519.PublicKey))
	return w, nil
}

// GenerateLocalWallet creates a wallet with a fresh random key.
func GenerateLocalWallet(submit SubmitFunc, opts ...Option) (*LocalWallet, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("wallet: generating seed: %w", err)
	}
	return NewLocalWallet(seed, submit, opts...)
}

// FromEnv builds a wallet from the hex seed in SeedEnvVar.
func FromEnv(submit SubmitFunc, opts ...Option) (*LocalWallet, error) {
	raw := os.Getenv(SeedEnvVar)
	if raw == "" {
		return nil, fmt.Errorf("wallet: %s is not set", SeedEnvVar)
	}
	seed, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("wallet: decoding %s: %w", SeedEnvVar, err)
	}
	return NewLocalWallet(seed, submit, opts...)
}

// DeriveAddress maps a public key onto its account address.
func DeriveAddress(pub ed25519.PublicKey) ledger.Address {
	sum := sha256.Sum256(pub)
	return ledger.Address("0x" + hex.EncodeToString(sum[:]))
}

// Connect implements Wallet.
func (w *LocalWallet) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = true
	w.log.Debug("wallet connected", "account", w.addr.Short())
	return nil
}

// Disconnect locks the wallet again. Subsequent signing attempts fail
// with ErrNotConnected.
func (w *LocalWallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = false
}

// Account implements Wallet.
func (w *LocalWallet) Account() (ledger.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return "", ErrNotConnected
	}
	return w.addr, nil
}

// SignAndSubmit implements Wallet and ledger.Submitter.
func (w *LocalWallet) SignAndSubmit(ctx context.Context, call ledger.EntryCall) (ledger.TxHandle, error) {
	w.mu.Lock()
	if !w.connected {
		w.mu.Unlock()
		return "", ErrNotConnected
	}
	priv := w.priv
	addr := w.addr
	w.mu.Unlock()

	msg, err := canonicalMessage(addr, call)
	if err != nil {
		return "", err
	}
	payload := SignedPayload{
		Sender:    addr,
		Call:      call,
		Message:   msg,
		Signature: ed25519.Sign(priv, msg),
		PublicKey: priv.Public().(ed25519.PublicKey),
	}

	h, err := w.submit(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("wallet: submitting %s: %w", call.Function, err)
	}
	w.log.Debug("transaction submitted", "function", call.Function, "tx", h)
	return h, nil
}

// canonicalMessage serializes a call deterministically for signing.
func canonicalMessage(sender ledger.Address, call ledger.EntryCall) ([]byte, error) {
	wire := struct {
		Sender    ledger.Address `json:"sender"`
		Function  string         `json:"function"`
		Arguments []any          `json:"arguments"`
	}{sender, call.Function, call.Args}
	msg, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("wallet: encoding call for signing: %w", err)
	}
	return msg, nil
}
