package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nazeerbasha7/Med-Vault/pkg/blob"
	"github.com/nazeerbasha7/Med-Vault/pkg/keys"
)

// Submitter is the write-side capability: sign entry call c and submit it,
// returning the transaction handle. Provided by the wallet boundary.
type Submitter interface {
	SignAndSubmit(ctx context.Context, call EntryCall) (TxHandle, error)
}

// Confirmation polling bounds. Exceeding the bound is ErrConfirmationTimeout;
// the transaction may still land afterwards.
const (
	defaultPollInterval = 2 * time.Second
	defaultPollAttempts = 30
)

// Adapter exposes the domain operations of the record-access ledger.
// All writes are asynchronous: a returned TxHandle only means the
// transaction was accepted, durability requires WaitForConfirmation.
type Adapter struct {
	node Node
	sub  Submitter
	log  *slog.Logger

	pollInterval time.Duration
	pollAttempts int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithConfirmationPolicy overrides the confirmation polling bounds.
func WithConfirmationPolicy(interval time.Duration, attempts int) Option {
	return func(a *Adapter) {
		a.pollInterval = interval
		a.pollAttempts = attempts
	}
}

// NewAdapter creates an adapter over a node (reads) and a submitter
// (writes). A nil submitter yields a read-only adapter.
func NewAdapter(node Node, sub Submitter, opts ...Option) *Adapter {
	a := &Adapter{
		node:         node,
		sub:          sub,
		log:          slog.Default(),
		pollInterval: defaultPollInterval,
		pollAttempts: defaultPollAttempts,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateRecord writes a new record header together with the patient's
// wrapped key as one ledger transaction: either both become visible or
// neither does. A duplicate record id surfaces as the ledger's rejection,
// never as a local pre-check.
func (a *Adapter) CreateRecord(ctx context.Context, h RecordHeader, wrappedForPatient keys.WrappedKey) (TxHandle, error) {
	if h.Malformed() {
		return "", fmt.Errorf("%w: malformed record header", ErrInvalidInput)
	}
	if len(wrappedForPatient) == 0 {
		return "", fmt.Errorf("%w: missing wrapped key for patient", ErrInvalidInput)
	}
	return a.submit(ctx, EntryCall{
		Function: fnCreateRecord,
		Args: []any{
			argAddress(h.Patient),
			h.ID.Hex(),
			argBytes(wrappedForPatient),
			string(h.ContentID),
			argBytes(h.ContentDigest[:]),
			h.FileType,
			h.DoctorHandle,
			h.IssuingOrg,
			argU64(h.CreatedAt),
		},
	})
}

// GrantAccess adds one wrapped key for a grantee. Only the record's patient
// may grant; the ledger enforces this and the rejection maps to
// ErrUnauthorized. Granting twice to the same address is a harmless no-op
// on the ledger side.
func (a *Adapter) GrantAccess(ctx context.Context, id RecordID, grantee Address, wrappedForGrantee keys.WrappedKey) (TxHandle, error) {
	if len(wrappedForGrantee) == 0 {
		return "", fmt.Errorf("%w: missing wrapped key for grantee", ErrInvalidInput)
	}
	return a.submit(ctx, EntryCall{
		Function: fnGrantAccess,
		Args:     []any{id.Hex(), argAddress(grantee), argBytes(wrappedForGrantee)},
	})
}

// RevokeAccess logically invalidates the grantee's wrapped key. Subsequent
// GetWrappedKey calls for this pair return none, indistinguishable from a
// grant that never existed.
func (a *Adapter) RevokeAccess(ctx context.Context, id RecordID, grantee Address) (TxHandle, error) {
	return a.submit(ctx, EntryCall{
		Function: fnRevokeAccess,
		Args:     []any{id.Hex(), argAddress(grantee)},
	})
}

// CreateOrganization registers an organization.
func (a *Adapter) CreateOrganization(ctx context.Context, orgID, name string) (TxHandle, error) {
	if orgID == "" || name == "" {
		return "", fmt.Errorf("%w: organization id and name are required", ErrInvalidInput)
	}
	return a.submit(ctx, EntryCall{Function: fnCreateOrg, Args: []any{orgID, name}})
}

// RegisterDoctor registers a doctor credential under an organization.
func (a *Adapter) RegisterDoctor(ctx context.Context, doctor Address, handle, licenseDigest, orgID string) (TxHandle, error) {
	return a.submit(ctx, EntryCall{
		Function: fnRegisterDoctor,
		Args:     []any{argAddress(doctor), handle, licenseDigest, orgID},
	})
}

// RegisterUserKey publishes the signing account's viewer public key.
func (a *Adapter) RegisterUserKey(ctx context.Context, pub [keys.PublicKeySize]byte) (TxHandle, error) {
	return a.submit(ctx, EntryCall{Function: fnRegisterUserKey, Args: []any{argBytes(pub[:])}})
}

func (a *Adapter) submit(ctx context.Context, call EntryCall) (TxHandle, error) {
	if a.sub == nil {
		return "", fmt.Errorf("ledger: adapter is read-only, no submitter configured")
	}
	h, err := a.sub.SignAndSubmit(ctx, call)
	if err != nil {
		return "", fmt.Errorf("ledger: submitting %s: %w", call.Function, err)
	}
	a.log.Debug("transaction submitted", "function", call.Function, "tx", string(h))
	return h, nil
}

// WaitForConfirmation polls the node at a fixed interval up to a fixed
// attempt bound. Once submitted a transaction cannot be cancelled; a caller
// that stops waiting must not assume the effect was lost.
func (a *Adapter) WaitForConfirmation(ctx context.Context, h TxHandle) error {
	for attempt := 0; attempt < a.pollAttempts; attempt++ {
		found, success, err := a.node.TransactionStatus(ctx, h)
		if err == nil && found {
			if !success {
				return fmt.Errorf("ledger: transaction %s failed on chain", h)
			}
			return nil
		}
		// Transient lookup errors keep polling; the bound is the backstop.

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.pollInterval):
		}
	}
	return fmt.Errorf("%w: transaction %s unconfirmed after %d attempts", ErrConfirmationTimeout, h, a.pollAttempts)
}

// Wire shapes for view-function return values.

type wireU64 int64

func (v *wireU64) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*v = wireU64(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = wireU64(n)
	return nil
}

type recordHeaderWire struct {
	RecordID      string  `json:"record_id"`
	Patient       string  `json:"patient"`
	IssuingDoctor string  `json:"issuing_doctor"`
	IssuingOrg    string  `json:"issuing_org"`
	DoctorHandle  string  `json:"doctor_handle"`
	FileType      string  `json:"file_type"`
	ContentID     string  `json:"content_id"`
	ContentDigest string  `json:"content_digest"`
	CreatedAt     wireU64 `json:"created_at"`
	Revoked       bool    `json:"revoked"`
}

// GetRecordHeader fetches and decodes a record header. A missing record is
// ErrNotFound; hard transport failures are ErrNetwork.
func (a *Adapter) GetRecordHeader(ctx context.Context, id RecordID) (RecordHeader, error) {
	result, err := a.node.View(ctx, fnGetRecordHeader, []any{id.Hex()})
	if err != nil {
		return RecordHeader{}, err
	}
	if len(result) == 0 {
		return RecordHeader{}, ErrNotFound
	}

	var w recordHeaderWire
	if err := json.Unmarshal(result[0], &w); err != nil {
		return RecordHeader{}, fmt.Errorf("ledger: decoding record header: %w", err)
	}

	h := RecordHeader{
		ID:           id,
		IssuingOrg:   w.IssuingOrg,
		DoctorHandle: w.DoctorHandle,
		FileType:     w.FileType,
		ContentID:    blob.ContentID(w.ContentID),
		CreatedAt:    int64(w.CreatedAt),
		Revoked:      w.Revoked,
	}
	if w.RecordID != "" {
		if parsed, err := ParseRecordID(w.RecordID); err == nil {
			h.ID = parsed
		}
	}
	if h.Patient, err = ParseAddress(w.Patient); err != nil {
		return RecordHeader{}, fmt.Errorf("ledger: record header has malformed patient address: %w", err)
	}
	if h.IssuingDoctor, err = ParseAddress(w.IssuingDoctor); err != nil {
		return RecordHeader{}, fmt.Errorf("ledger: record header has malformed doctor address: %w", err)
	}
	if w.ContentDigest != "" {
		d, err := blob.ParseDigest(stripHexPrefix(w.ContentDigest))
		if err != nil {
			return RecordHeader{}, fmt.Errorf("ledger: record header has malformed content digest: %w", err)
		}
		h.ContentDigest = d
	}
	return h, nil
}

// GetWrappedKey returns the wrapped key for a viewer, or (nil, nil) when
// none exists. Revoked grants and never-existing grants are deliberately
// indistinguishable here.
func (a *Adapter) GetWrappedKey(ctx context.Context, id RecordID, viewer Address) (keys.WrappedKey, error) {
	result, err := a.node.View(ctx, fnGetWrappedKey, []any{id.Hex(), argAddress(viewer)})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	var hexKey *string
	if err := json.Unmarshal(result[0], &hexKey); err != nil {
		return nil, fmt.Errorf("ledger: decoding wrapped key: %w", err)
	}
	if hexKey == nil || *hexKey == "" || *hexKey == "0x" {
		return nil, nil
	}
	raw, err := decodeHexBytes(*hexKey)
	if err != nil {
		return nil, fmt.Errorf("ledger: decoding wrapped key: %w", err)
	}
	return keys.WrappedKey(raw), nil
}

// ListRecordsOf returns the identifiers of all records owned by the
// patient, in ledger (chronological) order.
func (a *Adapter) ListRecordsOf(ctx context.Context, patient Address) ([]RecordID, error) {
	result, err := a.node.View(ctx, fnListRecordsOf, []any{argAddress(patient)})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	var rawIDs []string
	if err := json.Unmarshal(result[0], &rawIDs); err != nil {
		return nil, fmt.Errorf("ledger: decoding record list: %w", err)
	}

	ids := make([]RecordID, 0, len(rawIDs))
	for _, s := range rawIDs {
		id, err := ParseRecordID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsDoctorActive reports whether the doctor credential is active. An
// unregistered doctor is simply inactive.
func (a *Adapter) IsDoctorActive(ctx context.Context, doctor Address) (bool, error) {
	result, err := a.node.View(ctx, fnIsDoctorActive, []any{argAddress(doctor)})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(result) == 0 {
		return false, nil
	}
	var active bool
	if err := json.Unmarshal(result[0], &active); err != nil {
		return false, fmt.Errorf("ledger: decoding doctor status: %w", err)
	}
	return active, nil
}

// GetUserPublicKey returns a principal's published viewer public key, or
// ErrNotFound when none is registered.
func (a *Adapter) GetUserPublicKey(ctx context.Context, user Address) ([keys.PublicKeySize]byte, error) {
	var pub [keys.PublicKeySize]byte
	result, err := a.node.View(ctx, fnGetUserPublicKey, []any{argAddress(user)})
	if err != nil {
		return pub, err
	}
	if len(result) == 0 {
		return pub, ErrNotFound
	}
	var hexKey string
	if err := json.Unmarshal(result[0], &hexKey); err != nil {
		return pub, fmt.Errorf("ledger: decoding user public key: %w", err)
	}
	raw, err := decodeHexBytes(hexKey)
	if err != nil || len(raw) != keys.PublicKeySize {
		return pub, fmt.Errorf("%w: malformed published public key", ErrInvalidInput)
	}
	copy(pub[:], raw)
	return pub, nil
}

type organizationWire struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Admin  string `json:"admin"`
	Active bool   `json:"active"`
}

// GetOrganization fetches a read-only organization entity.
func (a *Adapter) GetOrganization(ctx context.Context, orgID string) (Organization, error) {
	result, err := a.node.View(ctx, fnGetOrganization, []any{orgID})
	if err != nil {
		return Organization{}, err
	}
	if len(result) == 0 {
		return Organization{}, ErrNotFound
	}
	var w organizationWire
	if err := json.Unmarshal(result[0], &w); err != nil {
		return Organization{}, fmt.Errorf("ledger: decoding organization: %w", err)
	}
	admin, err := ParseAddress(w.Admin)
	if err != nil {
		return Organization{}, fmt.Errorf("ledger: organization has malformed admin address: %w", err)
	}
	return Organization{ID: w.ID, Name: w.Name, Admin: admin, Active: w.Active}, nil
}

type doctorWire struct {
	Org           string `json:"org"`
	Handle        string `json:"handle"`
	LicenseDigest string `json:"license_digest"`
	Active        bool   `json:"active"`
}

// GetDoctorInfo fetches a read-only doctor credential.
func (a *Adapter) GetDoctorInfo(ctx context.Context, doctor Address) (DoctorCredential, error) {
	result, err := a.node.View(ctx, fnGetDoctorInfo, []any{argAddress(doctor)})
	if err != nil {
		return DoctorCredential{}, err
	}
	if len(result) == 0 {
		return DoctorCredential{}, ErrNotFound
	}
	var w doctorWire
	if err := json.Unmarshal(result[0], &w); err != nil {
		return DoctorCredential{}, fmt.Errorf("ledger: decoding doctor credential: %w", err)
	}
	return DoctorCredential(w), nil
}
