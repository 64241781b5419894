// Package verify scores the authenticity of a medical record by running
// a fixed set of checks against the ledger and, when the caller supplies
// the original file, against its content digest. Each check contributes
// a fixed weight to a 0-100 score; a record is valid when the score
// reaches the threshold.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nazeerbasha7/Med-Vault/pkg/blob"
	"github.com/nazeerbasha7/Med-Vault/pkg/keys"
	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
)

// Method names one verification check in a report.
type Method string

const (
	MethodLedgerLookup Method = "ledger_lookup"
	MethodTimestamp    Method = "timestamp"
	MethodIntegrity    Method = "integrity"
	MethodCredential   Method = "doctor_credential"
	MethodKeyAccess    Method = "key_access"
)

// Scoring policy. The weights sum to 100 and are not tunable.
const (
	WeightLedgerLookup = 30
	WeightTimestamp    = 15
	WeightIntegrity    = 25
	WeightCredential   = 15
	WeightKeyAccess    = 15

	// ValidityThreshold is the minimum score for a valid verdict.
	ValidityThreshold = 60

	// MaxRecordAge bounds how old a record may be before its timestamp
	// is flagged as unusual.
	MaxRecordAge = 365 * 24 * time.Hour
)

// Ledger is the read surface the engine needs.
type Ledger interface {
	GetRecordHeader(ctx context.Context, id ledger.RecordID) (ledger.RecordHeader, error)
	GetWrappedKey(ctx context.Context, id ledger.RecordID, viewer ledger.Address) (keys.WrappedKey, error)
	IsDoctorActive(ctx context.Context, doctor ledger.Address) (bool, error)
}

// Report is the outcome of one verification run. It carries the header
// fields that could be read plus a pass/fail entry per method.
type Report struct {
	RecordID     ledger.RecordID     `json:"recordId"`
	Found        bool                `json:"found"`
	Header       ledger.RecordHeader `json:"header,omitempty"`
	FileSupplied bool                `json:"fileSupplied"`

	Score    int             `json:"score"`
	Methods  map[Method]bool `json:"methods"`
	IsValid  bool            `json:"isValid"`
	Tampered bool            `json:"tampered"`

	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// PublicReport is the redacted variant returned to untrusted callers.
// It exposes existence and coarse metadata only, never content
// identifiers or full addresses.
type PublicReport struct {
	RecordID    string    `json:"recordId"`
	Exists      bool      `json:"exists"`
	FileType    string    `json:"fileType,omitempty"`
	IssuingOrg  string    `json:"issuingOrg,omitempty"`
	Doctor      string    `json:"doctor,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	TimestampOK bool      `json:"timestampOk"`
}

// Engine runs verifications against a ledger.
type Engine struct {
	ledger Ledger
	log    *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a verification engine over the given ledger.
func NewEngine(l Ledger, opts ...Option) *Engine {
	e := &Engine{
		ledger: l,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// VerifyRecord runs the full verification pipeline for one record. The
// file is the original plaintext and may be nil, in which case the
// integrity check contributes nothing and a warning is recorded. patient
// is the address whose key access is checked.
//
// A missing record yields a zero-score report, not an error; an error is
// returned only when the ledger itself could not be reached.
func (e *Engine) VerifyRecord(ctx context.Context, id ledger.RecordID, patient ledger.Address, file []byte) (Report, error) {
	report := Report{
		RecordID:     id,
		FileSupplied: file != nil,
		Methods: map[Method]bool{
			MethodLedgerLookup: false,
			MethodTimestamp:    false,
			MethodIntegrity:    false,
			MethodCredential:   false,
			MethodKeyAccess:    false,
		},
	}

	header, err := e.ledger.GetRecordHeader(ctx, id)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		report.Errors = append(report.Errors, "Record not found on ledger")
		return report, nil
	case err != nil:
		return Report{}, fmt.Errorf("verify: looking up record %s: %w", id.Short(), err)
	}

	report.Found = true
	report.Header = header
	if header.Malformed() {
		report.Errors = append(report.Errors, "Record header is malformed")
	} else {
		report.Methods[MethodLedgerLookup] = true
		report.Score += WeightLedgerLookup
	}

	if e.timestampPlausible(time.Unix(header.CreatedAt, 0)) {
		report.Methods[MethodTimestamp] = true
		report.Score += WeightTimestamp
	} else {
		report.Warnings = append(report.Warnings, "Record timestamp appears unusual")
	}

	if file != nil {
		if blob.Digest(file) == header.ContentDigest {
			report.Methods[MethodIntegrity] = true
			report.Score += WeightIntegrity
		} else {
			report.Errors = append(report.Errors, "File integrity verification failed")
		}
		report.Tampered = !report.Methods[MethodIntegrity]
	} else {
		report.Warnings = append(report.Warnings, "No file provided for integrity verification")
	}

	active, err := e.ledger.IsDoctorActive(ctx, header.IssuingDoctor)
	if err != nil {
		e.log.Warn("doctor credential check failed", "record", id.Short(), "err", err)
		active = false
	}
	if active {
		report.Methods[MethodCredential] = true
		report.Score += WeightCredential
	} else {
		report.Errors = append(report.Errors, "Doctor verification failed")
	}

	wrapped, err := e.ledger.GetWrappedKey(ctx, id, patient)
	if err != nil {
		e.log.Warn("key access check failed", "record", id.Short(), "err", err)
		wrapped = nil
	}
	if wrapped != nil {
		report.Methods[MethodKeyAccess] = true
		report.Score += WeightKeyAccess
	} else {
		report.Warnings = append(report.Warnings, "Encryption verification needs patient access")
	}

	report.IsValid = report.Score >= ValidityThreshold
	e.log.Debug("record verified",
		"record", id.Short(), "score", report.Score, "valid", report.IsValid, "tampered", report.Tampered)
	return report, nil
}

// VerifyPublic runs only the existence and timestamp checks and returns
// a redacted summary suitable for anonymous callers.
func (e *Engine) VerifyPublic(ctx context.Context, id ledger.RecordID) (PublicReport, error) {
	report := PublicReport{RecordID: id.Short()}

	header, err := e.ledger.GetRecordHeader(ctx, id)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return report, nil
	case err != nil:
		return PublicReport{}, fmt.Errorf("verify: looking up record %s: %w", id.Short(), err)
	}

	report.Exists = true
	report.FileType = header.FileType
	report.IssuingOrg = header.IssuingOrg
	report.Doctor = header.DoctorHandle
	report.CreatedAt = time.Unix(header.CreatedAt, 0).UTC()
	report.TimestampOK = e.timestampPlausible(report.CreatedAt)
	return report, nil
}

func (e *Engine) timestampPlausible(createdAt time.Time) bool {
	age := e.now().Sub(createdAt)
	return age >= 0 && age < MaxRecordAge
}
