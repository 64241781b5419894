package verify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nazeerbasha7/Med-Vault/pkg/blob"
	"github.com/nazeerbasha7/Med-Vault/pkg/keys"
	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
)

type fakeLedger struct {
	headers map[ledger.RecordID]ledger.RecordHeader
	wrapped map[string]keys.WrappedKey
	doctors map[ledger.Address]bool

	headerErr error
	doctorErr error
	wrapErr   error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		headers: make(map[ledger.RecordID]ledger.RecordHeader),
		wrapped: make(map[string]keys.WrappedKey),
		doctors: make(map[ledger.Address]bool),
	}
}

func (f *fakeLedger) GetRecordHeader(_ context.Context, id ledger.RecordID) (ledger.RecordHeader, error) {
	if f.headerErr != nil {
		return ledger.RecordHeader{}, f.headerErr
	}
	h, ok := f.headers[id]
	if !ok {
		return ledger.RecordHeader{}, ledger.ErrNotFound
	}
	return h, nil
}

func (f *fakeLedger) GetWrappedKey(_ context.Context, id ledger.RecordID, viewer ledger.Address) (keys.WrappedKey, error) {
	if f.wrapErr != nil {
		return nil, f.wrapErr
	}
	return f.wrapped[id.Hex()+"|"+string(viewer)], nil
}

func (f *fakeLedger) IsDoctorActive(_ context.Context, doctor ledger.Address) (bool, error) {
	if f.doctorErr != nil {
		return false, f.doctorErr
	}
	return f.doctors[doctor], nil
}

var (
	testNow     = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	testPatient = ledger.Address("0xaaaa")
	testDoctor  = ledger.Address("0xd0c7")
)

// seedRecord installs a record issued a month ago by an active doctor,
// with the patient granted access. Full verification with the matching
// file scores 100.
func seedRecord(f *fakeLedger, file []byte) ledger.RecordID {
	id := ledger.NewRecordID(testPatient, testDoctor, testNow.Unix())
	f.headers[id] = ledger.RecordHeader{
		ID:            id,
		Patient:       testPatient,
		IssuingDoctor: testDoctor,
		IssuingOrg:    "org-general",
		DoctorHandle:  "dr-chen",
		FileType:      "lab-report",
		ContentID:     "mv1deadbeef",
		ContentDigest: blob.Digest(file),
		CreatedAt:     testNow.Add(-30 * 24 * time.Hour).Unix(),
	}
	f.doctors[testDoctor] = true
	f.wrapped[id.Hex()+"|"+string(testPatient)] = keys.WrappedKey{0x01, 0x02}
	return id
}

func newTestEngine(f *fakeLedger) *Engine {
	return NewEngine(f, WithClock(func() time.Time { return testNow }))
}

func TestVerifyRecord_AllMethodsPass(t *testing.T) {
	file := []byte("patient lab results")
	f := newFakeLedger()
	id := seedRecord(f, file)

	report, err := newTestEngine(f).VerifyRecord(context.Background(), id, testPatient, file)
	require.NoError(t, err)

	require.True(t, report.Found)
	require.Equal(t, 100, report.Score)
	require.True(t, report.IsValid)
	require.False(t, report.Tampered)
	require.Empty(t, report.Errors)
	require.Empty(t, report.Warnings)
	for method, passed := range report.Methods {
		require.True(t, passed, "method %s should pass", method)
	}
	require.Equal(t, f.headers[id], report.Header)
}

func TestVerifyRecord_NotFound(t *testing.T) {
	f := newFakeLedger()
	id := ledger.NewRecordID(testPatient, testDoctor, 1)

	report, err := newTestEngine(f).VerifyRecord(context.Background(), id, testPatient, nil)
	require.NoError(t, err)

	require.False(t, report.Found)
	require.Zero(t, report.Score)
	require.False(t, report.IsValid)
	require.Equal(t, []string{"Record not found on ledger"}, report.Errors)
	for method, passed := range report.Methods {
		require.False(t, passed, "method %s must fail for a missing record", method)
	}
}

func TestVerifyRecord_TamperedFile(t *testing.T) {
	file := []byte("original scan")
	f := newFakeLedger()
	id := seedRecord(f, file)

	report, err := newTestEngine(f).VerifyRecord(context.Background(), id, testPatient, []byte("doctored scan"))
	require.NoError(t, err)

	require.True(t, report.Tampered)
	require.False(t, report.Methods[MethodIntegrity])
	require.Contains(t, report.Errors, "File integrity verification failed")
	require.Equal(t, 100-WeightIntegrity, report.Score)
	require.True(t, report.IsValid, "tampering alone does not push the score below threshold")
}

func TestVerifyRecord_NoFileIsWarningNotTamper(t *testing.T) {
	f := newFakeLedger()
	id := seedRecord(f, []byte("content"))

	report, err := newTestEngine(f).VerifyRecord(context.Background(), id, testPatient, nil)
	require.NoError(t, err)

	require.False(t, report.Tampered)
	require.False(t, report.FileSupplied)
	require.Equal(t, 100-WeightIntegrity, report.Score)
	require.Contains(t, report.Warnings, "No file provided for integrity verification")
	require.Empty(t, report.Errors)
}

func TestVerifyRecord_InactiveDoctor(t *testing.T) {
	file := []byte("content")
	f := newFakeLedger()
	id := seedRecord(f, file)
	f.doctors[testDoctor] = false

	report, err := newTestEngine(f).VerifyRecord(context.Background(), id, testPatient, file)
	require.NoError(t, err)

	require.False(t, report.Methods[MethodCredential])
	require.Contains(t, report.Errors, "Doctor verification failed")
	require.Equal(t, 100-WeightCredential, report.Score)
}

func TestVerifyRecord_DegradedChecks(t *testing.T) {
	// Collaborator failures on the sub-checks degrade the score instead
	// of aborting the whole verification.
	file := []byte("content")
	f := newFakeLedger()
	id := seedRecord(f, file)
	f.doctorErr = ledger.ErrNetwork
	f.wrapErr = ledger.ErrNetwork

	report, err := newTestEngine(f).VerifyRecord(context.Background(), id, testPatient, file)
	require.NoError(t, err)

	require.False(t, report.Methods[MethodCredential])
	require.False(t, report.Methods[MethodKeyAccess])
	require.Equal(t, WeightLedgerLookup+WeightTimestamp+WeightIntegrity, report.Score)
	require.True(t, report.IsValid)
}

func TestVerifyRecord_StaleAndFutureTimestamps(t *testing.T) {
	file := []byte("content")
	for name, createdAt := range map[string]int64{
		"older than a year": testNow.Add(-(MaxRecordAge + time.Hour)).Unix(),
		"in the future":     testNow.Add(time.Hour).Unix(),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFakeLedger()
			id := seedRecord(f, file)
			h := f.headers[id]
			h.CreatedAt = createdAt
			f.headers[id] = h

			report, err := newTestEngine(f).VerifyRecord(context.Background(), id, testPatient, file)
			require.NoError(t, err)
			require.False(t, report.Methods[MethodTimestamp])
			require.Contains(t, report.Warnings, "Record timestamp appears unusual")
			require.Equal(t, 100-WeightTimestamp, report.Score)
		})
	}
}

func TestVerifyRecord_NoPatientAccess(t *testing.T) {
	file := []byte("content")
	f := newFakeLedger()
	id := seedRecord(f, file)

	report, err := newTestEngine(f).VerifyRecord(context.Background(), id, "0xbbbb", file)
	require.NoError(t, err)

	require.False(t, report.Methods[MethodKeyAccess])
	require.Contains(t, report.Warnings, "Encryption verification needs patient access")
	require.Equal(t, 100-WeightKeyAccess, report.Score)
}

func TestVerifyRecord_LookupTransportError(t *testing.T) {
	f := newFakeLedger()
	f.headerErr = ledger.ErrNetwork

	_, err := newTestEngine(f).VerifyRecord(context.Background(), ledger.NewRecordID(testPatient, testDoctor, 1), testPatient, nil)
	require.ErrorIs(t, err, ledger.ErrNetwork)
}

func TestVerifyRecord_WeightsSumTo100(t *testing.T) {
	require.Equal(t, 100,
		WeightLedgerLookup+WeightTimestamp+WeightIntegrity+WeightCredential+WeightKeyAccess)
}

func TestVerifyPublic(t *testing.T) {
	file := []byte("content")
	f := newFakeLedger()
	id := seedRecord(f, file)

	report, err := newTestEngine(f).VerifyPublic(context.Background(), id)
	require.NoError(t, err)

	require.True(t, report.Exists)
	require.True(t, report.TimestampOK)
	require.Equal(t, "lab-report", report.FileType)
	require.Equal(t, "org-general", report.IssuingOrg)
	require.Equal(t, "dr-chen", report.Doctor)
	require.Equal(t, id.Short(), report.RecordID)
	require.NotContains(t, report.RecordID, id.Hex()[12:], "public report must not expose the full record id")
}

func TestVerifyPublic_NotFound(t *testing.T) {
	f := newFakeLedger()
	id := ledger.NewRecordID(testPatient, testDoctor, 1)

	report, err := newTestEngine(f).VerifyPublic(context.Background(), id)
	require.NoError(t, err)
	require.False(t, report.Exists)
}

func TestVerifyPublic_TransportError(t *testing.T) {
	f := newFakeLedger()
	f.headerErr = errors.New("connection reset")

	_, err := newTestEngine(f).VerifyPublic(context.Background(), ledger.NewRecordID(testPatient, testDoctor, 1))
	require.Error(t, err)
}

func TestReport_HeaderCopiedVerbatim(t *testing.T) {
	file := bytes.Repeat([]byte{0x42}, 512)
	f := newFakeLedger()
	id := seedRecord(f, file)

	report, err := newTestEngine(f).VerifyRecord(context.Background(), id, testPatient, file)
	require.NoError(t, err)
	require.Equal(t, id, report.Header.ID)
	require.Equal(t, blob.Digest(file), report.Header.ContentDigest)
}
