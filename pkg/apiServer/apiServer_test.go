package apiServer

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nazeerbasha7/Med-Vault/pkg/dashboard"
	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
	"github.com/nazeerbasha7/Med-Vault/pkg/verify"
)

type fakeCore struct {
	report    verify.Report
	public    verify.PublicReport
	summary   dashboard.Summary
	err       error
	gotFile   []byte
	gotCaller ledger.Address
}

func (f *fakeCore) VerifyRecord(_ context.Context, id ledger.RecordID, patient ledger.Address, file []byte) (verify.Report, error) {
	f.gotFile = file
	f.gotCaller = patient
	if f.err != nil {
		return verify.Report{}, f.err
	}
	r := f.report
	r.RecordID = id
	return r, nil
}

func (f *fakeCore) VerifyPublic(_ context.Context, id ledger.RecordID) (verify.PublicReport, error) {
	if f.err != nil {
		return verify.PublicReport{}, f.err
	}
	p := f.public
	p.RecordID = id.Short()
	return p, nil
}

func (f *fakeCore) Summarize(_ context.Context, patient ledger.Address) (dashboard.Summary, error) {
	f.gotCaller = patient
	if f.err != nil {
		return dashboard.Summary{}, f.err
	}
	return f.summary, nil
}

var testSecret = []byte("test-secret")

func newTestServer(f *fakeCore) *Server {
	return New(f, f, WithAuth(JWTAuth(testSecret)))
}

func bearer(t *testing.T, subject ledger.Address) string {
	t.Helper()
	token, err := IssueToken(testSecret, subject)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&fakeCore{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestVerifyPublic_NoAuthNeeded(t *testing.T) {
	f := &fakeCore{public: verify.PublicReport{Exists: true, FileType: "lab-report"}}
	id := ledger.NewRecordID("0xaaaa", "0xd0c7", 1)

	rec := httptest.NewRecorder()
	newTestServer(f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verify/"+id.Hex(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got verify.PublicReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.Exists)
	require.Equal(t, id.Short(), got.RecordID)
}

func TestVerifyPublic_BadID(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&fakeCore{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verify/zzzz", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyRecord_RequiresToken(t *testing.T) {
	id := ledger.NewRecordID("0xaaaa", "0xd0c7", 1)
	req := httptest.NewRequest(http.MethodPost, "/records/"+id.Hex()+"/verify", nil)

	rec := httptest.NewRecorder()
	newTestServer(&fakeCore{}).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyRecord_WithFile(t *testing.T) {
	f := &fakeCore{report: verify.Report{Found: true, Score: 100, IsValid: true}}
	id := ledger.NewRecordID("0xaaaa", "0xd0c7", 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "scan.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("scan bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/records/"+id.Hex()+"/verify", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, "0xaaaa"))

	rec := httptest.NewRecorder()
	newTestServer(f).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []byte("scan bytes"), f.gotFile)
	require.Equal(t, ledger.Address("0xaaaa"), f.gotCaller, "caller identity comes from the token")

	var got verify.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.IsValid)
	require.Equal(t, id, got.RecordID)
}

func TestVerifyRecord_NoFile(t *testing.T) {
	f := &fakeCore{report: verify.Report{Found: true}}
	id := ledger.NewRecordID("0xaaaa", "0xd0c7", 1)

	req := httptest.NewRequest(http.MethodPost, "/records/"+id.Hex()+"/verify", nil)
	req.Header.Set("Authorization", bearer(t, "0xaaaa"))

	rec := httptest.NewRecorder()
	newTestServer(f).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, f.gotFile)
}

func TestVerifyRecord_TamperedToken(t *testing.T) {
	id := ledger.NewRecordID("0xaaaa", "0xd0c7", 1)
	token, err := IssueToken([]byte("other-secret"), "0xaaaa")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/records/"+id.Hex()+"/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	newTestServer(&fakeCore{}).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSummary_OwnRecordsOnly(t *testing.T) {
	f := &fakeCore{summary: dashboard.Summary{Total: 2, Verified: 1, Unverified: 1, Rate: 50}}

	req := httptest.NewRequest(http.MethodGet, "/summary/0xaaaa", nil)
	req.Header.Set("Authorization", bearer(t, "0xaaaa"))
	rec := httptest.NewRecorder()
	newTestServer(f).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got dashboard.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 2, got.Total)
	require.InDelta(t, 50.0, got.Rate, 0.001)

	// A token for a different address must not read this summary.
	req = httptest.NewRequest(http.MethodGet, "/summary/0xaaaa", nil)
	req.Header.Set("Authorization", bearer(t, "0xbbbb"))
	rec = httptest.NewRecorder()
	newTestServer(f).ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServiceError_MapsNetworkToBadGateway(t *testing.T) {
	f := &fakeCore{err: ledger.ErrNetwork}
	id := ledger.NewRecordID("0xaaaa", "0xd0c7", 1)

	rec := httptest.NewRecorder()
	newTestServer(f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verify/"+id.Hex(), nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/summary/0xaaaa", nil)
	req.Header.Set("Origin", "https://app.example.com")

	rec := httptest.NewRecorder()
	newTestServer(&fakeCore{}).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
