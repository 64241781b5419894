package dashboard

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nazeerbasha7/Med-Vault/internal/workerpool"
	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
	"github.com/nazeerbasha7/Med-Vault/pkg/verify"
)

type fakeBackend struct {
	mu      sync.Mutex
	ids     []ledger.RecordID
	reports map[ledger.RecordID]verify.Report
	listErr error
	verErr  error

	verified []ledger.RecordID
	filed    bool
}

func (f *fakeBackend) ListRecordsOf(_ context.Context, _ ledger.Address) ([]ledger.RecordID, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ids, nil
}

func (f *fakeBackend) VerifyRecord(_ context.Context, id ledger.RecordID, _ ledger.Address, file []byte) (verify.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file != nil {
		f.filed = true
	}
	if f.verErr != nil {
		return verify.Report{}, f.verErr
	}
	f.verified = append(f.verified, id)
	return f.reports[id], nil
}

// addRecord registers a record with an increasing creation time and the
// given verdict.
func (f *fakeBackend) addRecord(t *testing.T, valid bool) ledger.RecordID {
	t.Helper()
	createdAt := int64(1_700_000_000 + len(f.ids))
	id := ledger.NewRecordID("0xaaaa", "0xd0c7", createdAt)
	f.ids = append(f.ids, id)
	if f.reports == nil {
		f.reports = make(map[ledger.RecordID]verify.Report)
	}
	score := 45
	if valid {
		score = 85
	}
	f.reports[id] = verify.Report{
		RecordID: id,
		Found:    true,
		Score:    score,
		IsValid:  valid,
		Header:   ledger.RecordHeader{ID: id, CreatedAt: createdAt},
	}
	return id
}

func newTestAggregator(t *testing.T, f *fakeBackend) *Aggregator {
	t.Helper()
	pool := workerpool.New(workerpool.Config{Workers: 3, QueueSize: 32})
	t.Cleanup(pool.Close)
	return NewAggregator(f, f, pool)
}

func TestSummarize(t *testing.T) {
	f := &fakeBackend{}
	for i := 0; i < 4; i++ {
		f.addRecord(t, i%2 == 0)
	}

	summary, err := newTestAggregator(t, f).Summarize(context.Background(), "0xaaaa")
	require.NoError(t, err)

	require.Equal(t, 4, summary.Total)
	require.Equal(t, 2, summary.Verified)
	require.Equal(t, 2, summary.Unverified)
	require.InDelta(t, 50.0, summary.Rate, 0.001)
	require.False(t, f.filed, "batch verification must not supply a file")
}

func TestSummarize_NoRecords(t *testing.T) {
	summary, err := newTestAggregator(t, &fakeBackend{}).Summarize(context.Background(), "0xaaaa")
	require.NoError(t, err)

	require.Zero(t, summary.Total)
	require.Zero(t, summary.Verified)
	require.Zero(t, summary.Unverified)
	require.Zero(t, summary.Rate)
	require.Empty(t, summary.RecentActivity)
}

func TestSummarize_LimitsToMostRecent(t *testing.T) {
	f := &fakeBackend{}
	var all []ledger.RecordID
	for i := 0; i < RecentRecordLimit+5; i++ {
		all = append(all, f.addRecord(t, true))
	}

	summary, err := newTestAggregator(t, f).Summarize(context.Background(), "0xaaaa")
	require.NoError(t, err)

	require.Equal(t, RecentRecordLimit, summary.Total)
	require.Len(t, f.verified, RecentRecordLimit)
	for _, old := range all[:5] {
		require.NotContains(t, f.verified, old, "oldest records must not be evaluated")
	}
	require.Equal(t, all[len(all)-1], summary.RecentActivity[0].RecordID,
		"activity is ordered newest first")
}

func TestSummarize_AllValid(t *testing.T) {
	f := &fakeBackend{}
	for i := 0; i < 3; i++ {
		f.addRecord(t, true)
	}

	summary, err := newTestAggregator(t, f).Summarize(context.Background(), "0xaaaa")
	require.NoError(t, err)
	require.InDelta(t, 100.0, summary.Rate, 0.001)
	require.Zero(t, summary.Unverified)
}

func TestSummarize_ListError(t *testing.T) {
	f := &fakeBackend{listErr: ledger.ErrNetwork}
	_, err := newTestAggregator(t, f).Summarize(context.Background(), "0xaaaa")
	require.ErrorIs(t, err, ledger.ErrNetwork)
}

func TestSummarize_VerifyError(t *testing.T) {
	f := &fakeBackend{verErr: ledger.ErrNetwork}
	f.addRecord(t, true)
	f.verErr = ledger.ErrNetwork

	_, err := newTestAggregator(t, f).Summarize(context.Background(), "0xaaaa")
	require.ErrorIs(t, err, ledger.ErrNetwork)
}
