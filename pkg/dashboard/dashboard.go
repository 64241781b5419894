// Package dashboard aggregates per-patient verification statistics for
// display. It samples the patient's most recent records, verifies each
// through the verification engine and folds the verdicts into counts
// and a rate.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/nazeerbasha7/Med-Vault/internal/workerpool"
	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
	"github.com/nazeerbasha7/Med-Vault/pkg/verify"
)

// RecentRecordLimit bounds how many records one summary evaluates. The
// newest records are preferred.
const RecentRecordLimit = 10

// Lister enumerates a patient's record identifiers in creation order.
type Lister interface {
	ListRecordsOf(ctx context.Context, patient ledger.Address) ([]ledger.RecordID, error)
}

// Verifier runs the comprehensive verification for one record.
type Verifier interface {
	VerifyRecord(ctx context.Context, id ledger.RecordID, patient ledger.Address, file []byte) (verify.Report, error)
}

// Summary is the aggregate verification state of one patient's records.
type Summary struct {
	Patient    string  `json:"patient"`
	Total      int     `json:"total"`
	Verified   int     `json:"verified"`
	Unverified int     `json:"unverified"`
	// Rate is Verified over Total as a percentage, 0 when no records
	// were evaluated.
	Rate float64 `json:"rate"`

	// RecentActivity holds the evaluated reports, newest first.
	RecentActivity []verify.Report `json:"recentActivity"`
}

// Aggregator computes summaries with bounded concurrency.
type Aggregator struct {
	lister   Lister
	verifier Verifier
	pool     *workerpool.Pool
	log      *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the aggregator logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// NewAggregator creates an aggregator. The pool caps how many
// verifications run in parallel per summary; it is shared and not closed
// by the aggregator.
func NewAggregator(lister Lister, verifier Verifier, pool *workerpool.Pool, opts ...Option) *Aggregator {
	a := &Aggregator{
		lister:   lister,
		verifier: verifier,
		pool:     pool,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type verifyOutcome struct {
	report verify.Report
	err    error
}

// Summarize verifies the patient's most recent records and aggregates
// the verdicts. No file is supplied to the per-record verifications, so
// content integrity never scores in this batch context.
func (a *Aggregator) Summarize(ctx context.Context, patient ledger.Address) (Summary, error) {
	ids, err := a.lister.ListRecordsOf(ctx, patient)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: listing records of %s: %w", patient.Short(), err)
	}

	if len(ids) > RecentRecordLimit {
		ids = ids[len(ids)-RecentRecordLimit:]
	}

	summary := Summary{Patient: patient.Short()}
	if len(ids) == 0 {
		return summary, nil
	}

	room := a.pool.NewRoom(len(ids))
	for _, id := range ids {
		id := id
		err := room.Submit(ctx, func() any {
			report, err := a.verifier.VerifyRecord(ctx, id, patient, nil)
			return verifyOutcome{report: report, err: err}
		})
		if err != nil {
			// Collect the tasks already queued before giving up.
			room.Collect()
			return Summary{}, fmt.Errorf("dashboard: scheduling verification: %w", err)
		}
	}

	for _, res := range room.Collect() {
		outcome := res.(verifyOutcome)
		if outcome.err != nil {
			return Summary{}, fmt.Errorf("dashboard: verifying records of %s: %w", patient.Short(), outcome.err)
		}
		summary.RecentActivity = append(summary.RecentActivity, outcome.report)
	}

	sort.Slice(summary.RecentActivity, func(i, j int) bool {
		return summary.RecentActivity[i].Header.CreatedAt > summary.RecentActivity[j].Header.CreatedAt
	})

	summary.Total = len(summary.RecentActivity)
	for _, report := range summary.RecentActivity {
		if report.IsValid {
			summary.Verified++
		}
	}
	summary.Unverified = summary.Total - summary.Verified
	if summary.Total > 0 {
		summary.Rate = float64(summary.Verified) / float64(summary.Total) * 100
	}

	a.log.Debug("patient summarized",
		"patient", patient.Short(), "total", summary.Total, "verified", summary.Verified, "rate", summary.Rate)
	return summary, nil
}
