package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/nazeerbasha7/Med-Vault/internal/workerpool"
	"github.com/nazeerbasha7/Med-Vault/pkg/dashboard"
	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
	"github.com/nazeerbasha7/Med-Vault/pkg/verify"
)

func newSummarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <patient>",
		Short: "Aggregate verification results over a patient's recent records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patient, err := ledger.ParseAddress(args[0])
			if err != nil {
				return err
			}

			adapter := a.readAdapter()
			pool := workerpool.New(workerpool.Config{Workers: 4})
			defer pool.Close()

			agg := dashboard.NewAggregator(adapter,
				verify.NewEngine(adapter, verify.WithLogger(a.log)),
				pool, dashboard.WithLogger(a.log))

			summary, err := agg.Summarize(cmd.Context(), patient)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}
