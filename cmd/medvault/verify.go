package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
	"github.com/nazeerbasha7/Med-Vault/pkg/verify"
)

func newVerifyCmd(a *app) *cobra.Command {
	var (
		filePath   string
		patientArg string
		public     bool
	)

	cmd := &cobra.Command{
		Use:   "verify <recordId>",
		Short: "Verify a record's authenticity against the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := ledger.ParseRecordID(args[0])
			if err != nil {
				return err
			}

			engine := verify.NewEngine(a.readAdapter(), verify.WithLogger(a.log))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if public {
				report, err := engine.VerifyPublic(ctx, id)
				if err != nil {
					return err
				}
				return enc.Encode(report)
			}

			patient, err := ledger.ParseAddress(patientArg)
			if err != nil {
				return fmt.Errorf("invalid patient address %q", patientArg)
			}

			var file []byte
			if filePath != "" {
				if file, err = os.ReadFile(filePath); err != nil {
					return fmt.Errorf("reading %s: %w", filePath, err)
				}
			}

			report, err := engine.VerifyRecord(ctx, id, patient, file)
			if err != nil {
				return err
			}
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.IsValid {
				return fmt.Errorf("record %s failed verification with score %d", id.Short(), report.Score)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "original file for the integrity check")
	cmd.Flags().StringVar(&patientArg, "patient", "", "patient account address")
	cmd.Flags().BoolVar(&public, "public", false, "run the redacted public verification only")
	return cmd
}
