package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nazeerbasha7/Med-Vault/internal/blobstore"
	"github.com/nazeerbasha7/Med-Vault/pkg/blob"
	"github.com/nazeerbasha7/Med-Vault/pkg/keys"
	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
	"github.com/nazeerbasha7/Med-Vault/pkg/logging"
)

func newCreateCmd(a *app) *cobra.Command {
	var (
		patientArg string
		fileType   string
		orgID      string
		handle     string
	)

	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Encrypt a record file, store it and write its header to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			patient, err := ledger.ParseAddress(patientArg)
			if err != nil {
				return fmt.Errorf("invalid patient address %q", patientArg)
			}

			plaintext, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			adapter, w, err := a.writeAdapter()
			if err != nil {
				return err
			}
			if err := w.Connect(ctx); err != nil {
				return err
			}
			doctor, err := w.Account()
			if err != nil {
				return err
			}

			patientPub, err := adapter.GetUserPublicKey(ctx, patient)
			if err != nil {
				return fmt.Errorf("patient has no registered encryption key: %w", err)
			}

			contentKey := keys.GenerateContentKey()
			defer contentKey.Zero()
			wrapped, err := keys.Wrap(contentKey, patientPub)
			if err != nil {
				return err
			}

			store, err := blobstore.New(blobstore.Config{
				Path:   a.cfg.StorePath,
				Logger: logging.NewStoreLogger(a.cfg.LogLevel == "debug"),
			})
			if err != nil {
				return err
			}
			defer store.Close()

			// The nonce travels with the ciphertext so a record is
			// decryptable from its header plus the blob alone.
			nonce, ciphertext, err := blob.Encrypt(contentKey, plaintext)
			if err != nil {
				return err
			}
			contentID, err := store.Store(ctx, append(nonce, ciphertext...))
			if err != nil {
				return err
			}

			now := time.Now().Unix()
			header := ledger.RecordHeader{
				ID:            ledger.NewRecordID(patient, doctor, now),
				Patient:       patient,
				IssuingDoctor: doctor,
				IssuingOrg:    orgID,
				DoctorHandle:  handle,
				FileType:      fileType,
				ContentID:     contentID,
				ContentDigest: blob.Digest(plaintext),
				CreatedAt:     now,
			}

			tx, err := adapter.CreateRecord(ctx, header, wrapped)
			if err != nil {
				return err
			}
			if err := adapter.WaitForConfirmation(ctx, tx); err != nil {
				return err
			}

			a.log.Info("record created", "record", header.ID.Short(), "tx", tx)
			fmt.Fprintf(cmd.OutOrStdout(), "record id: %s\ncontent id: %s\n", header.ID.Hex(), contentID)
			return nil
		},
	}

	cmd.Flags().StringVar(&patientArg, "patient", "", "patient account address")
	cmd.Flags().StringVar(&fileType, "file-type", "document", "record file type label")
	cmd.Flags().StringVar(&orgID, "org", "", "issuing organization id")
	cmd.Flags().StringVar(&handle, "doctor-handle", "", "issuing doctor display handle")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}
