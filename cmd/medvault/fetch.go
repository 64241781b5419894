package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nazeerbasha7/Med-Vault/internal/blobstore"
	"github.com/nazeerbasha7/Med-Vault/pkg/blob"
	"github.com/nazeerbasha7/Med-Vault/pkg/keys"
	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
	"github.com/nazeerbasha7/Med-Vault/pkg/logging"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		keystorePath string
		passphrase   string
		viewerArg    string
		out          string
	)

	cmd := &cobra.Command{
		Use:   "fetch <recordId>",
		Short: "Fetch and decrypt a record the viewer was granted access to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := ledger.ParseRecordID(args[0])
			if err != nil {
				return err
			}
			viewer, err := ledger.ParseAddress(viewerArg)
			if err != nil {
				return fmt.Errorf("invalid viewer address %q", viewerArg)
			}

			adapter := a.readAdapter()
			header, err := adapter.GetRecordHeader(ctx, id)
			if err != nil {
				return err
			}
			wrapped, err := adapter.GetWrappedKey(ctx, id, viewer)
			if err != nil {
				return err
			}
			if wrapped == nil {
				return fmt.Errorf("no access to record %s", id.Short())
			}

			sealed, err := os.ReadFile(keystorePath)
			if err != nil {
				return fmt.Errorf("reading keystore %s: %w", keystorePath, err)
			}

			store, err := blobstore.New(blobstore.Config{
				Path:   a.cfg.StorePath,
				Logger: logging.NewStoreLogger(a.cfg.LogLevel == "debug"),
			})
			if err != nil {
				return err
			}
			defer store.Close()

			payload, err := store.Fetch(ctx, header.ContentID)
			if err != nil {
				return err
			}
			if len(payload) < blob.NonceSize {
				return blob.ErrAuthenticationFailed
			}
			nonce, ciphertext := payload[:blob.NonceSize], payload[blob.NonceSize:]

			var plaintext []byte
			err = keys.WithPrivateKey(sealed, []byte(passphrase), func(kp *keys.ViewerKeyPair) error {
				contentKey, err := keys.Unwrap(wrapped, kp)
				if err != nil {
					return err
				}
				defer contentKey.Zero()

				plaintext, err = blob.Decrypt(contentKey, nonce, ciphertext)
				return err
			})
			if err != nil {
				return err
			}

			if blob.Digest(plaintext) != header.ContentDigest {
				return blob.ErrAuthenticationFailed
			}

			if err := os.WriteFile(out, plaintext, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			a.log.Info("record decrypted", "record", id.Short(), "out", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keystorePath, "keystore", "k", "viewer.key", "sealed private key path")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "keystore passphrase")
	cmd.Flags().StringVar(&viewerArg, "viewer", "", "viewer account address")
	cmd.Flags().StringVarP(&out, "out", "o", "record.out", "decrypted output path")
	_ = cmd.MarkFlagRequired("viewer")
	return cmd
}
