package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nazeerbasha7/Med-Vault/pkg/keys"
)

func newKeygenCmd(a *app) *cobra.Command {
	var out string
	var passphrase string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a viewer key pair and seal the private key to disk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passphrase == "" {
				return fmt.Errorf("a passphrase is required to seal the private key")
			}

			kp, err := keys.GenerateViewerKeyPair()
			if err != nil {
				return err
			}
			defer kp.Zero()

			sealed, err := keys.SealPrivateKey(kp, []byte(passphrase))
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, sealed, 0o600); err != nil {
				return fmt.Errorf("writing keystore %s: %w", out, err)
			}

			a.log.Info("viewer key pair generated", "keystore", out)
			fmt.Fprintf(cmd.OutOrStdout(), "public key: 0x%s\n", hex.EncodeToString(kp.PublicKey[:]))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "viewer.key", "keystore output path")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "keystore passphrase")
	return cmd
}
