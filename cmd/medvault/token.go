package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nazeerbasha7/Med-Vault/pkg/apiServer"
	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
)

func newTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token <address>",
		Short: "Issue an API bearer token for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.JWTSecret == "" {
				return errors.New("a JWT secret is required to issue tokens")
			}
			addr, err := ledger.ParseAddress(args[0])
			if err != nil {
				return err
			}
			token, err := apiServer.IssueToken([]byte(a.cfg.JWTSecret), addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
