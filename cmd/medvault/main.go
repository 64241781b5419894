// medvault is the command line front of the MedVault verification core:
// key generation, record authoring, verification and the HTTP API server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nazeerbasha7/Med-Vault/internal/config"
	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
	"github.com/nazeerbasha7/Med-Vault/pkg/logging"
	"github.com/nazeerbasha7/Med-Vault/pkg/wallet"
)

type app struct {
	cfg config.Config
	log *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var configPath string

	root := &cobra.Command{
		Use:           "medvault",
		Short:         "Confidential medical record verification",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.New(logging.Options{Level: logging.ParseLevel(cfg.LogLevel)})
			slog.SetDefault(a.log)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "medvault.yaml", "config file path")

	root.AddCommand(
		newKeygenCmd(a),
		newCreateCmd(a),
		newFetchCmd(a),
		newVerifyCmd(a),
		newSummarizeCmd(a),
		newServeCmd(a),
		newTokenCmd(a),
	)
	return root
}

// readAdapter wires a read-only ledger adapter from config.
func (a *app) readAdapter() *ledger.Adapter {
	return ledger.NewAdapter(a.node(), nil, a.adapterOpts()...)
}

// writeAdapter wires an adapter backed by the local wallet from the
// environment seed.
func (a *app) writeAdapter() (*ledger.Adapter, *wallet.LocalWallet, error) {
	w, err := wallet.FromEnv(wallet.NodeSubmit(a.cfg.NodeURL, nil), wallet.WithLogger(a.log))
	if err != nil {
		return nil, nil, err
	}
	return ledger.NewAdapter(a.node(), w, a.adapterOpts()...), w, nil
}

func (a *app) node() *ledger.NodeClient {
	return ledger.NewNodeClient(a.cfg.NodeURL, ledger.Address(a.cfg.ModuleAddress),
		ledger.WithNodeLogger(a.log))
}

func (a *app) adapterOpts() []ledger.Option {
	return []ledger.Option{
		ledger.WithLogger(a.log),
		ledger.WithConfirmationPolicy(2*time.Second, a.cfg.ConfirmationAttempts),
	}
}
