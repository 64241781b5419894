package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nazeerbasha7/Med-Vault/internal/workerpool"
	"github.com/nazeerbasha7/Med-Vault/pkg/apiServer"
	"github.com/nazeerbasha7/Med-Vault/pkg/dashboard"
	"github.com/nazeerbasha7/Med-Vault/pkg/verify"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the verification HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.JWTSecret == "" {
				return errors.New("a JWT secret is required to serve authenticated endpoints")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			adapter := a.readAdapter()
			engine := verify.NewEngine(adapter, verify.WithLogger(a.log))

			pool := workerpool.New(workerpool.Config{Workers: 8})
			defer pool.Close()
			agg := dashboard.NewAggregator(adapter, engine, pool, dashboard.WithLogger(a.log))

			srv := &http.Server{
				Addr: a.cfg.ListenAddr,
				Handler: apiServer.New(engine, agg,
					apiServer.WithLogger(a.log),
					apiServer.WithAuth(apiServer.JWTAuth([]byte(a.cfg.JWTSecret)))),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("api server listening", "addr", a.cfg.ListenAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("api server: %w", err)
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
