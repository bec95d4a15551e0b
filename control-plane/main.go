package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	kexec "k8s.io/utils/exec"

	"github.com/saintparish4/fedsdn/control-plane/adapter"
	"github.com/saintparish4/fedsdn/control-plane/api"
	"github.com/saintparish4/fedsdn/control-plane/auth"
	"github.com/saintparish4/fedsdn/control-plane/config"
	"github.com/saintparish4/fedsdn/control-plane/database"
	"github.com/saintparish4/fedsdn/control-plane/federation"
	"github.com/saintparish4/fedsdn/control-plane/monitoring"
)

var version = "0.1.0"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:          "fedsdn-server",
		Short:        "Federated SDN manager",
		Long:         `Serves the federation REST API and drives the site adapters.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logger := cfg.Logging.SetDefaultLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, store, err := newServer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					logger.Error("failed to close entity store", "error", err)
				}
			}()
			return serve(ctx, srv, logger)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	cmd.AddCommand(hashPasswordCmd())
	return cmd
}

// hashPasswordCmd prints a bcrypt hash usable as auth.root_password.
func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print a bcrypt hash for the root_password setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// newServer opens and migrates the entity store and wires the registries,
// the adapter driver and the REST API into an http.Server.
func newServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*http.Server, *database.Store, error) {
	store, err := database.Open(cfg.Database.Options(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open entity store: %w", err)
	}
	migrations := federation.Migrations(cfg.Auth.RootUsername, cfg.Auth.RootPassword)
	if err := store.Migrate(ctx, version, migrations...); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to migrate entity store: %w", err)
	}

	var registry *monitoring.Registry
	monitor := adapter.NewMonitor()
	if cfg.Monitoring.Enabled {
		registry = monitoring.NewRegistry(cfg.Monitoring.Labels)
		registry.MustRegister(store, monitor)
	}

	driver := adapter.NewShellDriver(adapter.ShellOptions{
		Root:          cfg.Adapters.Root,
		MaxConcurrent: cfg.Adapters.MaxConcurrent,
		Timeout:       cfg.Adapters.Timeout,
	}, kexec.New(), monitor, logger)

	service := federation.NewService(store, driver, logger)
	authenticator := auth.New(service.Tenants, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	handler := api.NewFedSDNAPI(service, authenticator, registry, logger).Handler(cfg.Server.ProxyPath)

	return &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, store, nil
}

// serve runs srv until ctx is cancelled and then drains open requests.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("fedsdn server listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down fedsdn server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
