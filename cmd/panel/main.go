// Command raptor-panel is the control-plane entrypoint, wiring the store,
// RBAC seed, auth primitives, and HTTP surface into one running process.
// Entrypoint shape (cobra root command with a serve subcommand, version
// flags, graceful shutdown on signal) mirrors cmd/daemon/main.go, grounded
// on cuemby-warren's cmd/warren/main.go per that file's own header.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/raptor-panel/raptor/internal/panel/api"
	"github.com/raptor-panel/raptor/internal/panel/auth"
	"github.com/raptor-panel/raptor/internal/panel/config"
	"github.com/raptor-panel/raptor/internal/panel/service"
	"github.com/raptor-panel/raptor/internal/panel/store"
	applog "github.com/raptor-panel/raptor/pkg/log"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "raptor-panel",
	Short:   "Raptor control plane",
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control-plane API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := applog.New(applog.Options{Component: "panel", Debug: cfg.Debug, Version: version})

	st, err := store.Open(log, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := st.SeedRBAC(); err != nil {
		return fmt.Errorf("seed rbac: %w", err)
	}
	if err := st.SeedAdmin(cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	tokens := &auth.TokenIssuer{Secret: cfg.JWTSecret, ExpiryDays: cfg.JWTExpiryDays}
	svc := service.New(st, tokens, log, cfg.BcryptCost, cfg.AppURL)
	server := api.New(log, svc, tokens)

	return runHTTPServer(log, cfg.APIAddr, server.Router())
}

func runHTTPServer(log *logrus.Entry, addr string, handler http.Handler) error {
	httpServer := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("control-plane HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	}
}
