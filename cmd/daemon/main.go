// Command raptord is the node agent entrypoint, wiring the engine driver,
// state/credential stores, per-container locks, database provisioner,
// streaming registries, FTP server, and HTTP/WS surface into one running
// process. Entrypoint shape (cobra root command with a serve subcommand,
// version flags, graceful shutdown on signal) is grounded on
// cuemby-warren's cmd/warren/main.go, the pack's other container
// orchestrator CLI, since the teacher (lazydocker) has no HTTP server of
// its own to model this on.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/raptor-panel/raptor/internal/daemon/api"
	"github.com/raptor-panel/raptor/internal/daemon/config"
	"github.com/raptor-panel/raptor/internal/daemon/credentials"
	"github.com/raptor-panel/raptor/internal/daemon/dbprovisioner"
	"github.com/raptor-panel/raptor/internal/daemon/engine"
	"github.com/raptor-panel/raptor/internal/daemon/ftp"
	"github.com/raptor-panel/raptor/internal/daemon/locks"
	"github.com/raptor-panel/raptor/internal/daemon/state"
	"github.com/raptor-panel/raptor/internal/daemon/stream"
	"github.com/raptor-panel/raptor/pkg/idgen"
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
	Use:     "raptord",
	Short:   "Raptor node agent",
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent HTTP/WS server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := applog.New(applog.Options{Component: "daemon", Debug: cfg.Debug, Version: version})

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	drv, err := engine.New(log, cfg.DockerHost)
	if err != nil {
		return fmt.Errorf("connect to engine: %w", err)
	}
	defer drv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	pingErr := drv.Ping(ctx)
	cancel()
	if pingErr != nil {
		log.WithError(pingErr).Warn("engine ping failed at startup, continuing anyway")
	}

	if err := drv.EnsureNetwork(context.Background()); err != nil {
		return fmt.Errorf("ensure network: %w", err)
	}

	stateStore, err := state.New(cfg.DataDir + "/daemon-state.json")
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	credStore, err := credentials.New(cfg.FTPBasePath + "/ftp_credentials.json")
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	lockRegistry := locks.New()

	provisioner, err := dbprovisioner.New(log, drv, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("load db provisioner: %w", err)
	}

	return runServers(log, cfg, drv, stateStore, credStore, lockRegistry, provisioner)
}

// logsProducer bridges the registry's pub-func shape to engine.LogsStream's
// channel shape: it forwards every line from a freshly opened channel into
// the broadcaster's Publish closure until the stream context is cancelled.
func logsProducer(drv *engine.Driver) func(context.Context, uuid.UUID, stream.Kind, func(engine.LogLine)) {
	return func(ctx context.Context, id uuid.UUID, kind stream.Kind, pub func(engine.LogLine)) {
		ch := make(chan engine.LogLine)
		go func() {
			for line := range ch {
				pub(line)
			}
		}()
		drv.LogsStream(ctx, idgen.EngineName(id), "", ch)
	}
}

func statsProducer(drv *engine.Driver) func(context.Context, uuid.UUID, stream.Kind, func(engine.ContainerStats)) {
	return func(ctx context.Context, id uuid.UUID, kind stream.Kind, pub func(engine.ContainerStats)) {
		ch := make(chan engine.ContainerStats)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for sample := range ch {
				pub(sample)
			}
		}()
		if err := drv.StatsStream(ctx, idgen.EngineName(id), ch); err != nil {
			drv.Log.WithError(err).Warn("stats stream ended")
		}
		close(ch)
		<-done
	}
}

func runServers(log *logrus.Entry, cfg *config.Config, drv *engine.Driver, stateStore *state.Store, credStore *credentials.Store, lockRegistry *locks.Registry, provisioner *dbprovisioner.Provisioner) error {
	logsRegistry := stream.NewRegistry(logsProducer(drv))
	statsRegistry := stream.NewRegistry(statsProducer(drv))

	server := api.New(log, cfg.APIKey, cfg.FTPBasePath, drv, stateStore, credStore, lockRegistry, provisioner, logsRegistry, statsRegistry)

	httpServer := &http.Server{Addr: cfg.Addr, Handler: server.Router()}

	ftpAuth := &ftp.Authenticator{Store: credStore, BasePath: cfg.FTPBasePath}
	ftpServer := ftp.New(log, ftpAuth, fmt.Sprintf("0.0.0.0:%d", cfg.FTPPort), cfg.FTPHost)

	errCh := make(chan error, 2)

	go func() {
		log.WithField("addr", cfg.Addr).Info("agent HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", cfg.FTPPort))
		if err != nil {
			errCh <- fmt.Errorf("ftp listen: %w", err)
			return
		}
		log.WithField("port", cfg.FTPPort).Info("ftp server listening")
		if err := ftpServer.Serve(ln); err != nil {
			errCh <- fmt.Errorf("ftp server: %w", err)
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
