package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	healthshare "github.com/ozanturksever/go-healthshare"
	"github.com/ozanturksever/go-healthshare/probe"
	"github.com/ozanturksever/go-healthshare/transport"
)

const cpuSampleInterval = 500 * time.Millisecond

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the health sharing daemon",
	Long: `Start a node that publishes its health to the cluster.

The node will:
- Connect to NATS and join the cluster membership
- Publish its health every refresh interval
- Serve /metrics, /cluster/health and /health over HTTP
- Remove its health entry on shutdown

Example:
  healthshare run --cluster prod --node-name web-1 --node-port 8080
  healthshare run --config /etc/healthshare/healthshare.yaml`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Run-specific flags
	runCmd.Flags().String("member", "", "Member ID (default: random)")
	runCmd.Flags().String("listen", "", "HTTP address for metrics and health endpoints")
	runCmd.Flags().String("node-type", "", "Node type (APPLICATION or SEARCH)")
	runCmd.Flags().String("node-name", "", "Node name (default: hostname)")
	runCmd.Flags().String("node-host", "", "Node host (default: hostname)")
	runCmd.Flags().Int("node-port", 0, "Node port")
	runCmd.Flags().Duration("interval", 0, "Health refresh interval")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := cfg.Logger()

	details, err := cfg.NodeDetails(time.Now())
	if err != nil {
		return fmt.Errorf("invalid node: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nt, err := transport.NewNATS(cfg.NATSConfig(logger, false))
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}
	if err := nt.Start(ctx); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}
	defer func() {
		if err := nt.Stop(); err != nil {
			logger.Warn("failed to stop transport", "error", err)
		}
	}()

	provider := newProvider(cfg, details, nt, logger)
	metrics := healthshare.NewMetrics()

	opts := []healthshare.Option{
		healthshare.WithLogger(logger),
		healthshare.WithMetrics(metrics),
		healthshare.WithInitialDelay(cfg.Refresh.InitialDelay),
		healthshare.WithRefreshInterval(cfg.Refresh.Interval),
		healthshare.WithShutdownTimeout(cfg.Refresh.ShutdownTimeout),
	}

	sharing, err := healthshare.NewSharing(nt, provider, opts...)
	if err != nil {
		return fmt.Errorf("failed to create health sharing: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newMux(sharing.SharedState(), metrics, opts...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if err := sharing.Start(ctx); err != nil {
		_ = server.Close()
		return fmt.Errorf("failed to start health sharing: %w", err)
	}

	logger.Info("healthshare daemon started",
		"cluster", cfg.ClusterID,
		"member", nt.LocalMember(),
		"node", details,
		"listen", cfg.Listen,
	)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		runErr = fmt.Errorf("http server: %w", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*cfg.Refresh.ShutdownTimeout+5*time.Second)
	defer cancel()

	sharing.Stop(stopCtx)
	if err := server.Shutdown(stopCtx); err != nil {
		logger.Warn("failed to shut down http server", "error", err)
	}

	logger.Info("healthshare daemon stopped")
	return runErr
}

// newProvider assembles the local health checks from cfg.
func newProvider(cfg *Config, details healthshare.NodeDetails, nt *transport.NATS, logger *slog.Logger) *probe.Provider {
	p := probe.NewProvider(details, probe.WithLogger(logger))
	p.Register("nats", probe.Connected("NATS", nt.Connected))
	if c := cfg.Checks; c.DiskRed > 0 && c.DiskPath != "" {
		p.Register("disk", probe.DiskUsage(c.DiskPath, c.DiskYellow, c.DiskRed))
	}
	if c := cfg.Checks; c.MemoryRed > 0 {
		p.Register("memory", probe.MemoryUsage(c.MemoryYellow, c.MemoryRed))
	}
	if c := cfg.Checks; c.CPURed > 0 {
		p.Register("cpu", probe.CPUUsage(cpuSampleInterval, c.CPUYellow, c.CPURed))
	}
	return p
}

func newMux(state *healthshare.SharedHealthState, metrics *healthshare.Metrics, opts ...healthshare.Option) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/cluster/health", healthshare.NewHealthHandler(state, opts...))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})
	return mux
}
