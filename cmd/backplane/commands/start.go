package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/marmos91/backplane/internal/logger"
	"github.com/marmos91/backplane/pkg/api"
	"github.com/marmos91/backplane/pkg/lifecycle"
	"github.com/marmos91/backplane/pkg/metrics"
	"github.com/marmos91/backplane/pkg/stack"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Connect every backend and serve health endpoints until signalled",
	Long: `Connect PostgreSQL, Redis, Neo4j and Elasticsearch in that order, then
serve the ops endpoints until SIGINT or SIGTERM. On exit every backend is
disconnected in reverse order.

The ops server listens on OPS_PORT and exposes /health, /health/ready and
/health/backends. /metrics is added when METRICS_ENABLED is true.

Examples:
  # Start with the default dotenv file (.env.$APP_ENV)
  backplane start

  # Start with a specific file and debug logging
  LOG_LEVEL=DEBUG backplane start --env-file .env.staging`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownObservability, err := initObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownObservability()

	// Metrics must be enabled before the stack is built so the lifecycle
	// manager picks up its collectors.
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = metrics.InitRegistry()
		logger.Info("Metrics enabled", logger.KeyPort, cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	st := stack.New(cfg)
	opsServer := api.NewServer(api.APIConfig{Port: cfg.Metrics.Port}, st.Manager, gatherer)

	logger.Info("Starting backends",
		"env", cfg.Env,
		"startup_timeout", cfg.Server.StartupTimeout.String(),
		"shutdown_timeout", cfg.Server.ShutdownTimeout.String(),
	)

	err = st.Manager.Run(ctx, lifecycle.RunOptions{
		StartupTimeout:  cfg.Server.StartupTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Servers:         []lifecycle.AuxiliaryServer{opsServer},
	})
	if err != nil {
		logger.Error("Backplane stopped with error", logger.KeyError, err)
		return err
	}
	logger.Info("Backplane stopped")
	return nil
}
