package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/backplane/internal/logger"
)

// DefaultShutdownTimeout is the default timeout for graceful shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// AuxiliaryServer is an interface for servers that run alongside the
// backends, such as the ops HTTP server.
type AuxiliaryServer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Port() int
}

// RunOptions configures Run.
type RunOptions struct {
	// StartupTimeout bounds Start. Zero means no bound.
	StartupTimeout time.Duration
	// ShutdownTimeout bounds Shutdown. Zero means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
	// Servers are started before the backends, so health endpoints answer
	// while startup is in progress, and stopped before them.
	Servers []AuxiliaryServer
}

// Run starts the auxiliary servers, then the backends, and blocks until ctx
// is done or a server fails. A server failure during startup interrupts
// Start. Everything is shut down before Run returns. Cancellation of ctx is
// a normal stop and returns nil.
func (m *Manager) Run(ctx context.Context, opts RunOptions) error {
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	defer m.shutdownWithTimeout(opts.ShutdownTimeout)

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	serverErr := make(chan error, len(opts.Servers))
	for _, srv := range opts.Servers {
		m.logger.Info("Starting auxiliary server", logger.KeyPort, srv.Port())
		go func(srv AuxiliaryServer) {
			if err := srv.Start(runCtx); err != nil {
				serverErr <- fmt.Errorf("server on port %d: %w", srv.Port(), err)
				stopRun()
			}
		}(srv)
	}
	defer m.stopServers(opts.Servers)

	startCtx, cancel := runCtx, context.CancelFunc(func() {})
	if opts.StartupTimeout > 0 {
		startCtx, cancel = context.WithTimeout(runCtx, opts.StartupTimeout)
	}
	err := m.Start(startCtx)
	cancel()
	if err != nil {
		select {
		case serr := <-serverErr:
			m.logger.Error("Auxiliary server failed during startup", logger.KeyError, serr)
			return serr
		default:
		}
		return fmt.Errorf("startup failed: %w", err)
	}

	select {
	case <-ctx.Done():
		m.logger.Info("Shutdown signal received", "reason", ctx.Err())
		return nil
	case err := <-serverErr:
		m.logger.Error("Auxiliary server failed, initiating shutdown", logger.KeyError, err)
		return err
	}
}

func (m *Manager) stopServers(servers []AuxiliaryServer) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Stop(ctx); err != nil {
			m.logger.Error("Auxiliary server shutdown error", logger.KeyPort, srv.Port(), logger.KeyError, err)
		}
	}
}

func (m *Manager) shutdownWithTimeout(d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	m.Shutdown(ctx)
}
