// Package neo4j is the graph store adapter.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/marmos91/backplane/internal/logger"
	"github.com/marmos91/backplane/pkg/backend"
	"github.com/marmos91/backplane/pkg/config"
)

// Name identifies this backend in logs, metrics and status output.
const Name = "neo4j"

var errNotInitialized = errors.New("adapter not initialized")

// DriverFactory creates a driver. It must not perform network I/O.
type DriverFactory func(uri string, token neo4j.AuthToken) (neo4j.DriverWithContext, error)

func defaultDriverFactory(uri string, token neo4j.AuthToken) (neo4j.DriverWithContext, error) {
	return neo4j.NewDriverWithContext(uri, token)
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for connection events.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// WithDriverFactory replaces the driver constructor.
func WithDriverFactory(f DriverFactory) Option {
	return func(g *Graph) { g.newDriver = f }
}

// Graph is the graph store adapter.
type Graph struct {
	cfg       config.Neo4jConfig
	logger    *slog.Logger
	newDriver DriverFactory

	mu     sync.RWMutex
	state  backend.State
	driver neo4j.DriverWithContext
}

var (
	_ backend.Backend       = (*Graph)(nil)
	_ backend.Healthchecker = (*Graph)(nil)
)

// New creates an uninitialized Graph.
func New(cfg config.Neo4jConfig, opts ...Option) *Graph {
	g := &Graph{cfg: cfg, newDriver: defaultDriverFactory}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logger.With(logger.KeyBackend, Name)
	} else {
		g.logger = g.logger.With(logger.KeyBackend, Name)
	}
	return g
}

func (g *Graph) Name() string                     { return Name }
func (g *Graph) Criticality() backend.Criticality { return backend.Required }

// State implements backend.Backend.
func (g *Graph) State() backend.State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Initialize creates the driver with basic auth. Connectivity is not checked.
func (g *Graph) Initialize(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.state == backend.StateClosed:
		return backend.NewError(Name, backend.KindClosed, nil)
	case g.driver != nil:
		return nil
	}

	g.logger.DebugContext(ctx, "Creating Neo4j driver",
		logger.KeyURI, g.cfg.URI,
		logger.KeyUser, g.cfg.User,
		logger.KeyDatabase, g.cfg.Database,
	)

	driver, err := g.newDriver(g.cfg.URI, neo4j.BasicAuth(g.cfg.User, g.cfg.Password, ""))
	if err != nil {
		return backend.NewError(Name, backend.KindConfig, fmt.Errorf("failed to create driver: %w", err))
	}

	g.driver = driver
	g.state = backend.StateConnecting
	return nil
}

// Connect verifies connectivity. Failures are logged and returned.
func (g *Graph) Connect(ctx context.Context) error {
	g.mu.RLock()
	driver, state := g.driver, g.state
	g.mu.RUnlock()

	if state == backend.StateClosed {
		return backend.NewError(Name, backend.KindClosed, nil)
	}
	if driver == nil {
		return backend.NewError(Name, backend.KindNotReady, errNotInitialized)
	}

	start := time.Now()
	err := driver.VerifyConnectivity(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == backend.StateClosed {
		return backend.NewError(Name, backend.KindClosed, nil)
	}
	if err != nil {
		g.state = backend.StateFailed
		g.logger.ErrorContext(ctx, "Failed to connect to Neo4j", logger.KeyURI, g.cfg.URI, logger.KeyError, err)
		return backend.NewError(Name, backend.KindUnreachable, fmt.Errorf("connectivity verification failed: %w", err))
	}

	g.state = backend.StateReady
	g.logger.InfoContext(ctx, "Connected to Neo4j",
		logger.KeyURI, g.cfg.URI,
		logger.KeyDurationMs, logger.Duration(start),
	)
	return nil
}

// Disconnect closes the driver. Calling it before Initialize or more than
// once does nothing.
func (g *Graph) Disconnect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.driver == nil {
		return nil
	}

	err := g.driver.Close(ctx)
	g.driver = nil
	g.state = backend.StateClosed
	g.logger.InfoContext(ctx, "Neo4j driver closed")
	if err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	return nil
}

// Driver returns the underlying driver once the graph is Ready.
func (g *Graph) Driver() (neo4j.DriverWithContext, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	switch g.state {
	case backend.StateReady:
		return g.driver, nil
	case backend.StateClosed:
		return nil, backend.NewError(Name, backend.KindClosed, nil)
	default:
		return nil, backend.NewError(Name, backend.KindNotReady, fmt.Errorf("state is %s", g.state))
	}
}

// Healthcheck re-verifies connectivity.
func (g *Graph) Healthcheck(ctx context.Context) error {
	g.mu.RLock()
	driver := g.driver
	g.mu.RUnlock()
	if driver == nil {
		return backend.NewError(Name, backend.KindNotReady, errNotInitialized)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return backend.NewError(Name, backend.KindUnreachable, err)
	}
	return nil
}
