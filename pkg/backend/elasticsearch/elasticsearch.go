// Package elasticsearch is the search engine adapter.
//
// Search is optional. A failed or negative ping is logged and reported, and
// the raw client stays available so callers can degrade gracefully.
package elasticsearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/marmos91/backplane/internal/logger"
	"github.com/marmos91/backplane/pkg/backend"
	"github.com/marmos91/backplane/pkg/config"
)

// Name identifies this backend in logs, metrics and status output.
const Name = "elasticsearch"

var errNotInitialized = errors.New("adapter not initialized")

// Option configures a Search.
type Option func(*Search)

// WithLogger sets the logger used for connection events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Search) { s.logger = l }
}

// WithTransport sets the HTTP transport, e.g. for custom TLS.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Search) { s.transport = rt }
}

// Search is the search engine adapter.
type Search struct {
	opts      ClientOptions
	logger    *slog.Logger
	transport http.RoundTripper

	mu     sync.RWMutex
	state  backend.State
	client *elasticsearch.Client
}

var (
	_ backend.Backend       = (*Search)(nil)
	_ backend.Healthchecker = (*Search)(nil)
)

// New creates an uninitialized Search. Auth and server mode are resolved
// here, once.
func New(cfg config.ElasticsearchConfig, opts ...Option) *Search {
	s := &Search{opts: BuildClientOptions(cfg)}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.With(logger.KeyBackend, Name)
	} else {
		s.logger = s.logger.With(logger.KeyBackend, Name)
	}
	return s
}

func (s *Search) Name() string                     { return Name }
func (s *Search) Criticality() backend.Criticality { return backend.Optional }

// Options returns the resolved client options.
func (s *Search) Options() ClientOptions { return s.opts }

// State implements backend.Backend.
func (s *Search) State() backend.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Initialize builds the client. No request is sent.
func (s *Search) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == backend.StateClosed:
		return backend.NewError(Name, backend.KindClosed, nil)
	case s.client != nil:
		return nil
	}

	if s.transport == nil {
		// Owned so Disconnect can drop idle connections without touching
		// http.DefaultTransport.
		s.transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	client, err := elasticsearch.NewClient(s.opts.clientConfig(s.transport))
	if err != nil {
		return backend.NewError(Name, backend.KindConfig, fmt.Errorf("failed to create client: %w", err))
	}

	s.logger.DebugContext(ctx, "Creating Elasticsearch client",
		logger.KeyNode, s.opts.Node,
		logger.KeyAuth, s.opts.Auth.Kind.String(),
		logger.KeyMode, s.opts.ServerMode,
	)

	s.client = client
	s.state = backend.StateConnecting
	return nil
}

// Connect pings the cluster. A negative answer is logged as a warning, a
// transport error as an error; both leave the client usable and return
// backend.ErrUnreachable.
func (s *Search) Connect(ctx context.Context) error {
	s.mu.RLock()
	client, state := s.client, s.state
	s.mu.RUnlock()

	if state == backend.StateClosed {
		return backend.NewError(Name, backend.KindClosed, nil)
	}
	if client == nil {
		return backend.NewError(Name, backend.KindNotReady, errNotInitialized)
	}

	start := time.Now()
	status, err := ping(ctx, client)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == backend.StateClosed {
		return backend.NewError(Name, backend.KindClosed, nil)
	}

	switch {
	case err != nil:
		s.state = backend.StateFailed
		s.logger.ErrorContext(ctx, "Failed to connect to Elasticsearch", logger.KeyNode, s.opts.Node, logger.KeyError, err.Error())
		return backend.NewError(Name, backend.KindUnreachable, err)
	case status < 200 || status > 299:
		s.state = backend.StateFailed
		s.logger.WarnContext(ctx, "Elasticsearch ping returned a negative response", logger.KeyNode, s.opts.Node, logger.KeyStatus, status)
		return backend.NewError(Name, backend.KindUnreachable, fmt.Errorf("ping returned status %d", status))
	}

	s.state = backend.StateReady
	s.logger.InfoContext(ctx, "Connected to Elasticsearch",
		logger.KeyNode, s.opts.Node,
		logger.KeyDurationMs, logger.Duration(start),
	)
	return nil
}

func ping(ctx context.Context, client *elasticsearch.Client) (int, error) {
	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	return res.StatusCode, nil
}

// Disconnect drops the client and closes idle transport connections.
// Calling it before Initialize or more than once does nothing.
func (s *Search) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	if ci, ok := s.transport.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
	s.client = nil
	s.state = backend.StateClosed
	s.logger.InfoContext(ctx, "Elasticsearch client closed")
	return nil
}

// Client returns the raw client, or nil before Initialize and after
// Disconnect. It is usable while the adapter is Failed.
func (s *Search) Client() *elasticsearch.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Healthcheck pings the cluster.
func (s *Search) Healthcheck(ctx context.Context) error {
	client := s.Client()
	if client == nil {
		return backend.NewError(Name, backend.KindNotReady, errNotInitialized)
	}
	status, err := ping(ctx, client)
	if err != nil {
		return backend.NewError(Name, backend.KindUnreachable, err)
	}
	if status < 200 || status > 299 {
		return backend.NewError(Name, backend.KindUnreachable, fmt.Errorf("ping returned status %d", status))
	}
	return nil
}
