// Package redis is the cache client adapter.
//
// The cache is optional: a Redis outage is reported but never blocks startup,
// and the raw client stays usable in a degraded state because go-redis redials
// on its own.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/marmos91/backplane/internal/logger"
	"github.com/marmos91/backplane/pkg/backend"
	"github.com/marmos91/backplane/pkg/config"
)

// Name identifies this backend in logs, metrics and status output.
const Name = "redis"

var errNotInitialized = errors.New("adapter not initialized")

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for connection events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// Cache is the cache client adapter.
type Cache struct {
	cfg    config.RedisConfig
	logger *slog.Logger

	mu     sync.RWMutex
	state  backend.State
	client *redis.Client

	// probe tracks the background ping started by Initialize.
	probeDone   chan struct{}
	probeErr    error
	cancelProbe context.CancelFunc
}

var (
	_ backend.Backend       = (*Cache)(nil)
	_ backend.Healthchecker = (*Cache)(nil)
)

// New creates an uninitialized Cache.
func New(cfg config.RedisConfig, opts ...Option) *Cache {
	c := &Cache{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.With(logger.KeyBackend, Name)
	} else {
		c.logger = c.logger.With(logger.KeyBackend, Name)
	}
	return c
}

// BuildOptions maps the cache configuration onto client options. An unset
// password leaves the client without AUTH.
func BuildOptions(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr: cfg.Addr(),
		DB:   cfg.DB,
	}
	if cfg.Password != nil {
		opts.Password = *cfg.Password
	}
	return opts
}

func (c *Cache) Name() string                     { return Name }
func (c *Cache) Criticality() backend.Criticality { return backend.Optional }

// State implements backend.Backend.
func (c *Cache) State() backend.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Initialize builds the client and starts a background ping. It returns
// without waiting for the ping.
func (c *Cache) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == backend.StateClosed:
		return backend.NewError(Name, backend.KindClosed, nil)
	case c.client != nil:
		return nil
	}

	opts := BuildOptions(c.cfg)
	opts.OnConnect = func(ctx context.Context, cn *redis.Conn) error {
		c.logger.InfoContext(ctx, "Redis connection established", logger.KeyAddr, opts.Addr, logger.KeyDB, opts.DB)
		return nil
	}

	client := redis.NewClient(opts)
	client.AddHook(dialErrorHook{logger: c.logger})

	c.logger.DebugContext(ctx, "Creating Redis client",
		logger.KeyAddr, opts.Addr,
		logger.KeyDB, opts.DB,
		logger.KeyAuth, opts.Password != "",
	)

	probeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := client.Ping(probeCtx).Err()
		c.mu.Lock()
		c.probeErr = err
		c.mu.Unlock()
	}()

	c.client = client
	c.probeDone = done
	c.cancelProbe = cancel
	c.state = backend.StateConnecting
	return nil
}

// Connect waits for the background ping started by Initialize. On failure
// the adapter is Failed, but Client keeps returning the usable handle.
func (c *Cache) Connect(ctx context.Context) error {
	c.mu.RLock()
	done, state := c.probeDone, c.state
	c.mu.RUnlock()

	if state == backend.StateClosed {
		return backend.NewError(Name, backend.KindClosed, nil)
	}
	if done == nil {
		return backend.NewError(Name, backend.KindNotReady, errNotInitialized)
	}

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == backend.StateClosed {
		return backend.NewError(Name, backend.KindClosed, nil)
	}
	if err == nil {
		err = c.probeErr
	}
	if err != nil {
		c.state = backend.StateFailed
		c.logger.WarnContext(ctx, "Redis unavailable, continuing without cache", logger.KeyError, err)
		return backend.NewError(Name, backend.KindUnreachable, err)
	}

	c.state = backend.StateReady
	return nil
}

// Disconnect closes the client. Calling it before Initialize or more than
// once does nothing.
func (c *Cache) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	c.cancelProbe()
	err := c.client.Close()

	c.client = nil
	c.state = backend.StateClosed
	c.logger.InfoContext(ctx, "Redis client closed")
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}

// Client returns the raw client, or nil before Initialize and after
// Disconnect. It is usable while the adapter is Failed.
func (c *Cache) Client() *redis.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Options returns the options the client was built with, or the options it
// would be built with before Initialize.
func (c *Cache) Options() *redis.Options {
	if client := c.Client(); client != nil {
		return client.Options()
	}
	return BuildOptions(c.cfg)
}

// Healthcheck pings the server.
func (c *Cache) Healthcheck(ctx context.Context) error {
	client := c.Client()
	if client == nil {
		return backend.NewError(Name, backend.KindNotReady, errNotInitialized)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return backend.NewError(Name, backend.KindUnreachable, err)
	}
	return nil
}

// dialErrorHook reports failed dials. go-redis retries on its own, so these
// are logged and never returned to the lifecycle.
type dialErrorHook struct {
	logger *slog.Logger
}

func (h dialErrorHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil && !errors.Is(err, context.Canceled) {
			h.logger.ErrorContext(ctx, "Redis connection error", logger.KeyAddr, addr, logger.KeyError, err)
		}
		return conn, err
	}
}

func (h dialErrorHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (h dialErrorHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}
