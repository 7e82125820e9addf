// Package postgres is the relational store adapter.
//
// It owns a pgx connection pool and a GORM handle layered over the same pool,
// so callers can choose raw pgx access or the ORM without opening a second set
// of connections. Both handles are gated: they are only handed out once the
// pool has answered a ping.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/backplane/internal/logger"
	"github.com/marmos91/backplane/pkg/backend"
	"github.com/marmos91/backplane/pkg/config"
)

// Name identifies this backend in logs, metrics and status output.
const Name = "postgres"

var errNotInitialized = errors.New("adapter not initialized")

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for connection events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithGormLogger overrides the GORM query logger. GORM is silent by default.
func WithGormLogger(l gormlogger.Interface) Option {
	return func(s *Store) { s.gormLogger = l }
}

// Store is the relational store adapter.
type Store struct {
	cfg        config.DatabaseConfig
	logger     *slog.Logger
	gormLogger gormlogger.Interface

	mu    sync.RWMutex
	state backend.State
	pool  *pgxpool.Pool
	sqlDB *sql.DB
	db    *gorm.DB
}

var (
	_ backend.Backend       = (*Store)(nil)
	_ backend.Healthchecker = (*Store)(nil)
)

// New creates an uninitialized Store.
func New(cfg config.DatabaseConfig, opts ...Option) *Store {
	s := &Store{
		cfg:        cfg,
		gormLogger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
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

func (s *Store) Name() string                     { return Name }
func (s *Store) Criticality() backend.Criticality { return backend.Required }

// State implements backend.Backend.
func (s *Store) State() backend.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Initialize parses the connection string and builds the pool and the GORM
// handle. No connection is opened; pool sizing comes from the URL
// (pool_max_conns, pool_min_conns, ...).
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == backend.StateClosed:
		return backend.NewError(Name, backend.KindClosed, nil)
	case s.pool != nil:
		return nil
	}

	poolConfig, err := pgxpool.ParseConfig(s.cfg.URL)
	if err != nil {
		return backend.NewError(Name, backend.KindConfig, fmt.Errorf("failed to parse connection string: %w", err))
	}

	s.logger.DebugContext(ctx, "Creating PostgreSQL connection pool",
		logger.KeyHost, poolConfig.ConnConfig.Host,
		logger.KeyPort, poolConfig.ConnConfig.Port,
		logger.KeyDatabase, poolConfig.ConnConfig.Database,
		logger.KeyUser, poolConfig.ConnConfig.User,
		logger.KeyMaxConns, poolConfig.MaxConns,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return backend.NewError(Name, backend.KindConfig, fmt.Errorf("failed to create connection pool: %w", err))
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(gormpg.New(gormpg.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               s.gormLogger,
		DisableAutomaticPing: true,
	})
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return backend.NewError(Name, backend.KindConfig, fmt.Errorf("failed to open gorm handle: %w", err))
	}

	s.pool, s.sqlDB, s.db = pool, sqlDB, db
	s.state = backend.StateConnecting
	return nil
}

// Connect pings the pool. A failure leaves the adapter in StateFailed and is
// returned as backend.ErrUnreachable.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.RLock()
	pool, state := s.pool, s.state
	s.mu.RUnlock()

	if state == backend.StateClosed {
		return backend.NewError(Name, backend.KindClosed, nil)
	}
	if pool == nil {
		return backend.NewError(Name, backend.KindNotReady, errNotInitialized)
	}

	start := time.Now()
	err := pool.Ping(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == backend.StateClosed {
		return backend.NewError(Name, backend.KindClosed, nil)
	}
	if err != nil {
		s.state = backend.StateFailed
		s.logger.ErrorContext(ctx, "Failed to connect to PostgreSQL", logger.KeyError, err)
		return backend.NewError(Name, backend.KindUnreachable, fmt.Errorf("failed to ping PostgreSQL: %w", err))
	}

	s.state = backend.StateReady
	s.logger.InfoContext(ctx, "Connected to PostgreSQL",
		logger.KeyHost, pool.Config().ConnConfig.Host,
		logger.KeyDatabase, pool.Config().ConnConfig.Database,
		logger.KeyDurationMs, logger.Duration(start),
	)
	return nil
}

// Disconnect closes the GORM wrapper and the pool. Calling it before
// Initialize or more than once does nothing.
func (s *Store) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return nil
	}

	var err error
	if cerr := s.sqlDB.Close(); cerr != nil {
		err = fmt.Errorf("failed to close database handle: %w", cerr)
	}
	s.pool.Close()

	s.pool, s.sqlDB, s.db = nil, nil, nil
	s.state = backend.StateClosed
	s.logger.InfoContext(ctx, "PostgreSQL connection pool closed")
	return err
}

// Pool returns the pgx pool once the store is Ready.
func (s *Store) Pool() (*pgxpool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readyLocked(); err != nil {
		return nil, err
	}
	return s.pool, nil
}

// DB returns the GORM handle once the store is Ready.
func (s *Store) DB() (*gorm.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readyLocked(); err != nil {
		return nil, err
	}
	return s.db, nil
}

func (s *Store) readyLocked() error {
	switch s.state {
	case backend.StateReady:
		return nil
	case backend.StateClosed:
		return backend.NewError(Name, backend.KindClosed, nil)
	default:
		return backend.NewError(Name, backend.KindNotReady, fmt.Errorf("state is %s", s.state))
	}
}

// Healthcheck verifies the pool can still serve a round trip.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	pool := s.pool
	s.mu.RUnlock()
	if pool == nil {
		return backend.NewError(Name, backend.KindNotReady, errNotInitialized)
	}

	if err := pool.Ping(ctx); err != nil {
		return backend.NewError(Name, backend.KindUnreachable, err)
	}
	return nil
}
