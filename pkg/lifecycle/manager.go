// Package lifecycle orchestrates the startup and teardown of backends.
//
// Backends start sequentially in registration order and stop in reverse
// order. A required backend that fails aborts startup; an optional one is
// logged and leaves the orchestrator degraded. Teardown always visits every
// backend and never fails.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/marmos91/backplane/internal/logger"
	"github.com/marmos91/backplane/internal/telemetry"
	"github.com/marmos91/backplane/pkg/backend"
	"github.com/marmos91/backplane/pkg/metrics"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("lifecycle already started")
	// ErrStopped is returned when Start is called after Shutdown.
	ErrStopped = errors.New("lifecycle stopped")
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics sets the metrics sink. nil disables metrics.
func WithMetrics(lm metrics.LifecycleMetrics) Option {
	return func(m *Manager) { m.metrics = lm }
}

// Manager owns a fixed set of backends and drives them through their
// lifecycle.
type Manager struct {
	backends []backend.Backend
	logger   *slog.Logger
	metrics  metrics.LifecycleMetrics

	mu       sync.RWMutex
	status   Status
	started  bool
	results  map[string]*result
	stopOnce sync.Once
}

type result struct {
	err      error
	duration time.Duration
}

// NewManager creates a Manager for backends. Registration order is startup
// order.
func NewManager(backends []backend.Backend, opts ...Option) *Manager {
	m := &Manager{
		backends: backends,
		results:  make(map[string]*result, len(backends)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.With(logger.KeyComponent, "lifecycle")
	}
	for _, b := range backends {
		m.results[b.Name()] = &result{}
	}
	return m
}

// Start initializes and connects every backend in order. It returns the
// first required backend's error, leaving later backends untouched. Optional
// failures are logged and only degrade the status.
func (m *Manager) Start(ctx context.Context) (err error) {
	m.mu.Lock()
	switch {
	case m.status == StatusStopped:
		m.mu.Unlock()
		return ErrStopped
	case m.started:
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.status = StatusInitializing
	m.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanStart)
	span.SetAttributes(telemetry.Count(len(m.backends)))
	defer func() {
		span.SetAttributes(telemetry.Status(m.Status().String()))
		telemetry.EndSpan(span, err)
	}()

	start := time.Now()
	var degraded []string

	for _, b := range m.backends {
		if err := m.startBackend(ctx, b); err != nil {
			if b.Criticality() == backend.Required {
				m.setStatus(StatusFailed)
				m.logger.ErrorContext(ctx, "Required backend failed, aborting startup",
					logger.KeyBackend, b.Name(),
					logger.KeyErrorKind, backend.KindOf(err).String(),
					logger.KeyError, err,
				)
				return err
			}
			m.logger.WarnContext(ctx, "Optional backend unavailable, continuing degraded",
				logger.KeyBackend, b.Name(),
				logger.KeyErrorKind, backend.KindOf(err).String(),
				logger.KeyError, err,
			)
			degraded = append(degraded, b.Name())
		}

		if cerr := ctx.Err(); cerr != nil {
			m.setStatus(StatusFailed)
			m.logger.ErrorContext(ctx, "Startup interrupted", logger.KeyError, cerr)
			return fmt.Errorf("startup interrupted: %w", cerr)
		}
	}

	status := StatusReady
	if len(degraded) > 0 {
		status = StatusDegraded
	}
	m.setStatus(status)

	m.logger.InfoContext(ctx, "Backends started",
		logger.KeyStatus, status.String(),
		"degraded", degraded,
		logger.KeyDurationMs, logger.Duration(start),
	)
	return nil
}

// startBackend runs Initialize then Connect for b, each in its own span.
func (m *Manager) startBackend(ctx context.Context, b backend.Backend) error {
	name := b.Name()
	start := time.Now()

	err := m.phase(ctx, telemetry.SpanInitialize, b, backend.KindConfig, b.Initialize)
	metrics.SetState(m.metrics, name, b.State())
	if err == nil {
		err = m.phase(ctx, telemetry.SpanConnect, b, backend.KindUnreachable, b.Connect)
		metrics.SetState(m.metrics, name, b.State())
	}

	elapsed := time.Since(start)
	m.mu.Lock()
	m.results[name] = &result{err: err, duration: elapsed}
	m.mu.Unlock()

	metrics.ObserveConnect(m.metrics, name, elapsed, err)
	return err
}

// phase runs one lifecycle step, converting panics and untyped errors into
// a *backend.ConnectError of the given kind.
func (m *Manager) phase(ctx context.Context, spanName string, b backend.Backend, kind backend.ErrorKind, fn func(context.Context) error) error {
	ctx, span := telemetry.StartBackendSpan(ctx, spanName, b.Name(),
		telemetry.Criticality(b.Criticality().String()),
	)

	err := m.safeCall(ctx, b.Name(), spanName, fn)
	if err != nil && backend.KindOf(err) == 0 {
		err = backend.NewError(b.Name(), kind, err)
	}
	if err != nil {
		span.SetAttributes(telemetry.ErrorKind(backend.KindOf(err).String()))
	}
	span.SetAttributes(telemetry.State(b.State().String()))
	telemetry.EndSpan(span, err)
	return err
}

// safeCall runs fn and turns a panic into an error.
func (m *Manager) safeCall(ctx context.Context, name, op string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.ErrorContext(ctx, "Panic in backend",
				logger.KeyBackend, name,
				"op", op,
				logger.KeyError, r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("panic during %s: %v", op, r)
		}
	}()
	return fn(ctx)
}

// Shutdown disconnects every backend in reverse registration order. Only
// the first call does anything. Errors and panics are logged and never
// stop the remaining backends from being released.
func (m *Manager) Shutdown(ctx context.Context) {
	m.stopOnce.Do(func() {
		m.shutdown(ctx)
	})
}

func (m *Manager) shutdown(ctx context.Context) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanShutdown)
	defer span.End()

	start := time.Now()
	failures := 0

	for i := len(m.backends) - 1; i >= 0; i-- {
		b := m.backends[i]
		name := b.Name()

		bctx, bspan := telemetry.StartBackendSpan(ctx, telemetry.SpanDisconnect, name)
		began := time.Now()
		err := m.safeCall(bctx, name, telemetry.SpanDisconnect, b.Disconnect)
		telemetry.EndSpan(bspan, err)

		metrics.ObserveDisconnect(m.metrics, name, time.Since(began), err)
		metrics.SetState(m.metrics, name, b.State())

		if err != nil {
			failures++
			telemetry.RecordError(ctx, err)
			m.logger.ErrorContext(ctx, "Failed to disconnect backend",
				logger.KeyBackend, name,
				logger.KeyError, err,
			)
		}
	}

	m.setStatus(StatusStopped)
	span.SetAttributes(telemetry.Status(StatusStopped.String()))
	m.logger.InfoContext(ctx, "Backends stopped",
		"failures", failures,
		logger.KeyDurationMs, logger.Duration(start),
	)
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	metrics.SetReady(m.metrics, m.Ready())
}

// Status returns the aggregate status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Ready reports whether startup completed and every required backend is
// Ready.
func (m *Manager) Ready() bool {
	switch m.Status() {
	case StatusReady, StatusDegraded:
	default:
		return false
	}
	for _, b := range m.backends {
		if b.Criticality() == backend.Required && b.State() != backend.StateReady {
			return false
		}
	}
	return true
}

// Statuses returns one entry per backend in registration order.
func (m *Manager) Statuses() []BackendStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]BackendStatus, 0, len(m.backends))
	for _, b := range m.backends {
		r := m.results[b.Name()]
		out = append(out, BackendStatus{
			Name:            b.Name(),
			State:           b.State(),
			Criticality:     b.Criticality(),
			Err:             r.err,
			ConnectDuration: r.duration,
		})
	}
	return out
}

// Backends returns the registered backends in registration order.
func (m *Manager) Backends() []backend.Backend {
	return append([]backend.Backend(nil), m.backends...)
}
