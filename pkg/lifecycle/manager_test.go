package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/backplane/pkg/backend"
)

type fakeStack struct {
	log                             *callLog
	postgres, redis, neo4j, elastic *fakeBackend
	logs                            *bytes.Buffer
}

// newStack registers the four backends in production order.
func newStack(t *testing.T) (*fakeStack, func(...Option) *Manager) {
	t.Helper()
	log := &callLog{}
	s := &fakeStack{
		log:      log,
		postgres: newFake(log, "postgres", backend.Required),
		redis:    newFake(log, "redis", backend.Optional),
		neo4j:    newFake(log, "neo4j", backend.Required),
		elastic:  newFake(log, "elasticsearch", backend.Optional),
		logs:     &bytes.Buffer{},
	}
	build := func(opts ...Option) *Manager {
		opts = append([]Option{WithLogger(slog.New(slog.NewJSONHandler(s.logs, nil)))}, opts...)
		return NewManager([]backend.Backend{s.postgres, s.redis, s.neo4j, s.elastic}, opts...)
	}
	return s, build
}

func TestStartAllSucceed(t *testing.T) {
	s, build := newStack(t)
	m := build()

	require.NoError(t, m.Start(context.Background()))

	assert.Equal(t, StatusReady, m.Status())
	assert.True(t, m.Ready())
	assert.Equal(t, []string{
		"postgres.initialize", "postgres.connect",
		"redis.initialize", "redis.connect",
		"neo4j.initialize", "neo4j.connect",
		"elasticsearch.initialize", "elasticsearch.connect",
	}, s.log.snapshot())
}

func TestShutdownDisconnectsEachOnceInReverse(t *testing.T) {
	s, build := newStack(t)
	m := build()
	require.NoError(t, m.Start(context.Background()))
	before := len(s.log.snapshot())

	m.Shutdown(context.Background())
	m.Shutdown(context.Background())

	assert.Equal(t, []string{
		"elasticsearch.disconnect",
		"neo4j.disconnect",
		"redis.disconnect",
		"postgres.disconnect",
	}, s.log.snapshot()[before:])
	assert.Equal(t, StatusStopped, m.Status())
	assert.False(t, m.Ready())
	for _, st := range m.Statuses() {
		assert.Equal(t, backend.StateClosed, st.State, st.Name)
	}
}

func TestRequiredFailureAbortsStartup(t *testing.T) {
	s, build := newStack(t)
	s.postgres.connErr = errors.New("connection refused")
	m := build()

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrUnreachable)

	var ce *backend.ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "postgres", ce.Backend)

	assert.Equal(t, StatusFailed, m.Status())
	assert.False(t, m.Ready())
	assert.Equal(t, []string{"postgres.initialize", "postgres.connect"}, s.log.snapshot(),
		"later backends are never started")
	assert.Equal(t, backend.StateUninitialized, s.redis.State())
	assert.Contains(t, s.logs.String(), "Required backend failed, aborting startup")

	m.Shutdown(context.Background())
	for _, name := range []string{"postgres", "redis", "neo4j", "elasticsearch"} {
		assert.Equal(t, 1, s.log.count(name+".disconnect"), name)
	}
}

func TestGraphFailureAbortsAfterCache(t *testing.T) {
	s, build := newStack(t)
	s.neo4j.connErr = errors.New("ServiceUnavailable")
	m := build()

	err := m.Start(context.Background())
	assert.ErrorIs(t, err, backend.ErrUnreachable)
	assert.Equal(t, 0, s.log.count("elasticsearch.initialize"))
	assert.Equal(t, backend.StateReady, s.redis.State())
}

func TestOptionalFailureDegrades(t *testing.T) {
	s, build := newStack(t)
	s.redis.connErr = errors.New("dial tcp: connection refused")
	s.elastic.initErr = errors.New("bad node url")
	m := build()

	require.NoError(t, m.Start(context.Background()))

	assert.Equal(t, StatusDegraded, m.Status())
	assert.True(t, m.Ready(), "required backends are up")
	assert.Equal(t, 1, s.log.count("neo4j.connect"), "later backends still start")

	statuses := m.Statuses()
	require.Len(t, statuses, 4)
	assert.Equal(t, "redis", statuses[1].Name)
	assert.Equal(t, backend.StateFailed, statuses[1].State)
	assert.Equal(t, "unreachable", statuses[1].ErrorKind())
	assert.Equal(t, "config", statuses[3].ErrorKind(), "untyped Initialize errors are config errors")
	assert.Equal(t, 0, s.log.count("elasticsearch.connect"))
	assert.Empty(t, statuses[0].ErrorKind())
	assert.Contains(t, s.logs.String(), "Optional backend unavailable, continuing degraded")
}

func TestPanicsAreFailures(t *testing.T) {
	t.Run("OptionalPanicDegrades", func(t *testing.T) {
		s, build := newStack(t)
		s.elastic.panicOn = "connect"
		m := build()

		require.NoError(t, m.Start(context.Background()))
		assert.Equal(t, StatusDegraded, m.Status())
		assert.Contains(t, m.Statuses()[3].Err.Error(), "panic during backend.connect")
	})

	t.Run("RequiredPanicAborts", func(t *testing.T) {
		s, build := newStack(t)
		s.postgres.panicOn = "initialize"
		m := build()

		err := m.Start(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, backend.ErrConfig)
		assert.Equal(t, StatusFailed, m.Status())
		assert.Equal(t, 0, s.log.count("redis.initialize"))
	})
}

func TestShutdownIsolatesFailures(t *testing.T) {
	s, build := newStack(t)
	s.neo4j.discErr = errors.New("socket reset")
	s.redis.panicOn = "disconnect"
	m := build()
	require.NoError(t, m.Start(context.Background()))

	assert.NotPanics(t, func() { m.Shutdown(context.Background()) })

	for _, name := range []string{"postgres", "redis", "neo4j", "elasticsearch"} {
		assert.Equal(t, 1, s.log.count(name+".disconnect"), name)
	}
	assert.Equal(t, StatusStopped, m.Status())
	assert.Contains(t, s.logs.String(), "Failed to disconnect backend")
	assert.Contains(t, s.logs.String(), "Panic in backend")
}

func TestStartTwice(t *testing.T) {
	_, build := newStack(t)
	m := build()

	require.NoError(t, m.Start(context.Background()))
	assert.ErrorIs(t, m.Start(context.Background()), ErrAlreadyStarted)

	m.Shutdown(context.Background())
	assert.ErrorIs(t, m.Start(context.Background()), ErrStopped)
}

func TestShutdownWithoutStart(t *testing.T) {
	s, build := newStack(t)
	m := build()

	m.Shutdown(context.Background())
	assert.Equal(t, 4, len(s.log.snapshot()))
	assert.Equal(t, StatusStopped, m.Status())
	assert.ErrorIs(t, m.Start(context.Background()), ErrStopped)
}

func TestStartInterruptedByContext(t *testing.T) {
	s, build := newStack(t)
	ctx, cancel := context.WithCancel(context.Background())
	s.redis.onConnect = cancel
	m := build()

	err := m.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, m.Status())
	assert.Equal(t, 0, s.log.count("neo4j.initialize"))
}

func TestStatusesBeforeStart(t *testing.T) {
	_, build := newStack(t)
	m := build()

	statuses := m.Statuses()
	require.Len(t, statuses, 4)
	for _, st := range statuses {
		assert.Equal(t, backend.StateUninitialized, st.State)
		assert.NoError(t, st.Err)
		assert.Zero(t, st.ConnectDuration)
	}
	assert.Equal(t, backend.Required, statuses[0].Criticality)
	assert.Equal(t, backend.Optional, statuses[1].Criticality)
	assert.Equal(t, StatusUninitialized, m.Status())
	assert.False(t, m.Ready())
}

func TestMetricsObserved(t *testing.T) {
	s, build := newStack(t)
	s.elastic.connErr = errors.New("ping failed")
	rec := &metricsRecorder{}
	m := build(WithMetrics(rec))

	require.NoError(t, m.Start(context.Background()))
	m.Shutdown(context.Background())

	assert.Equal(t, 4, rec.connects)
	assert.Equal(t, map[string]backend.ErrorKind{"elasticsearch": backend.KindUnreachable}, rec.failures)
	assert.Equal(t, 4, rec.disconnects)
	assert.Equal(t, backend.StateClosed, rec.states["postgres"])
	assert.False(t, rec.ready, "not ready once stopped")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "degraded", StatusDegraded.String())
	assert.Equal(t, "stopped", StatusStopped.String())
	assert.Equal(t, "status(99)", Status(99).String())
}

type metricsRecorder struct {
	connects, disconnects int
	failures              map[string]backend.ErrorKind
	states                map[string]backend.State
	ready                 bool
}

func (r *metricsRecorder) SetState(name string, s backend.State) {
	if r.states == nil {
		r.states = map[string]backend.State{}
	}
	r.states[name] = s
}

func (r *metricsRecorder) ObserveConnect(string, time.Duration, error) { r.connects++ }

func (r *metricsRecorder) RecordFailure(name string, k backend.ErrorKind) {
	if r.failures == nil {
		r.failures = map[string]backend.ErrorKind{}
	}
	r.failures[name] = k
}

func (r *metricsRecorder) ObserveDisconnect(string, time.Duration, error) { r.disconnects++ }

func (r *metricsRecorder) SetReady(ready bool) { r.ready = ready }
