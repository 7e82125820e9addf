package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/backplane/pkg/backend"
)

// callLog records lifecycle calls across backends in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name, op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name+"."+op)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.snapshot() {
		if c == call {
			n++
		}
	}
	return n
}

// fakeBackend follows the adapter state machine with scripted failures.
type fakeBackend struct {
	name string
	crit backend.Criticality
	log  *callLog

	initErr, connErr, discErr error
	panicOn                   string
	onConnect                 func()

	mu    sync.Mutex
	state backend.State
}

func newFake(log *callLog, name string, crit backend.Criticality) *fakeBackend {
	return &fakeBackend{name: name, crit: crit, log: log}
}

func (f *fakeBackend) Name() string                     { return f.name }
func (f *fakeBackend) Criticality() backend.Criticality { return f.crit }

func (f *fakeBackend) State() backend.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeBackend) set(s backend.State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *fakeBackend) maybePanic(op string) {
	if f.panicOn == op {
		panic(fmt.Sprintf("%s exploded in %s", f.name, op))
	}
}

func (f *fakeBackend) Initialize(context.Context) error {
	f.log.add(f.name, "initialize")
	f.maybePanic("initialize")
	if f.initErr != nil {
		return f.initErr
	}
	f.set(backend.StateConnecting)
	return nil
}

func (f *fakeBackend) Connect(context.Context) error {
	f.log.add(f.name, "connect")
	f.maybePanic("connect")
	if f.onConnect != nil {
		f.onConnect()
	}
	if f.connErr != nil {
		f.set(backend.StateFailed)
		return backend.NewError(f.name, backend.KindUnreachable, f.connErr)
	}
	f.set(backend.StateReady)
	return nil
}

func (f *fakeBackend) Disconnect(context.Context) error {
	f.log.add(f.name, "disconnect")
	f.maybePanic("disconnect")
	if f.State() != backend.StateUninitialized {
		f.set(backend.StateClosed)
	}
	return f.discErr
}

// fakeServer is an AuxiliaryServer that blocks until stopped or fails.
type fakeServer struct {
	startErr    error
	started     chan struct{}
	stopped     chan struct{}
	startedOnce sync.Once
	once        sync.Once
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}), stopped: make(chan struct{})}
}

func (s *fakeServer) Start(ctx context.Context) error {
	s.startedOnce.Do(func() { close(s.started) })
	if s.startErr != nil {
		return s.startErr
	}
	select {
	case <-s.stopped:
	case <-ctx.Done():
	}
	return nil
}

func (s *fakeServer) Stop(context.Context) error {
	s.once.Do(func() { close(s.stopped) })
	return nil
}

func (s *fakeServer) Port() int { return 9090 }

func (s *fakeServer) wasStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}
