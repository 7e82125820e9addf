package metrics

import (
	"time"

	"github.com/marmos91/backplane/pkg/backend"
)

// LifecycleMetrics observes backend lifecycle transitions.
//
// Example usage:
//
//	metrics.InitRegistry()
//	m := metrics.NewLifecycleMetrics()
//	mgr := lifecycle.NewManager(backends, lifecycle.WithMetrics(m))
//
//	// Without metrics
//	mgr := lifecycle.NewManager(backends)
type LifecycleMetrics interface {
	// SetState records the current handle state of a backend.
	SetState(name string, state backend.State)

	// ObserveConnect records how long Initialize+Connect took and whether it
	// succeeded.
	ObserveConnect(name string, duration time.Duration, err error)

	// RecordFailure counts a lifecycle failure by error kind.
	RecordFailure(name string, kind backend.ErrorKind)

	// ObserveDisconnect records how long Disconnect took.
	ObserveDisconnect(name string, duration time.Duration, err error)

	// SetReady records whether every required backend is ready.
	SetReady(ready bool)
}

// NewLifecycleMetrics returns the Prometheus-backed implementation, or nil
// when metrics are disabled or no implementation has been linked in.
func NewLifecycleMetrics() LifecycleMetrics {
	if !IsEnabled() || newLifecycleMetrics == nil {
		return nil
	}
	return newLifecycleMetrics()
}

// newLifecycleMetrics is provided by pkg/metrics/prometheus. The indirection
// keeps this package free of the implementation.
var newLifecycleMetrics func() LifecycleMetrics

// RegisterLifecycleMetricsConstructor registers the implementation
// constructor. Called from pkg/metrics/prometheus during initialization.
func RegisterLifecycleMetricsConstructor(constructor func() LifecycleMetrics) {
	newLifecycleMetrics = constructor
}

// SetState records a state change if m is non-nil.
func SetState(m LifecycleMetrics, name string, state backend.State) {
	if m != nil {
		m.SetState(name, state)
	}
}

// ObserveConnect records a connect attempt if m is non-nil. Failures are
// also counted by kind.
func ObserveConnect(m LifecycleMetrics, name string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.ObserveConnect(name, duration, err)
	if err != nil {
		m.RecordFailure(name, backend.KindOf(err))
	}
}

// ObserveDisconnect records a teardown if m is non-nil.
func ObserveDisconnect(m LifecycleMetrics, name string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveDisconnect(name, duration, err)
	}
}

// SetReady records overall readiness if m is non-nil.
func SetReady(m LifecycleMetrics, ready bool) {
	if m != nil {
		m.SetReady(ready)
	}
}
