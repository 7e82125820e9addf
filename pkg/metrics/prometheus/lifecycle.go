// Package prometheus implements the metrics interfaces with
// prometheus/client_golang. Importing it links the implementation into
// metrics.NewLifecycleMetrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/backplane/pkg/backend"
	"github.com/marmos91/backplane/pkg/metrics"
)

func init() {
	metrics.RegisterLifecycleMetricsConstructor(func() metrics.LifecycleMetrics {
		return NewLifecycleMetrics(metrics.GetRegistry())
	})
}

var allStates = []backend.State{
	backend.StateUninitialized,
	backend.StateConnecting,
	backend.StateReady,
	backend.StateFailed,
	backend.StateClosed,
}

// lifecycleMetrics is the Prometheus implementation of metrics.LifecycleMetrics.
type lifecycleMetrics struct {
	state              *prometheus.GaugeVec
	connectDuration    *prometheus.HistogramVec
	connectFailures    *prometheus.CounterVec
	disconnectDuration *prometheus.HistogramVec
	ready              prometheus.Gauge
}

// NewLifecycleMetrics registers the lifecycle collectors on reg.
//
// Returns nil if reg is nil.
func NewLifecycleMetrics(reg prometheus.Registerer) metrics.LifecycleMetrics {
	if reg == nil {
		return nil
	}

	return &lifecycleMetrics{
		state: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "backplane_backend_state",
				Help: "Current handle state of each backend (1 for the active state, 0 otherwise)",
			},
			[]string{"backend", "state"},
		),
		connectDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "backplane_backend_connect_duration_seconds",
				Help: "Duration of backend initialization and connectivity verification",
				Buckets: []float64{
					0.005, // local socket
					0.025,
					0.1,
					0.25,
					1,
					2.5,
					5,
					10, // driver-level timeouts
					30,
				},
			},
			[]string{"backend", "result"}, // result: "success", "failure"
		),
		connectFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "backplane_backend_connect_failures_total",
				Help: "Total number of backend lifecycle failures by error kind",
			},
			[]string{"backend", "kind"},
		),
		disconnectDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backplane_backend_disconnect_duration_seconds",
				Help:    "Duration of backend teardown",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "result"},
		),
		ready: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "backplane_ready",
				Help: "1 when every required backend is ready",
			},
		),
	}
}

func (m *lifecycleMetrics) SetState(name string, state backend.State) {
	if m == nil {
		return
	}
	for _, s := range allStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(name, s.String()).Set(v)
	}
}

func (m *lifecycleMetrics) ObserveConnect(name string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.connectDuration.WithLabelValues(name, result(err)).Observe(duration.Seconds())
}

func (m *lifecycleMetrics) RecordFailure(name string, kind backend.ErrorKind) {
	if m == nil {
		return
	}
	m.connectFailures.WithLabelValues(name, kind.String()).Inc()
}

func (m *lifecycleMetrics) ObserveDisconnect(name string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.disconnectDuration.WithLabelValues(name, result(err)).Observe(duration.Seconds())
}

func (m *lifecycleMetrics) SetReady(ready bool) {
	if m == nil {
		return
	}
	if ready {
		m.ready.Set(1)
	} else {
		m.ready.Set(0)
	}
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
