package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/backplane/pkg/backend"
	"github.com/marmos91/backplane/pkg/lifecycle"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// healthcheckTimeout bounds the live checks run by /health/backends.
const healthcheckTimeout = 5 * time.Second

// StatusSource is the view of the lifecycle the health endpoints need.
// *lifecycle.Manager implements it.
type StatusSource interface {
	Status() lifecycle.Status
	Ready() bool
	Statuses() []lifecycle.BackendStatus
	Backends() []backend.Backend
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	src StatusSource
}

// NewHealthHandler creates a new health handler. src may be nil, in which
// case readiness and backend health report unhealthy.
func NewHealthHandler(src StatusSource) *HealthHandler {
	return &HealthHandler{src: src}
}

// Liveness handles GET /health. It always succeeds while the HTTP server is
// responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newResponse(statusHealthy, map[string]string{
		"service": "backplane",
	}))
}

// ReadinessData is the payload of GET /health/ready.
type ReadinessData struct {
	Status string `json:"status"`
}

// Readiness handles GET /health/ready. Returns 200 once startup finished and
// every required backend is ready, 503 otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.src == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("lifecycle not initialized", nil))
		return
	}

	data := ReadinessData{Status: h.src.Status().String()}
	if !h.src.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("backends not ready", data))
		return
	}

	status := statusHealthy
	if h.src.Status() == lifecycle.StatusDegraded {
		status = statusDegraded
	}
	writeJSON(w, http.StatusOK, newResponse(status, data))
}

// BackendHealth is the health of a single backend.
type BackendHealth struct {
	Name        string `json:"name"`
	Criticality string `json:"criticality"`
	State       string `json:"state"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
	// ConnectDuration is the time startup spent on this backend.
	ConnectDuration string `json:"connect_duration,omitempty"`
	// Latency is the duration of the live healthcheck, when one ran.
	Latency string `json:"latency,omitempty"`
}

// Backends handles GET /health/backends.
//
// Each backend reports its lifecycle state and startup error. Backends that
// are Ready and support healthchecks are also checked live. Returns 503 if any
// required backend is unhealthy; optional failures only mark the response
// degraded.
func (h *HealthHandler) Backends(w http.ResponseWriter, r *http.Request) {
	if h.src == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("lifecycle not initialized", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthcheckTimeout)
	defer cancel()

	checkers := make(map[string]backend.Healthchecker)
	for _, b := range h.src.Backends() {
		if hc, ok := b.(backend.Healthchecker); ok {
			checkers[b.Name()] = hc
		}
	}

	response := make([]BackendHealth, 0)
	overall := statusHealthy

	for _, st := range h.src.Statuses() {
		health := BackendHealth{
			Name:        st.Name,
			Criticality: st.Criticality.String(),
			State:       st.State.String(),
			Status:      statusHealthy,
			ErrorKind:   st.ErrorKind(),
		}
		if st.ConnectDuration > 0 {
			health.ConnectDuration = st.ConnectDuration.String()
		}

		err := st.Err
		if err == nil && st.State != backend.StateReady {
			err = backend.NewError(st.Name, backend.KindNotReady, nil)
			health.ErrorKind = backend.KindNotReady.String()
		}
		if hc, ok := checkers[st.Name]; ok && err == nil {
			start := time.Now()
			err = hc.Healthcheck(ctx)
			health.Latency = time.Since(start).String()
			if err != nil {
				health.ErrorKind = backend.KindOf(err).String()
			}
		}

		if err != nil {
			health.Status = statusUnhealthy
			health.Error = err.Error()
			if st.Criticality == backend.Required {
				overall = statusUnhealthy
			} else if overall == statusHealthy {
				overall = statusDegraded
			}
		}

		response = append(response, health)
	}

	if overall == statusUnhealthy {
		writeJSON(w, http.StatusServiceUnavailable, newResponse(overall, response))
		return
	}
	writeJSON(w, http.StatusOK, newResponse(overall, response))
}
