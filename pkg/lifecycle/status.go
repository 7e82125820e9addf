package lifecycle

import (
	"fmt"
	"time"

	"github.com/marmos91/backplane/pkg/backend"
)

// Status is the aggregate status of the orchestrator.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInitializing
	// StatusReady means every backend connected.
	StatusReady
	// StatusDegraded means every required backend connected and at least one
	// optional backend did not.
	StatusDegraded
	// StatusFailed means a required backend failed and startup was aborted.
	StatusFailed
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitializing:
		return "initializing"
	case StatusReady:
		return "ready"
	case StatusDegraded:
		return "degraded"
	case StatusFailed:
		return "failed"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// BackendStatus is a point-in-time view of one registered backend.
type BackendStatus struct {
	Name        string
	State       backend.State
	Criticality backend.Criticality
	// Err is the last lifecycle error, nil if none.
	Err error
	// ConnectDuration covers Initialize and Connect of the last start.
	ConnectDuration time.Duration
}

// ErrorKind returns the kind of Err, or "" when there is no error.
func (s BackendStatus) ErrorKind() string {
	if s.Err == nil {
		return ""
	}
	return backend.KindOf(s.Err).String()
}
