// Package backend defines the contract shared by every backend adapter
// managed by the lifecycle orchestrator.
//
// An adapter owns exactly one connection handle. Initialize builds the
// handle from configuration without touching the network, Connect verifies
// connectivity, and Disconnect releases the handle. Disconnect must be safe to
// call before Initialize and any number of times after it.
package backend

import (
	"context"
	"fmt"
)

// Backend is implemented by each adapter.
type Backend interface {
	// Name is the stable identifier used in logs, metrics and status output.
	Name() string

	// Criticality declares whether a failed Connect aborts startup.
	Criticality() Criticality

	// Initialize constructs the client handle. It must not block on I/O.
	Initialize(ctx context.Context) error

	// Connect verifies connectivity and moves the handle to Ready on success.
	Connect(ctx context.Context) error

	// Disconnect releases the handle. Idempotent.
	Disconnect(ctx context.Context) error

	// State reports the current handle state.
	State() State
}

// Healthchecker is implemented by adapters that can re-verify connectivity
// after startup.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}

// State is the state of a connection handle.
//
//	Uninitialized -> Connecting -> Ready | Failed -> Closed
//
// Closed is terminal.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Criticality classifies how a backend failure affects startup.
type Criticality int

const (
	// Required backends abort startup when they fail to connect.
	Required Criticality = iota
	// Optional backends are logged and marked degraded on failure.
	Optional
)

func (c Criticality) String() string {
	if c == Required {
		return "required"
	}
	return "optional"
}
