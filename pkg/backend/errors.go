package backend

import (
	"errors"
	"fmt"
)

// ErrorKind classifies adapter failures.
type ErrorKind int

const (
	// KindConfig means the handle could not be constructed from configuration.
	KindConfig ErrorKind = iota + 1
	// KindUnreachable means the connectivity check failed or answered negatively.
	KindUnreachable
	// KindClosed means the adapter was already closed.
	KindClosed
	// KindNotReady means a gated handle was requested before it was verified.
	KindNotReady
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindUnreachable:
		return "unreachable"
	case KindClosed:
		return "closed"
	case KindNotReady:
		return "not_ready"
	default:
		return "unknown"
	}
}

// Sentinel errors matching each ErrorKind. A *ConnectError satisfies
// errors.Is against the sentinel of its kind.
var (
	ErrConfig      = errors.New("backend misconfigured")
	ErrUnreachable = errors.New("backend unreachable")
	ErrClosed      = errors.New("backend closed")
	ErrNotReady    = errors.New("backend not ready")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConfig:
		return ErrConfig
	case KindUnreachable:
		return ErrUnreachable
	case KindClosed:
		return ErrClosed
	case KindNotReady:
		return ErrNotReady
	default:
		return nil
	}
}

// ConnectError is returned by adapters for every lifecycle failure.
type ConnectError struct {
	Backend string
	Kind    ErrorKind
	Err     error
}

// NewError builds a ConnectError. err may be nil for kinds that carry no
// underlying cause.
func NewError(backend string, kind ErrorKind, err error) *ConnectError {
	return &ConnectError{Backend: backend, Kind: kind, Err: err}
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Backend, e.Kind.sentinel())
	}
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind.sentinel(), e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *ConnectError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the ErrorKind carried by err, or 0 if err is not a
// *ConnectError.
func KindOf(err error) ErrorKind {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}
