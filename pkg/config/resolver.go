package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Source is a read-only key/value configuration source. Lookup reports
// whether the key is present; an empty value is treated as absent.
type Source interface {
	Lookup(key string) (string, bool)
}

// MapSource is a Source backed by a plain map. Useful for tests and for
// embedding applications that resolve configuration themselves.
type MapSource map[string]string

// Lookup implements Source.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ParseError reports a configuration value that could not be converted to
// the type its key requires.
type ParseError struct {
	Key   string
	Value string
	Type  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: cannot parse %q as %s: %v", e.Key, e.Value, e.Type, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Resolver reads named keys from a Source with explicit defaults.
//
// String reads never fail. Typed reads return the default when the key is
// absent and a *ParseError when the key is present but malformed; they never
// silently fall back to a zero value.
type Resolver struct {
	src Source
}

// NewResolver returns a Resolver over src. A nil src resolves every key to
// its default.
func NewResolver(src Source) *Resolver {
	if src == nil {
		src = MapSource{}
	}
	return &Resolver{src: src}
}

// Lookup returns the trimmed value of key and whether it is set to a
// non-empty value.
func (r *Resolver) Lookup(key string) (string, bool) {
	v, ok := r.src.Lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Get returns the value of key, or def when it is absent.
func (r *Resolver) Get(key, def string) string {
	if v, ok := r.Lookup(key); ok {
		return v
	}
	return def
}

// Optional returns a pointer to the value of key, or nil when it is absent.
// Callers use nil to mean "not configured" as distinct from any value.
func (r *Resolver) Optional(key string) *string {
	if v, ok := r.Lookup(key); ok {
		return &v
	}
	return nil
}

var (
	errNotDecimal = errors.New("not a base-10 integer")
	errNotFinite  = errors.New("not a finite number")
)

// Int returns the integer value of key, or def when it is absent. Only
// base-10 values are accepted: "010" is ten, "0x10" is an error.
func (r *Resolver) Int(key string, def int) (int, error) {
	v, ok := r.Lookup(key)
	if !ok {
		return def, nil
	}
	digits, ok := decimal(v)
	if !ok {
		return def, &ParseError{Key: key, Value: v, Type: "integer", Err: errNotDecimal}
	}
	n, err := cast.ToIntE(digits)
	if err != nil {
		return def, &ParseError{Key: key, Value: v, Type: "integer", Err: err}
	}
	return n, nil
}

// Bool returns the boolean value of key, or def when it is absent.
// Accepted spellings are those of strconv.ParseBool.
func (r *Resolver) Bool(key string, def bool) (bool, error) {
	v, ok := r.Lookup(key)
	if !ok {
		return def, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def, &ParseError{Key: key, Value: v, Type: "boolean", Err: err}
	}
	return b, nil
}

// Float returns the float value of key, or def when it is absent.
func (r *Resolver) Float(key string, def float64) (float64, error) {
	v, ok := r.Lookup(key)
	if !ok {
		return def, nil
	}
	f, err := cast.ToFloat64E(v)
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		err = errNotFinite
	}
	if err != nil {
		return def, &ParseError{Key: key, Value: v, Type: "number", Err: err}
	}
	return f, nil
}

// Duration returns the duration value of key ("30s", "5m"), or def when it
// is absent.
func (r *Resolver) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := r.Lookup(key)
	if !ok {
		return def, nil
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return def, &ParseError{Key: key, Value: v, Type: "duration", Err: err}
	}
	return d, nil
}

// decimal reports whether v is an optionally signed run of ASCII digits and
// returns it with leading zeros stripped, since cast reads a leading zero
// as an octal prefix.
func decimal(v string) (string, bool) {
	sign := ""
	if v != "" && (v[0] == '+' || v[0] == '-') {
		sign, v = v[:1], v[1:]
	}
	if v == "" {
		return "", false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return "", false
		}
	}
	v = strings.TrimLeft(v, "0")
	if v == "" {
		v = "0"
	}
	return sign + v, true
}
