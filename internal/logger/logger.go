// Package logger is the process-wide structured logger.
//
// All output goes through a single slog.Logger rebuilt whenever the
// configuration changes. Records logged with a context carry the trace and
// span IDs of the active span. File outputs are size-rotated, and an
// optional error file receives ERROR records as JSON next to the main
// output.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	// Output is stdout, stderr, or a file path. Empty keeps the current
	// output.
	Output string
	// ErrorOutput is an optional file path that additionally receives ERROR
	// records as JSON. Empty disables it.
	ErrorOutput string
	Rotation    Rotation
}

// Rotation bounds the size and retention of file outputs. Zero values use
// the rotation library's defaults (100 MB, no age or count limit).
type Rotation struct {
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

var (
	level = new(slog.LevelVar)

	mu        sync.RWMutex
	format    = "text"
	output    io.Writer = os.Stdout
	outCloser io.Closer
	errOutput io.Writer
	errCloser io.Closer
	useColor  bool
	slogger   *slog.Logger
)

func init() {
	useColor = isTerminal(os.Stdout.Fd())
	mu.Lock()
	rebuild()
	mu.Unlock()
}

// rebuild assembles the handler chain from the current settings. Callers
// hold mu.
func rebuild() {
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = NewColorTextHandler(output, opts, useColor)
	}
	if errOutput != nil {
		h = teeHandler{h, slog.NewJSONHandler(errOutput, &slog.HandlerOptions{Level: slog.LevelError})}
	}

	slogger = slog.New(traceHandler{h})
}

// Init applies cfg. Output can be "stdout", "stderr", or a file path.
// Files replaced by this call are closed.
func Init(cfg Config) error {
	var (
		out      io.Writer
		closer   io.Closer
		color    bool
		errOut   io.Writer
		errClose io.Closer
	)

	switch strings.ToLower(cfg.Output) {
	case "":
	case "stdout":
		out, color = os.Stdout, isTerminal(os.Stdout.Fd())
	case "stderr":
		out, color = os.Stderr, isTerminal(os.Stderr.Fd())
	default:
		f, err := openRotating(cfg.Output, cfg.Rotation)
		if err != nil {
			return err
		}
		out, closer = f, f
	}

	if cfg.ErrorOutput != "" {
		f, err := openRotating(cfg.ErrorOutput, cfg.Rotation)
		if err != nil {
			if closer != nil {
				_ = closer.Close()
			}
			return err
		}
		errOut, errClose = f, f
	}

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}

	mu.Lock()
	var stale []io.Closer
	if out != nil {
		stale = append(stale, outCloser)
		output, outCloser, useColor = out, closer, color
	}
	stale = append(stale, errCloser)
	errOutput, errCloser = errOut, errClose
	if f := strings.ToLower(cfg.Format); f == "text" || f == "json" {
		format = f
	}
	rebuild()
	mu.Unlock()

	for _, c := range stale {
		if c != nil {
			_ = c.Close()
		}
	}
	return nil
}

// SetLevel sets the minimum log level. Unknown names are ignored.
func SetLevel(name string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return
	}
	level.Set(l)
}

// SetFormat sets the output format (text or json)
func SetFormat(f string) {
	f = strings.ToLower(f)
	if f != "text" && f != "json" {
		return
	}
	mu.Lock()
	format = f
	rebuild()
	mu.Unlock()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level with structured fields
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// Info logs at info level with structured fields
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs at warn level with structured fields
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs at error level with structured fields
func Error(msg string, args ...any) { current().Error(msg, args...) }

// With returns a new slog.Logger with additional attributes.
//
// The returned logger is bound to the handler active at call time; callers
// that outlive a reconfiguration should call With again.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// Duration returns duration since start time in milliseconds
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
