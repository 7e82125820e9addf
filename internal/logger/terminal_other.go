//go:build !linux && !darwin

package logger

// isTerminal reports false on platforms without termios; output is uncolored.
func isTerminal(fd uintptr) bool {
	return false
}
