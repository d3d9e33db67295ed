//go:build !windows

package util

import (
	"os"
	"syscall"
)

// ShutdownSignals returns the signals that tear the meter down.
func ShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// GracefulSignal asks a capture subprocess to exit.
func GracefulSignal(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Signal(syscall.SIGINT)
}
