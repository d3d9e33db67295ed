//go:build windows

package util

import "os"

// ShutdownSignals returns the signals that tear the meter down.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// GracefulSignal asks a capture subprocess to exit.
// Windows has no SIGINT for child processes, so the process is killed.
func GracefulSignal(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Kill()
}
