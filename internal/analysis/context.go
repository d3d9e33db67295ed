// Package analysis provides the processing graph used by the meter:
// a context owning a stream source node connected to a frequency analyser.
package analysis

import (
	"errors"
	"sync"

	"github.com/oszuidwest/zwfm-micmeter/internal/media"
)

// State is the lifecycle state of a processing context.
type State string

const (
	// StateRunning indicates the context accepts nodes and processes audio.
	StateRunning State = "running"
	// StateClosed indicates the context was released.
	StateClosed State = "closed"
)

// Sentinel errors for processing graph operations.
var (
	ErrContextClosed    = errors.New("audio context is closed")
	ErrAlreadyConnected = errors.New("source node is already connected")
	ErrNilStream        = errors.New("source stream is nil")
)

// Context owns the nodes of one processing graph.
// It is safe for concurrent use.
type Context struct {
	mu    sync.Mutex
	state State
	done  chan struct{}
}

// NewContext creates a running processing context.
func NewContext() *Context {
	return &Context{
		state: StateRunning,
		done:  make(chan struct{}),
	}
}

// State returns the current context state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed when the context is closed.
func (c *Context) Done() <-chan struct{} {
	return c.done
}

// CreateAnalyser returns a new analyser with the default FFT size.
func (c *Context) CreateAnalyser() (*AnalyserNode, error) {
	if c.State() == StateClosed {
		return nil, ErrContextClosed
	}
	return newAnalyserNode(), nil
}

// CreateMediaStreamSource returns a source node reading from stream.
func (c *Context) CreateMediaStreamSource(stream media.Stream) (*SourceNode, error) {
	if stream == nil {
		return nil, ErrNilStream
	}
	if c.State() == StateClosed {
		return nil, ErrContextClosed
	}
	return &SourceNode{ctx: c, stream: stream, ended: make(chan struct{})}, nil
}

// Close releases the context. Source nodes stop feeding their analysers.
// Closing an already closed context returns ErrContextClosed.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return ErrContextClosed
	}
	c.state = StateClosed
	close(c.done)
	return nil
}
