// Package ui holds the meter page state shared with connected browsers.
package ui

import (
	"sync"
)

// Element IDs used by the embedded page.
const (
	TriggerID = "startButton"
	MeterID   = "volumeBar"
	StatusID  = "statusMessage"
)

// State is a snapshot of the page elements.
type State struct {
	TriggerEnabled bool   `json:"trigger_enabled"`
	Status         string `json:"status"`
	MeterWidth     string `json:"meter_width"`
}

// Page is the meter page: a trigger control, a status line and a meter bar.
// It is safe for concurrent use.
type Page struct {
	mu      sync.RWMutex
	state   State
	version uint64
	onClick []func()
}

// NewPage returns a page with the trigger enabled and an empty meter.
func NewPage() *Page {
	return &Page{
		state: State{TriggerEnabled: true, MeterWidth: "0%"},
	}
}

// SetEnabled enables or disables the trigger control.
func (p *Page) SetEnabled(enabled bool) {
	p.update(func(s *State) bool {
		if s.TriggerEnabled == enabled {
			return false
		}
		s.TriggerEnabled = enabled
		return true
	})
}

// SetText sets the status line.
func (p *Page) SetText(text string) {
	p.update(func(s *State) bool {
		if s.Status == text {
			return false
		}
		s.Status = text
		return true
	})
}

// SetWidth sets the meter bar width, e.g. "42%".
func (p *Page) SetWidth(width string) {
	p.update(func(s *State) bool {
		if s.MeterWidth == width {
			return false
		}
		s.MeterWidth = width
		return true
	})
}

func (p *Page) update(fn func(*State) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn(&p.state) {
		p.version++
	}
}

// Snapshot returns the current state and its version. The version increases
// on every change.
func (p *Page) Snapshot() (State, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state, p.version
}

// Version returns the current state version.
func (p *Page) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// OnClick subscribes fn to trigger clicks.
func (p *Page) OnClick(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClick = append(p.onClick, fn)
}

// Click dispatches a click on the trigger to subscribers, in order, on the
// calling goroutine. A disabled trigger ignores the click and Click
// reports false.
func (p *Page) Click() bool {
	p.mu.RLock()
	enabled := p.state.TriggerEnabled
	handlers := append([]func(){}, p.onClick...)
	p.mu.RUnlock()

	if !enabled {
		return false
	}
	for _, fn := range handlers {
		fn()
	}
	return true
}
