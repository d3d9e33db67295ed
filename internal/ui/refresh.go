package ui

import (
	"sync"
	"time"
)

// DefaultFrameRate is the refresh rate used when none is configured.
const DefaultFrameRate = 30

// RefreshTicker is the display refresh signal driving the meter.
// Ticks are dropped while the consumer is still busy with the previous frame.
type RefreshTicker struct {
	ticker   *time.Ticker
	c        chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRefreshTicker starts a ticker firing frameRate times per second.
// Non-positive rates fall back to DefaultFrameRate.
func NewRefreshTicker(frameRate int) *RefreshTicker {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}

	r := &RefreshTicker{
		ticker: time.NewTicker(FrameInterval(frameRate)),
		c:      make(chan struct{}),
		stop:   make(chan struct{}),
	}
	go r.run()
	return r
}

// FrameInterval returns the duration of one frame at frameRate.
func FrameInterval(frameRate int) time.Duration {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	return time.Second / time.Duration(frameRate)
}

func (r *RefreshTicker) run() {
	defer close(r.c)
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.C:
			select {
			case r.c <- struct{}{}:
			case <-r.stop:
				return
			default:
			}
		}
	}
}

// C delivers one value per frame and is closed after Stop.
func (r *RefreshTicker) C() <-chan struct{} {
	return r.c
}

// Stop halts the ticker. It is idempotent.
func (r *RefreshTicker) Stop() {
	r.stopOnce.Do(func() {
		r.ticker.Stop()
		close(r.stop)
	})
}
