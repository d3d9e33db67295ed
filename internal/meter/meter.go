// Package meter turns an analyser's frequency snapshot into a volume bar width.
package meter

import (
	"strconv"
	"sync"
)

const (
	// FFTSize is the analyser window used for metering (128 bins).
	FFTSize = 256
	// Sensitivity scales the mean bin value so that ordinary speech fills the bar.
	Sensitivity = 250
)

// Bar is the visual meter element.
type Bar interface {
	SetWidth(width string)
}

// Analyser is the frequency snapshot source read each frame.
type Analyser interface {
	ByteFrequencyData(dst []uint8) int
}

// FrameSignal delivers one value per display refresh.
type FrameSignal interface {
	C() <-chan struct{}
}

// Percentage reduces a byte spectrum to a bar fill in [0, 100].
// An empty buffer yields 0.
func Percentage(buf []uint8) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum int
	for _, v := range buf {
		sum += int(v)
	}
	mean := float64(sum) / float64(len(buf))
	return min(max((mean/255)*Sensitivity, 0), 100)
}

// FormatWidth renders a percentage as a CSS width, e.g. "49.01960784313726%".
func FormatWidth(pct float64) string {
	return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}

// Loop renders the meter from one analyser into one bar.
type Loop struct {
	analyser Analyser
	buf      []uint8
	bar      Bar
	onFrame  func(pct float64) // optional, called after each rendered frame
}

// NewLoop returns a loop reading analyser into buf and writing to bar.
// buf is reused every frame.
func NewLoop(analyser Analyser, buf []uint8, bar Bar) *Loop {
	return &Loop{analyser: analyser, buf: buf, bar: bar}
}

// OnFrame registers fn to be called with each rendered percentage.
func (l *Loop) OnFrame(fn func(pct float64)) {
	l.onFrame = fn
}

// RenderFrame samples the analyser once and updates the bar.
// It reports false without touching the bar when there is no analyser,
// including a nil analyser behind the interface, which yields no bins.
func (l *Loop) RenderFrame() bool {
	if l == nil || l.analyser == nil {
		return false
	}

	n := l.analyser.ByteFrequencyData(l.buf)
	if n == 0 {
		return false
	}
	pct := Percentage(l.buf[:n])

	if l.bar != nil {
		l.bar.SetWidth(FormatWidth(pct))
	}
	if l.onFrame != nil {
		l.onFrame(pct)
	}
	return true
}

// Run renders a frame immediately and then one per signal tick until the
// returned handle is stopped or the signal closes. If the first frame is
// not rendered the loop does not start.
func (l *Loop) Run(signal FrameSignal) *Handle {
	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	if !l.RenderFrame() {
		close(h.done)
		return h
	}

	go func() {
		defer close(h.done)
		for {
			select {
			case <-h.stop:
				return
			case _, ok := <-signal.C():
				if !ok {
					return
				}
				if !l.RenderFrame() {
					return
				}
			}
		}
	}()

	return h
}

// Handle controls a running loop.
type Handle struct {
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Stop cancels the loop and waits for the current frame to finish.
// It is idempotent.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
