package meter

import (
	"sync"
	"testing"
	"time"

	"github.com/oszuidwest/zwfm-micmeter/internal/analysis"
)

type fakeAnalyser struct {
	mu    sync.Mutex
	value uint8
	calls int
}

func (f *fakeAnalyser) ByteFrequencyData(dst []uint8) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for i := range dst {
		dst[i] = f.value
	}
	return len(dst)
}

func (f *fakeAnalyser) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBar struct {
	mu     sync.Mutex
	widths []string
}

func (b *fakeBar) SetWidth(w string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.widths = append(b.widths, w)
}

func (b *fakeBar) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.widths) == 0 {
		return ""
	}
	return b.widths[len(b.widths)-1]
}

func (b *fakeBar) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.widths)
}

type manualSignal struct {
	ch chan struct{}
}

func newManualSignal() *manualSignal {
	return &manualSignal{ch: make(chan struct{})}
}

func (s *manualSignal) C() <-chan struct{} { return s.ch }

func TestPercentage(t *testing.T) {
	filled := func(n int, v uint8) []uint8 {
		b := make([]uint8, n)
		for i := range b {
			b[i] = v
		}
		return b
	}

	tests := []struct {
		name string
		buf  []uint8
		want float64
	}{
		{"silence", filled(128, 0), 0},
		{"full scale", filled(128, 255), 100},
		{"clamped at 128", filled(8, 128), 100},
		{"quiet", filled(128, 51), 50},
		{"mixed", []uint8{0, 0, 0, 102}, 25},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentage(tt.buf); got != tt.want {
				t.Errorf("Percentage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPercentageNeverExceedsFull(t *testing.T) {
	buf := make([]uint8, 128)
	for v := range 256 {
		for i := range buf {
			buf[i] = uint8(v)
		}
		if got := Percentage(buf); got < 0 || got > 100 {
			t.Fatalf("Percentage(all %d) = %v, outside [0, 100]", v, got)
		}
	}
}

func TestFormatWidth(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "0%"},
		{100, "100%"},
		{50, "50%"},
		{12.5, "12.5%"},
	}
	for _, tt := range tests {
		if got := FormatWidth(tt.pct); got != tt.want {
			t.Errorf("FormatWidth(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestRenderFrameWithoutAnalyser(t *testing.T) {
	bar := &fakeBar{}
	l := NewLoop(nil, make([]uint8, 128), bar)

	if l.RenderFrame() {
		t.Error("RenderFrame() = true without analyser")
	}
	if l.RenderFrame() {
		t.Error("second RenderFrame() = true without analyser")
	}
	if bar.count() != 0 {
		t.Errorf("bar written %d times, want 0", bar.count())
	}

	var nilLoop *Loop
	if nilLoop.RenderFrame() {
		t.Error("RenderFrame() on nil loop = true")
	}
}

func TestRenderFrameWithNilAnalyserNode(t *testing.T) {
	bar := &fakeBar{}
	l := NewLoop((*analysis.AnalyserNode)(nil), make([]uint8, 128), bar)

	if l.RenderFrame() {
		t.Error("RenderFrame() = true with nil analyser node")
	}
	if bar.count() != 0 {
		t.Errorf("bar written %d times, want 0", bar.count())
	}

	h := l.Run(newManualSignal())
	select {
	case <-h.Done():
	default:
		t.Error("Run() started a loop with nil analyser node")
	}
	h.Stop()
}

func TestRenderFrameWritesWidth(t *testing.T) {
	a := &fakeAnalyser{value: 255}
	bar := &fakeBar{}
	var seen []float64
	l := NewLoop(a, make([]uint8, 128), bar)
	l.OnFrame(func(pct float64) { seen = append(seen, pct) })

	if !l.RenderFrame() {
		t.Fatal("RenderFrame() = false")
	}
	if got := bar.last(); got != "100%" {
		t.Errorf("width = %q, want 100%%", got)
	}
	if len(seen) != 1 || seen[0] != 100 {
		t.Errorf("OnFrame saw %v, want [100]", seen)
	}
}

func TestRunRendersPerTick(t *testing.T) {
	a := &fakeAnalyser{value: 0}
	bar := &fakeBar{}
	sig := newManualSignal()

	h := NewLoop(a, make([]uint8, 128), bar).Run(sig)
	if bar.count() != 1 {
		t.Fatalf("frames after Run = %d, want 1", bar.count())
	}

	for range 3 {
		sig.ch <- struct{}{}
	}
	h.Stop()

	if got := a.callCount(); got != 4 {
		t.Errorf("frames = %d, want 4", got)
	}
	if bar.last() != "0%" {
		t.Errorf("width = %q, want 0%%", bar.last())
	}
}

func TestRunStopIsIdempotent(t *testing.T) {
	sig := newManualSignal()
	h := NewLoop(&fakeAnalyser{}, make([]uint8, 4), &fakeBar{}).Run(sig)

	h.Stop()
	h.Stop()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after Stop")
	}

	select {
	case sig.ch <- struct{}{}:
		t.Error("loop still receiving ticks after Stop")
	default:
	}
}

func TestRunWithoutAnalyserDoesNotStart(t *testing.T) {
	h := NewLoop(nil, nil, &fakeBar{}).Run(newManualSignal())

	select {
	case <-h.Done():
	default:
		t.Fatal("loop started without analyser")
	}
	h.Stop()
}

func TestRunEndsWhenSignalCloses(t *testing.T) {
	sig := newManualSignal()
	h := NewLoop(&fakeAnalyser{}, make([]uint8, 4), &fakeBar{}).Run(sig)
	close(sig.ch)

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after signal closed")
	}
}
