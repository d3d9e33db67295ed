package analysis

import (
	"errors"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyser defaults.
const (
	DefaultFFTSize               = 2048
	MinFFTSize                   = 32
	MaxFFTSize                   = 32768
	DefaultSmoothingTimeConstant = 0.8
	DefaultMinDecibels           = -100.0
	DefaultMaxDecibels           = -30.0
)

// ErrInvalidFFTSize is returned for window sizes that are not a power of two
// within [MinFFTSize, MaxFFTSize].
var ErrInvalidFFTSize = errors.New("fft size must be a power of two between 32 and 32768")

// AnalyserNode keeps the most recent time-domain samples of its input and
// reports their frequency spectrum as byte magnitudes.
// It is safe for concurrent use.
type AnalyserNode struct {
	mu sync.Mutex

	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	ring []float64 // last fftSize input samples
	pos  int       // next write position in ring

	window     []float64    // Blackman window
	frame      []float64    // windowed, time-ordered scratch
	coeffs     []complex128 // FFT output scratch
	magnitudes []float64    // smoothed linear magnitudes, one per bin
	fft        *fourier.FFT
}

func newAnalyserNode() *AnalyserNode {
	a := &AnalyserNode{
		smoothing: DefaultSmoothingTimeConstant,
		minDB:     DefaultMinDecibels,
		maxDB:     DefaultMaxDecibels,
	}
	a.resize(DefaultFFTSize)
	return a
}

// SetFFTSize sets the transform window size. Buffered samples and smoothing
// state are discarded.
func (a *AnalyserNode) SetFFTSize(n int) error {
	if n < MinFFTSize || n > MaxFFTSize || n&(n-1) != 0 {
		return ErrInvalidFFTSize
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resize(n)
	return nil
}

// resize reallocates all buffers for window size n. Caller must hold a.mu
// or own a exclusively.
func (a *AnalyserNode) resize(n int) {
	a.fftSize = n
	a.ring = make([]float64, n)
	a.pos = 0
	a.frame = make([]float64, n)
	a.coeffs = make([]complex128, n/2+1)
	a.magnitudes = make([]float64, n/2)
	a.fft = fourier.NewFFT(n)
	a.window = blackman(n)
}

// FFTSize returns the transform window size.
func (a *AnalyserNode) FFTSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fftSize
}

// FrequencyBinCount returns the number of frequency bins, half the window size.
func (a *AnalyserNode) FrequencyBinCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fftSize / 2
}

// ByteFrequencyData copies the current spectrum into dst and returns the
// number of bins written, at most len(dst).
//
// Each bin is the smoothed magnitude of the Blackman-windowed transform,
// converted to dB and mapped linearly from [minDecibels, maxDecibels]
// onto 0-255. A nil analyser writes nothing and returns 0.
func (a *AnalyserNode) ByteFrequencyData(dst []uint8) int {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.fftSize
	for i := range n {
		a.frame[i] = a.ring[(a.pos+i)%n] * a.window[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	bins := n / 2
	scale := 1 / float64(n)
	for k := range bins {
		mag := cmplx.Abs(a.coeffs[k]) * scale
		a.magnitudes[k] = a.smoothing*a.magnitudes[k] + (1-a.smoothing)*mag
	}

	rangeScale := 255 / (a.maxDB - a.minDB)
	count := min(len(dst), bins)
	for k := range count {
		v := math.Floor(rangeScale * (linearToDB(a.magnitudes[k]) - a.minDB))
		switch {
		case v < 0 || math.IsNaN(v):
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = uint8(v)
		}
	}
	return count
}

// write appends mono samples to the time-domain ring.
func (a *AnalyserNode) write(samples []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.fftSize
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos = (a.pos + 1) % n
	}
}

// silence clears the time-domain ring. The smoothed spectrum then decays
// towards zero on later reads, as it would for an ended input.
func (a *AnalyserNode) silence() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.ring)
	a.pos = 0
}

// linearToDB converts a linear magnitude to decibels. Zero maps to -Inf.
func linearToDB(v float64) float64 {
	return 20 * math.Log10(v)
}

// blackman returns a Blackman window of length n (alpha = 0.16).
func blackman(n int) []float64 {
	const alpha = 0.16
	a0 := (1 - alpha) / 2
	a1 := 0.5
	a2 := alpha / 2

	w := make([]float64, n)
	for i := range n {
		x := float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}
