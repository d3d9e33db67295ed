package analysis

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/oszuidwest/zwfm-micmeter/internal/media"
)

// pumpBufferBytes is the read size for the source pump (~100ms at 48kHz stereo).
const pumpBufferBytes = 19200

// SourceNode feeds samples from a media stream into a connected analyser.
type SourceNode struct {
	ctx    *Context
	stream media.Stream

	mu        sync.Mutex
	connected bool
	ended     chan struct{}
}

// MediaStream returns the stream this node reads from.
func (s *SourceNode) MediaStream() media.Stream {
	return s.stream
}

// Connect routes the source into the analyser and starts reading the stream.
// A source can be connected once.
func (s *SourceNode) Connect(a *AnalyserNode) error {
	if a == nil {
		return errors.New("analyser is nil")
	}
	if s.ctx.State() == StateClosed {
		return ErrContextClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return ErrAlreadyConnected
	}
	s.connected = true

	go s.pump(a)
	return nil
}

// Ended is closed once the source stops feeding its analyser, because the
// stream ended or the context was closed.
func (s *SourceNode) Ended() <-chan struct{} {
	return s.ended
}

// pump reads PCM from the stream, down-mixes it to mono and feeds the analyser
// until the stream ends or the context is closed. The analyser input is
// silenced on exit.
func (s *SourceNode) pump(a *AnalyserNode) {
	defer close(s.ended)
	defer a.silence()

	channels := max(s.stream.Format().Channels, 1)
	frameBytes := 2 * channels

	buf := make([]byte, pumpBufferBytes-pumpBufferBytes%frameBytes)
	mono := make([]float64, 0, len(buf)/frameBytes)
	off := 0

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		n, err := s.stream.Read(buf[off:])
		n += off
		whole := n - n%frameBytes

		select {
		case <-s.ctx.Done():
			return
		default:
		}

		mono = DownmixS16LE(mono[:0], buf[:whole], channels)
		if len(mono) > 0 {
			a.write(mono)
		}
		off = copy(buf, buf[whole:n])

		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("source stream read ended", "stream", s.stream.ID(), "error", err)
			}
			return
		}
	}
}
