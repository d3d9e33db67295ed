package capture

import (
	"sync/atomic"
	"time"

	"github.com/oszuidwest/zwfm-micmeter/internal/analysis"
	"github.com/oszuidwest/zwfm-micmeter/internal/media"
	"github.com/oszuidwest/zwfm-micmeter/internal/meter"
)

// RefreshSource is a display refresh signal that can be released.
type RefreshSource interface {
	meter.FrameSignal
	Stop()
}

// Session is a live capture: the granted stream and the analysis graph
// reading it. It is created by Controller.StartCapture and released by
// Controller.Teardown.
type Session struct {
	stream   media.Stream
	context  *analysis.Context
	source   *analysis.SourceNode
	analyser *analysis.AnalyserNode
	buffer   []uint8

	signal RefreshSource
	loop   *meter.Handle

	started time.Time
	frames  atomic.Int64
}

// ID returns the stream ID.
func (s *Session) ID() string { return s.stream.ID() }

// Stream returns the granted input stream.
func (s *Session) Stream() media.Stream { return s.stream }

// Context returns the processing context owning the graph.
func (s *Session) Context() *analysis.Context { return s.context }

// Analyser returns the frequency analyser.
func (s *Session) Analyser() *analysis.AnalyserNode { return s.analyser }

// Buffer returns the sample buffer reused every frame.
func (s *Session) Buffer() []uint8 { return s.buffer }

// Frames returns the number of meter frames rendered so far.
func (s *Session) Frames() int64 { return s.frames.Load() }

// Started returns when the stream was granted.
func (s *Session) Started() time.Time { return s.started }

// Device returns the label of the first track.
func (s *Session) Device() string {
	if tracks := s.stream.Tracks(); len(tracks) > 0 {
		return tracks[0].Label()
	}
	return ""
}
