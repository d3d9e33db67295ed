// Package media defines the host capture capability the meter talks to:
// a device broker that hands out live audio streams on request.
package media

import (
	"context"
	"io"
)

// Constraints selects what kind of input a stream request asks for.
type Constraints struct {
	Audio    bool   // Request an audio track
	Video    bool   // Request a video track (never supported)
	DeviceID string // Preferred input device (empty = platform default)
}

// AudioOnly returns the constraints used by the meter: audio, no video,
// default device.
func AudioOnly() Constraints {
	return Constraints{Audio: true}
}

// Format describes the PCM layout produced by a stream.
// Samples are signed 16-bit little-endian, channels interleaved.
type Format struct {
	SampleRate int
	Channels   int
}

// TrackState is the lifecycle state of a track.
type TrackState string

const (
	// TrackLive indicates the track is delivering samples.
	TrackLive TrackState = "live"
	// TrackEnded indicates the track was stopped or its source went away.
	TrackEnded TrackState = "ended"
)

// TrackKindAudio is the kind reported by audio tracks.
const TrackKindAudio = "audio"

// Track is a single input source within a stream.
type Track interface {
	ID() string
	Kind() string
	Label() string
	// Stop ends the track and releases the input device. It is idempotent.
	Stop()
	ReadyState() TrackState
}

// Stream is a live audio input stream.
type Stream interface {
	io.Reader
	ID() string
	Tracks() []Track
	Format() Format
}

// Devices is the host's media-capture capability.
type Devices interface {
	// Supported reports whether the host can capture audio at all.
	Supported() bool
	// GetUserMedia requests an input stream. It blocks until the user or
	// operating system grants or refuses access, or ctx is canceled.
	// Failures are returned as *Error.
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
}

// StopTracks stops every track of s.
func StopTracks(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
