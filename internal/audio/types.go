// Package audio implements host microphone capture by running the platform
// capture tool (arecord on Linux, FFmpeg elsewhere) as a subprocess that
// writes raw PCM to stdout.
package audio

import (
	"errors"
	"time"
)

// ErrNoAudioDevice is returned when no audio input device is available.
var ErrNoAudioDevice = errors.New("no audio input device found")

// PCM format produced by every capture backend.
const (
	// SampleRate is the capture sample rate in Hz.
	SampleRate = 48000
	// Channels is the number of interleaved capture channels.
	Channels = 2
)

const (
	// ShutdownTimeout is how long a stopped capture process may take to exit
	// before it is killed.
	ShutdownTimeout = 3000 * time.Millisecond
	// grantChunkBytes is the size of the first read that confirms a grant (~20ms).
	grantChunkBytes = 3840
)

// Device represents an available audio input device.
type Device struct {
	// ID is the device identifier passed to the capture tool.
	ID string `json:"id"`
	// Name is the device display name.
	Name string `json:"name"`
}
