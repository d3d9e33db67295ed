package audio

// CaptureConfig defines platform-specific audio capture configuration.
type CaptureConfig struct {
	// Command is the executable name (e.g., "arecord", "ffmpeg").
	Command string

	// DefaultDevice is used when no device is configured or requested.
	DefaultDevice string

	// UsesFFmpeg indicates if this platform captures through FFmpeg, in
	// which case a configured FFmpeg path overrides Command.
	UsesFFmpeg bool

	// BuildArgs returns the command arguments for audio capture.
	// The device parameter is the audio input device identifier.
	BuildArgs func(device string) []string
}

// CaptureArgs resolves the input device and returns the capture arguments.
// If device is empty, the platform default is used, then the first detected
// device (Windows has no safe default).
func CaptureArgs(device string) (resolved string, args []string, err error) {
	cfg := getPlatformConfig()

	if device == "" {
		device = cfg.DefaultDevice
	}

	if device == "" {
		devices := Devices()
		if len(devices) == 0 {
			return "", nil, ErrNoAudioDevice
		}
		device = devices[0].ID
	}

	return device, cfg.BuildArgs(device), nil
}
