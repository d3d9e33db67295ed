package audio

import (
	"cmp"
	"context"
	"errors"

	"github.com/oszuidwest/zwfm-micmeter/internal/media"
	"github.com/oszuidwest/zwfm-micmeter/internal/util"
)

// Platform is the host capture capability backed by the platform capture tool.
type Platform struct {
	command string // resolved executable, empty when capture is unavailable
	device  string // configured input device
}

// NewPlatform resolves the capture tool for the current OS.
// ffmpegPath overrides the FFmpeg binary on platforms that capture through
// FFmpeg; device selects the default input (empty = platform default).
func NewPlatform(ffmpegPath, device string) *Platform {
	cfg := getPlatformConfig()

	custom := ""
	if cfg.UsesFFmpeg {
		custom = ffmpegPath
	}

	return &Platform{
		command: util.ResolveExecutable(custom, cfg.Command),
		device:  device,
	}
}

// Supported reports whether a capture tool was found.
func (p *Platform) Supported() bool {
	return p.command != ""
}

// Command returns the resolved capture executable.
func (p *Platform) Command() string {
	return p.command
}

// GetUserMedia starts the capture tool and waits until it delivers audio,
// which is the point where the OS has granted microphone access.
func (p *Platform) GetUserMedia(ctx context.Context, c media.Constraints) (media.Stream, error) {
	if c.Video {
		return nil, media.NewError(media.NotSupportedError, "video capture is not supported")
	}
	if !c.Audio {
		return nil, media.NewError(media.TypeError, "audio must be requested")
	}
	if !p.Supported() {
		return nil, media.NewError(media.NotSupportedError, "no audio capture tool available")
	}

	device, args, err := CaptureArgs(cmp.Or(c.DeviceID, p.device))
	if err != nil {
		if errors.Is(err, ErrNoAudioDevice) {
			return nil, &media.Error{Name: media.NotFoundError, Message: err.Error(), Err: err}
		}
		return nil, &media.Error{Name: media.NotReadableError, Message: err.Error(), Err: err}
	}

	return openProcessStream(ctx, p.command, args, device)
}
