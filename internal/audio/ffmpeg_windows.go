//go:build windows

package audio

// buildFFmpegCaptureArgs constructs FFmpeg arguments for DirectShow capture.
// FFmpeg is stopped by killing the process, so stdin is left closed.
func buildFFmpegCaptureArgs(inputFormat, device string) []string {
	return []string{
		"-f", inputFormat,
		"-i", device,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-vn",
		"-f", "s16le",
		"-ac", "2",
		"-ar", "48000",
		"pipe:1",
	}
}
