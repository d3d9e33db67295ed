package analysis

import "encoding/binary"

// maxSampleValue is the full-scale magnitude of a signed 16-bit sample.
const maxSampleValue = 32768.0

// DownmixS16LE converts interleaved S16LE PCM into mono samples in [-1, 1),
// averaging the channels of each frame, and appends them to dst.
// Trailing bytes that do not form a whole frame are ignored.
func DownmixS16LE(dst []float64, pcm []byte, channels int) []float64 {
	if channels < 1 {
		channels = 1
	}
	frameBytes := 2 * channels
	for i := 0; i+frameBytes <= len(pcm); i += frameBytes {
		var sum float64
		for c := range channels {
			sum += float64(int16(binary.LittleEndian.Uint16(pcm[i+2*c:])))
		}
		dst = append(dst, sum/float64(channels)/maxSampleValue)
	}
	return dst
}
