package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DefaultPlaybackRate is the sample rate of synthesized speech returned by
// the inference gateway.
const DefaultPlaybackRate = 24000

// DefaultChannels is the channel count used throughout the pipeline.
const DefaultChannels = 1

// DecodePCM16 reinterprets raw bytes as 16-bit signed little-endian
// samples. The byte length must be even.
func DecodePCM16(data []byte) ([]int16, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no PCM data to decode")
	}

	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even, got %d bytes", len(data))
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}

	return samples, nil
}

// EncodePCM16 serializes samples back to little-endian bytes. Used by the
// capture path before containerizing and by tests for round-trips.
func EncodePCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// PCM16ToFloat32 converts samples to normalized float frames in [-1.0, 1.0]
// by dividing by 32768. -32768 maps to exactly -1.0 and 32767 stays below
// 1.0, so no clipping headroom is needed.
func PCM16ToFloat32(samples []int16) []float32 {
	frames := make([]float32, len(samples))
	for i, s := range samples {
		frames[i] = float32(s) / 32768.0
	}
	return frames
}

// Float32LEBytes serializes float frames to IEEE-754 little-endian bytes,
// the layout the output device consumes.
func Float32LEBytes(frames []float32) []byte {
	out := make([]byte, len(frames)*4)
	for i, f := range frames {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}
