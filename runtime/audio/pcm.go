package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// Sample rates and framing for the live session.
const (
	CaptureSampleRate  = 16000
	PlaybackSampleRate = 24000
	FrameSize          = 4096

	// CaptureMIMEType tags outbound PCM frames.
	CaptureMIMEType = "audio/pcm;rate=16000"

	bytesPerSample = 2
	encodeScale    = 32767
	decodeScale    = 32768
)

var (
	// ErrEmptyAudioData is returned when a payload carries no samples.
	ErrEmptyAudioData = errors.New("empty audio data")
	// ErrUnalignedPCM is returned when a PCM16 payload has an odd byte length.
	ErrUnalignedPCM = errors.New("pcm data not aligned to 16-bit samples")
)

// FloatToInt16 clamps s to [-1, 1] and scales it to int16.
func FloatToInt16(s float32) int16 {
	switch {
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	case s != s: // NaN
		s = 0
	}
	return int16(s * encodeScale)
}

// EncodePCM16 converts float samples to little-endian int16 bytes.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		//nolint:gosec // two's complement reinterpretation of an int16
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(FloatToInt16(s)))
	}
	return out
}

// DecodePCM16 converts little-endian int16 bytes to float samples in [-1, 1).
func DecodePCM16(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAudioData
	}
	if len(data)%bytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrUnalignedPCM, len(data))
	}
	out := make([]float32, len(data)/bytesPerSample)
	for i := range out {
		//nolint:gosec // two's complement reinterpretation of a uint16
		v := int16(binary.LittleEndian.Uint16(data[i*bytesPerSample:]))
		out[i] = float32(v) / decodeScale
	}
	return out, nil
}

// EncodeBase64 encodes float samples into the base64 PCM16 wire form.
func EncodeBase64(samples []float32) string {
	return base64.StdEncoding.EncodeToString(EncodePCM16(samples))
}

// DecodeBase64 decodes a base64 PCM16 payload into float samples.
func DecodeBase64(data string) ([]float32, error) {
	if data == "" {
		return nil, ErrEmptyAudioData
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	return DecodePCM16(raw)
}

// Duration returns the playback length in seconds of n samples at rate.
func Duration(n, rate int) float64 {
	if rate <= 0 {
		return 0
	}
	return float64(n) / float64(rate)
}
