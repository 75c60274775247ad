// Package audio converts microphone samples into transport frames and back.
//
// Capture runs at 16 kHz: float samples in [-1, 1] are clamped, scaled by 32767,
// stored as little-endian int16, and base64 encoded in blocks of 4096 samples.
// Playback chunks arrive at 24 kHz and decode by dividing each int16 by 32768.
//
//	enc := audio.NewCaptureEncoder(func(f audio.Frame) { uplink.SendAudio(f) })
//	enc.Write(samples)
package audio
