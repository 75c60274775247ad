//go:build portaudio

// Package portaudio provides the microphone and speaker of a live session
// using PortAudio. It requires cgo and the PortAudio library, so it is only
// built with the portaudio tag.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/AltairaLabs/visionary/runtime/audio"
	"github.com/AltairaLabs/visionary/runtime/device"
	"github.com/AltairaLabs/visionary/runtime/logger"
)

const (
	channels = 1
	// OutputFramesPerBuffer is 40ms of audio at 24kHz.
	OutputFramesPerBuffer = 960
)

// Microphone opens the default input device. FramesPerBuffer defaults to
// audio.FrameSize so each read completes one uplink frame.
type Microphone struct {
	FramesPerBuffer int
}

// OpenMicrophone implements device.MicrophoneOpener.
func (m *Microphone) OpenMicrophone(_ context.Context, sampleRate int) (device.Capturer, string, error) {
	if sampleRate <= 0 {
		sampleRate = audio.CaptureSampleRate
	}
	frames := m.FramesPerBuffer
	if frames <= 0 {
		frames = audio.FrameSize
	}

	if err := pa.Initialize(); err != nil {
		return nil, "", fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	label := "default input"
	if info, err := pa.DefaultInputDevice(); err == nil && info != nil {
		label = info.Name
	}

	buf := make([]float32, frames)
	stream, err := pa.OpenDefaultStream(channels, 0, float64(sampleRate), frames, buf)
	if err != nil {
		_ = pa.Terminate()
		return nil, "", fmt.Errorf("%w: failed to open input stream: %w", device.ErrPermissionDenied, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = pa.Terminate()
		return nil, "", fmt.Errorf("%w: failed to start input stream: %w", device.ErrPermissionDenied, err)
	}
	logger.Debug("Microphone opened", "device", label, "sample_rate", sampleRate, "frames", frames)
	return &capture{stream: stream, buf: buf}, label, nil
}

// capture owns an input stream. Run owns the stream while it executes;
// Close waits for Run to return before releasing it.
type capture struct {
	stream *pa.Stream
	buf    []float32

	mu      sync.Mutex
	running bool
	closed  bool
	done    chan struct{}

	releaseOnce sync.Once
	releaseErr  error
}

func (c *capture) Run(ctx context.Context, fn func([]float32)) error {
	c.mu.Lock()
	if c.closed || c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	defer func() {
		_ = c.release()
		close(done)
	}()

	for {
		if ctx.Err() != nil || c.isClosed() {
			return nil
		}
		if err := c.stream.Read(); err != nil {
			if errors.Is(err, pa.InputOverflowed) {
				continue
			}
			return fmt.Errorf("microphone read failed: %w", err)
		}
		fn(slices.Clone(c.buf))
	}
}

func (c *capture) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *capture) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	running, done := c.running, c.done
	c.mu.Unlock()

	if running {
		<-done
		return c.releaseErr
	}
	return c.release()
}

func (c *capture) release() error {
	c.releaseOnce.Do(func() {
		c.releaseErr = errors.Join(c.stream.Stop(), c.stream.Close(), pa.Terminate())
	})
	return c.releaseErr
}

// Speaker plays pulled audio on the default output device.
type Speaker struct {
	FramesPerBuffer int
}

// Play implements device.Player. It blocks until ctx ends.
func (s *Speaker) Play(ctx context.Context, sampleRate int, render func(out []float32)) error {
	if sampleRate <= 0 {
		sampleRate = audio.PlaybackSampleRate
	}
	frames := s.FramesPerBuffer
	if frames <= 0 {
		frames = OutputFramesPerBuffer
	}

	if err := pa.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer func() { _ = pa.Terminate() }()

	stream, err := pa.OpenDefaultStream(0, channels, float64(sampleRate), frames, render)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	logger.DebugContext(ctx, "Speaker started", "sample_rate", sampleRate, "frames", frames)

	<-ctx.Done()
	return stream.Stop()
}
