package media

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"time"

	"github.com/AltairaLabs/visionary/runtime/logger"
)

// DefaultSampleInterval is the transport cadence (2 Hz).
const DefaultSampleInterval = 500 * time.Millisecond

// ReadyState mirrors the buffering levels of a video element.
type ReadyState int

// Ready states, lowest first.
const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

// ErrSourceInactive is returned by Tick once the underlying stream has ended.
var ErrSourceInactive = errors.New("video source inactive")

// FrameSource is the preview surface the sampler reads from.
type FrameSource interface {
	// Active reports whether the underlying stream is still live.
	Active() bool
	// ReadyState reports how much of the stream is buffered.
	ReadyState() ReadyState
	// Frame returns the most recent decoded frame.
	Frame() (image.Image, error)
}

// Sampler periodically snapshots a FrameSource and emits transport frames.
type Sampler struct {
	src      FrameSource
	cfg      SnapshotConfig
	interval time.Duration
	emit     func(Frame)

	seq     atomic.Uint64
	skipped atomic.Uint64
}

// NewSampler creates a sampler. A non-positive interval uses DefaultSampleInterval.
func NewSampler(src FrameSource, cfg SnapshotConfig, interval time.Duration, emit func(Frame)) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{src: src, cfg: cfg.withDefaults(), interval: interval, emit: emit}
}

// Run samples on every tick until ctx is cancelled or the source goes inactive.
// Both are normal terminations and return nil.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				if errors.Is(err, ErrSourceInactive) {
					logger.DebugContext(ctx, "Video sampler stopping, stream inactive", "frames", s.seq.Load())
					return nil
				}
				logger.DebugContext(ctx, "Video frame dropped", "error", err)
			}
		}
	}
}

// Tick runs one sampling cycle. It reports whether a frame was emitted.
// A source that has not buffered a decodable frame is skipped without error.
func (s *Sampler) Tick(ctx context.Context) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}
	if !s.src.Active() {
		return false, ErrSourceInactive
	}
	if s.src.ReadyState() < HaveCurrentData {
		s.skipped.Add(1)
		return false, nil
	}

	img, err := s.src.Frame()
	if err != nil {
		return false, err
	}
	frame, err := Snapshot(img, s.cfg)
	if err != nil {
		return false, err
	}
	frame.Seq = s.seq.Add(1)
	if s.emit != nil {
		s.emit(frame)
	}
	return true, nil
}

// Sampled returns the number of frames emitted so far.
func (s *Sampler) Sampled() uint64 { return s.seq.Load() }

// Skipped returns the number of cycles skipped for lack of a decodable frame.
func (s *Sampler) Skipped() uint64 { return s.skipped.Load() }
