package playback

import (
	"errors"
	"sync"

	"github.com/AltairaLabs/visionary/runtime/audio"
	"github.com/AltairaLabs/visionary/runtime/events"
)

// ErrEmptyChunk is returned for chunks that decode to no samples.
var ErrEmptyChunk = errors.New("empty audio chunk")

// Placement records where a chunk landed on the output timeline.
type Placement struct {
	ID       uint64
	Start    float64
	Duration float64
}

// Scheduler places decoded chunks back to back on an Output.
// Calls must be made in chunk arrival order.
type Scheduler struct {
	mu      sync.Mutex
	out     Output
	cursor  float64
	active  map[uint64]Voice
	nextID  uint64
	removed uint64
	emitter *events.Emitter
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithEmitter publishes scheduling events through e.
func WithEmitter(e *events.Emitter) Option {
	return func(s *Scheduler) { s.emitter = e }
}

// NewScheduler creates a scheduler over out with an empty timeline.
func NewScheduler(out Output, opts ...Option) *Scheduler {
	s := &Scheduler{out: out, active: make(map[uint64]Voice)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule decodes a base64 PCM16 chunk at the playback rate and schedules it.
// A malformed or empty chunk changes nothing and returns an error.
func (s *Scheduler) Schedule(chunk string) (Placement, error) {
	samples, err := audio.DecodeBase64(chunk)
	if err != nil {
		s.emitter.PlaybackDropped(err)
		return Placement{}, err
	}
	return s.ScheduleBuffer(&Buffer{Samples: samples, SampleRate: audio.PlaybackSampleRate})
}

// ScheduleBuffer schedules already decoded audio.
func (s *Scheduler) ScheduleBuffer(buf *Buffer) (Placement, error) {
	if buf == nil || len(buf.Samples) == 0 || buf.SampleRate <= 0 {
		s.emitter.PlaybackDropped(ErrEmptyChunk)
		return Placement{}, ErrEmptyChunk
	}
	duration := buf.Duration()
	if rate := s.out.SampleRate(); rate != buf.SampleRate {
		resampled, err := audio.Resample(buf.Samples, buf.SampleRate, rate)
		if err != nil {
			s.emitter.PlaybackDropped(err)
			return Placement{}, err
		}
		buf = &Buffer{Samples: resampled, SampleRate: rate}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	// The output clock may move between Now and Start, so the cursor
	// advances from the start the output reports.
	voice, start := s.out.Start(buf, max(s.cursor, s.out.Now()), func() { s.ended(id) })
	s.cursor = start + duration
	s.active[id] = voice
	active := len(s.active)
	s.mu.Unlock()

	s.emitter.PlaybackScheduled(start, duration, active)
	return Placement{ID: id, Start: start, Duration: duration}, nil
}

// ended removes a naturally finished unit. Units already removed by Flush
// are ignored.
func (s *Scheduler) ended(id uint64) {
	s.mu.Lock()
	if _, ok := s.active[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.active, id)
	s.removed++
	active := len(s.active)
	s.mu.Unlock()

	s.emitter.PlaybackEnded(active)
}

// Flush stops every active unit, empties the active set, and resets the
// cursor to 0. It returns the number of units stopped.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	voices := make([]Voice, 0, len(s.active))
	for id, v := range s.active {
		voices = append(voices, v)
		delete(s.active, id)
	}
	s.removed += uint64(len(voices))
	s.cursor = 0
	s.mu.Unlock()

	for _, v := range voices {
		v.Stop()
	}
	s.emitter.PlaybackFlushed(len(voices))
	return len(voices)
}

// Cursor returns the next start time.
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// ActiveCount returns the number of scheduled units that have not finished.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Removed returns how many units have left the active set in total.
func (s *Scheduler) Removed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}
