package playback

import (
	"math"
	"sync"
)

// Mixer renders scheduled buffers into a single mono stream.
// Render is driven by the audio device callback.
type Mixer struct {
	mu     sync.Mutex
	rate   int
	clock  int64 // samples rendered
	voices []*mixerVoice
	ended  []func()
}

type mixerVoice struct {
	m       *Mixer
	samples []float32
	start   int64
	onEnded func()
	done    bool
}

// NewMixer creates a mixer running at rate samples per second.
func NewMixer(rate int) *Mixer {
	if rate <= 0 {
		rate = 24000
	}
	return &Mixer{rate: rate}
}

// Now returns the number of rendered seconds.
func (m *Mixer) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.clock) / float64(m.rate)
}

// SampleRate returns the mixer rate.
func (m *Mixer) SampleRate() int { return m.rate }

// Active returns the number of voices that have not finished or been stopped.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Start schedules buf at clock time at. Times in the past start immediately;
// the returned time is the clock time playback really begins.
func (m *Mixer) Start(buf *Buffer, at float64, onEnded func()) (Voice, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := int64(math.Round(at * float64(m.rate)))
	if start < m.clock {
		start = m.clock
	}
	v := &mixerVoice{m: m, samples: buf.Samples, start: start, onEnded: onEnded}
	m.voices = append(m.voices, v)
	return v, float64(start) / float64(m.rate)
}

// Render mixes the next len(out) samples into out and advances the clock.
// Completion callbacks run after the mixer lock is released.
func (m *Mixer) Render(out []float32) {
	m.mu.Lock()
	clear(out)
	from := m.clock
	to := from + int64(len(out))

	kept := m.voices[:0]
	for _, v := range m.voices {
		end := v.start + int64(len(v.samples))
		lo := max(from, v.start)
		hi := min(to, end)
		for t := lo; t < hi; t++ {
			out[t-from] += v.samples[t-v.start]
		}
		if end <= to {
			v.done = true
			if v.onEnded != nil {
				m.ended = append(m.ended, v.onEnded)
			}
			continue
		}
		kept = append(kept, v)
	}
	clear(m.voices[len(kept):])
	m.voices = kept
	m.clock = to

	for i, s := range out {
		out[i] = max(-1, min(1, s))
	}
	ended := m.ended
	m.ended = nil
	m.mu.Unlock()

	for _, fn := range ended {
		fn()
	}
}

func (v *mixerVoice) Stop() {
	m := v.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.done {
		return
	}
	v.done = true
	for i, other := range m.voices {
		if other == v {
			m.voices = append(m.voices[:i], m.voices[i+1:]...)
			break
		}
	}
}
