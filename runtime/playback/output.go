package playback

// Buffer is decoded mono audio.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Voice is one scheduled playback unit.
type Voice interface {
	// Stop silences the unit immediately. Stopping a unit that already
	// finished is a no-op.
	Stop()
}

// Output is an audio clock with a scheduling surface.
type Output interface {
	// Now returns the output clock in seconds. It never decreases.
	Now() float64
	// SampleRate is the rate buffers must be in when they reach Start.
	SampleRate() int
	// Start schedules buf to begin at the given clock time and returns the
	// time it will actually begin, which is later than at when the clock has
	// already passed it. onEnded is called once when the unit finishes
	// naturally, never from within Start and never after Stop.
	Start(buf *Buffer, at float64, onEnded func()) (Voice, float64)
}
