package audio

import "sync"

// Frame is one encoded capture block ready for the uplink.
type Frame struct {
	Data     string // base64 PCM16
	MIMEType string
	Seq      uint64
}

// CaptureEncoder accumulates capture samples into fixed-size frames and emits
// each completed frame immediately.
type CaptureEncoder struct {
	mu   sync.Mutex
	size int
	buf  []float32
	seq  uint64
	emit func(Frame)
}

// NewCaptureEncoder returns an encoder producing FrameSize-sample frames.
func NewCaptureEncoder(emit func(Frame)) *CaptureEncoder {
	return NewCaptureEncoderWithSize(FrameSize, emit)
}

// NewCaptureEncoderWithSize returns an encoder with a custom frame size.
// Non-positive sizes fall back to FrameSize.
func NewCaptureEncoderWithSize(size int, emit func(Frame)) *CaptureEncoder {
	if size <= 0 {
		size = FrameSize
	}
	return &CaptureEncoder{
		size: size,
		buf:  make([]float32, 0, size),
		emit: emit,
	}
}

// Write appends samples and emits every frame they complete, in order.
// It returns the number of frames emitted.
func (e *CaptureEncoder) Write(samples []float32) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	emitted := 0
	for len(samples) > 0 {
		n := min(e.size-len(e.buf), len(samples))
		e.buf = append(e.buf, samples[:n]...)
		samples = samples[n:]
		if len(e.buf) == e.size {
			e.seq++
			f := Frame{Data: EncodeBase64(e.buf), MIMEType: CaptureMIMEType, Seq: e.seq}
			e.buf = e.buf[:0]
			if e.emit != nil {
				e.emit(f)
			}
			emitted++
		}
	}
	return emitted
}

// Buffered returns the number of samples waiting for a full frame.
func (e *CaptureEncoder) Buffered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buf)
}

// Flush discards any partial frame.
func (e *CaptureEncoder) Flush() {
	e.mu.Lock()
	e.buf = e.buf[:0]
	e.mu.Unlock()
}
