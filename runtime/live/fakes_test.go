package live

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/AltairaLabs/visionary/runtime/device"
	"github.com/AltairaLabs/visionary/runtime/media"
	"github.com/AltairaLabs/visionary/runtime/playback"
	"github.com/AltairaLabs/visionary/runtime/providers/gemini"
)

// recordingSink collects everything written to the socket.
type recordingSink struct {
	mu    sync.Mutex
	media []gemini.Blob
	tools []gemini.FunctionResponse
	err   error
	// failures fails that many sends before err applies.
	failures int
}

func (s *recordingSink) SendRealtimeInput(_ context.Context, m gemini.Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("write failed")
	}
	if s.err != nil {
		return s.err
	}
	s.media = append(s.media, m)
	return nil
}

func (s *recordingSink) SendToolResponse(_ context.Context, r []gemini.FunctionResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tools = append(s.tools, r...)
	return nil
}

func (s *recordingSink) mediaOf(mime string) []gemini.Blob {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []gemini.Blob
	for _, m := range s.media {
		if m.MIMEType == mime {
			out = append(out, m)
		}
	}
	return out
}

func (s *recordingSink) toolResponses() []gemini.FunctionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gemini.FunctionResponse(nil), s.tools...)
}

// fakeSession is a Session fed through a channel.
type fakeSession struct {
	recordingSink
	in        chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closes    atomic.Int32
	recvErr   error
}

func newFakeSession() *fakeSession {
	return &fakeSession{in: make(chan []byte, 16), done: make(chan struct{})}
}

func (s *fakeSession) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, errors.New("session closed")
	case raw, ok := <-s.in:
		if !ok {
			if s.recvErr != nil {
				return nil, s.recvErr
			}
			return nil, errors.New("connection reset")
		}
		return raw, nil
	}
}

func (s *fakeSession) Close() error {
	s.closes.Add(1)
	s.closeOnce.Do(func() { close(s.done) })
	return errors.New("already closing")
}

type fakeDialer struct {
	session *fakeSession
	err     error
	dials   atomic.Int32
}

func (d *fakeDialer) Dial(ctx context.Context) (Session, error) {
	d.dials.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

// fakeCapturer delivers pushed sample blocks until ctx ends.
type fakeCapturer struct {
	samples chan []float32
	closed  atomic.Bool
}

func newFakeCapturer() *fakeCapturer {
	return &fakeCapturer{samples: make(chan []float32, 16)}
}

func (c *fakeCapturer) Run(ctx context.Context, fn func([]float32)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-c.samples:
			fn(s)
		}
	}
}

func (c *fakeCapturer) Close() error {
	c.closed.Store(true)
	return nil
}

// fakeCamera reports a settable ready state.
type fakeCamera struct {
	ready  atomic.Int32
	closed atomic.Bool
}

func (c *fakeCamera) ReadyState() media.ReadyState { return media.ReadyState(c.ready.Load()) }

func (c *fakeCamera) Frame() (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	img.Set(1, 1, color.White)
	return img, nil
}

func (c *fakeCamera) Close() error {
	c.closed.Store(true)
	return nil
}

type fakeAcquirer struct {
	mic  *fakeCapturer
	cam  *fakeCamera
	err  error
	mu   sync.Mutex
	seen []device.Constraints
}

func newFakeAcquirer() *fakeAcquirer {
	return &fakeAcquirer{mic: newFakeCapturer(), cam: &fakeCamera{}}
}

func (a *fakeAcquirer) Acquire(_ context.Context, c device.Constraints) (*device.MediaStream, error) {
	a.mu.Lock()
	a.seen = append(a.seen, c)
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	var video *device.VideoTrack
	if c.Video != nil {
		video = device.NewVideoTrack("cam", a.cam)
	}
	return device.NewMediaStream(device.NewAudioTrack("mic", a.mic), video), nil
}

func (a *fakeAcquirer) constraints() []device.Constraints {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]device.Constraints(nil), a.seen...)
}

type fakeCanvas struct {
	mu        sync.Mutex
	prompts   []string
	finalized map[string]string
	next      int
}

func (c *fakeCanvas) AddPending(prompt string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	c.next++
	return "item-" + string(rune('0'+c.next))
}

func (c *fakeCanvas) Finalize(id, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized == nil {
		c.finalized = map[string]string{}
	}
	c.finalized[id] = url
}

func (c *fakeCanvas) addedPrompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

func (c *fakeCanvas) url(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.finalized[id]
	return u, ok
}

// fakeGenerator blocks until release is closed, when set.
type fakeGenerator struct {
	url     string
	err     error
	release chan struct{}
	calls   atomic.Int32
}

func (g *fakeGenerator) Generate(ctx context.Context, _ string) (string, error) {
	g.calls.Add(1)
	if g.release != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-g.release:
		}
	}
	return g.url, g.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []string
}

func (n *fakeNotifier) Alert(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, msg)
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.alerts...)
}

type fakeResponder struct {
	mu        sync.Mutex
	responses []gemini.FunctionResponse
}

func (r *fakeResponder) SendToolResponse(resp gemini.FunctionResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
	return nil
}

func (r *fakeResponder) all() []gemini.FunctionResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gemini.FunctionResponse(nil), r.responses...)
}

// recordingScheduler records routed audio.
type recordingScheduler struct {
	chunks  []string
	flushes int
}

func (s *recordingScheduler) Schedule(chunk string) (playback.Placement, error) {
	s.chunks = append(s.chunks, chunk)
	return playback.Placement{}, nil
}

func (s *recordingScheduler) Flush() int {
	s.flushes++
	n := len(s.chunks)
	return n
}

type recordingCalls struct {
	calls []gemini.FunctionCall
}

func (r *recordingCalls) HandleCall(_ context.Context, c gemini.FunctionCall) {
	r.calls = append(r.calls, c)
}

type panickingCalls struct{}

func (panickingCalls) HandleCall(context.Context, gemini.FunctionCall) { panic("boom") }
