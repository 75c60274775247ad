package live

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AltairaLabs/visionary/runtime/events"
	"github.com/AltairaLabs/visionary/runtime/playback"
	"github.com/AltairaLabs/visionary/runtime/providers/gemini"
)

// Session is an open live connection.
type Session interface {
	Sink
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens a live connection. Dial returns once the session is ready
// for realtime input.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Session, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context) (Session, error) { return f(ctx) }

// GeminiDialer adapts a gemini.Dialer to Dialer.
func GeminiDialer(d *gemini.Dialer) Dialer {
	return DialerFunc(func(ctx context.Context) (Session, error) {
		s, err := d.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// sessionResources is everything one Start builds and one Stop disposes of.
// Nothing here outlives the session.
type sessionResources struct {
	id      string
	mode    Mode
	ctx     context.Context //nolint:containedctx // session lifetime
	cancel  context.CancelFunc
	group   errgroup.Group
	emitter *events.Emitter

	mixer     *playback.Mixer
	scheduler *playback.Scheduler
	uplink    *Uplink
	router    *Router
	bridge    *ToolBridge

	mu      sync.Mutex
	session Session
	closed  bool
}

// attach records an open session. It reports false if the resources were
// already disposed, in which case the caller owns the session and must
// close it.
func (r *sessionResources) attach(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.session = s
	return true
}

// detach marks the resources disposed and returns the session, if any.
func (r *sessionResources) detach() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	s := r.session
	r.session = nil
	return s
}
