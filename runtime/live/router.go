package live

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/AltairaLabs/visionary/runtime/events"
	"github.com/AltairaLabs/visionary/runtime/logger"
	"github.com/AltairaLabs/visionary/runtime/playback"
	"github.com/AltairaLabs/visionary/runtime/providers/gemini"
)

// AudioScheduler receives model audio from the router.
type AudioScheduler interface {
	Schedule(chunk string) (playback.Placement, error)
	Flush() int
}

// CallHandler receives tool invocations from the router.
type CallHandler interface {
	HandleCall(ctx context.Context, call gemini.FunctionCall)
}

// Router dispatches downlink messages. A single message can carry tool
// calls, audio and an interruption at once; each is handled independently,
// in that order. Route must be called from one goroutine in arrival order.
type Router struct {
	scheduler AudioScheduler
	calls     CallHandler
	emitter   *events.Emitter

	routed    atomic.Uint64
	malformed atomic.Uint64
}

// NewRouter creates a router.
func NewRouter(scheduler AudioScheduler, calls CallHandler, emitter *events.Emitter) *Router {
	return &Router{scheduler: scheduler, calls: calls, emitter: emitter}
}

// Route handles one raw downlink frame. Malformed frames are logged, counted
// and returned as an error; they never affect later frames.
func (r *Router) Route(ctx context.Context, raw []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: handler panic: %v", gemini.ErrMalformedMessage, rec)
			r.malformed.Add(1)
			r.emitter.DownlinkMalformed(err)
			logger.ErrorContext(ctx, "Recovered panic while routing message", "panic", rec)
		}
	}()

	msg, err := gemini.DecodeServerMessage(raw)
	if err != nil {
		r.malformed.Add(1)
		r.emitter.DownlinkMalformed(err)
		logger.WarnContext(ctx, "Dropping malformed downlink message",
			"error", err, "payload", logger.TruncatePayload(string(raw)))
		return err
	}
	r.routed.Add(1)

	calls := msg.FunctionCalls()
	for _, call := range calls {
		if r.calls != nil {
			r.calls.HandleCall(ctx, call)
		}
	}

	parts := msg.AudioParts()
	for _, part := range parts {
		if _, err := r.scheduler.Schedule(part.Data); err != nil {
			logger.DebugContext(ctx, "Dropping undecodable audio chunk", "error", err, "mime_type", part.MIMEType)
		}
	}

	interrupted := msg.Interrupted()
	if interrupted {
		stopped := r.scheduler.Flush()
		logger.DebugContext(ctx, "Playback interrupted", "stopped", stopped)
	}

	r.emitter.DownlinkReceived(len(calls), len(parts), interrupted)
	return nil
}

// Routed returns the number of well-formed messages handled.
func (r *Router) Routed() uint64 { return r.routed.Load() }

// Malformed returns the number of messages dropped as malformed.
func (r *Router) Malformed() uint64 { return r.malformed.Load() }
