package live

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AltairaLabs/visionary/runtime/audio"
	"github.com/AltairaLabs/visionary/runtime/events"
	"github.com/AltairaLabs/visionary/runtime/logger"
	"github.com/AltairaLabs/visionary/runtime/media"
	"github.com/AltairaLabs/visionary/runtime/providers/gemini"
)

// DefaultLaneCapacity bounds each uplink lane.
const DefaultLaneCapacity = 64

var (
	// ErrUplinkFull is returned when a lane has no room for another message.
	ErrUplinkFull = errors.New("uplink lane full")
	// ErrUplinkClosed is returned for sends after the session ended.
	ErrUplinkClosed = errors.New("uplink closed")
	// ErrAlreadyAttached is returned by a second Attach.
	ErrAlreadyAttached = errors.New("uplink already attached")
)

// Kind is an outbound message class. Each kind has its own lane.
type Kind int

// Outbound kinds.
const (
	KindAudio Kind = iota
	KindVideo
	KindTool
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	case KindTool:
		return "tool"
	default:
		return "unknown"
	}
}

// Sink is the live connection the uplink writes to.
type Sink interface {
	SendRealtimeInput(ctx context.Context, media gemini.Blob) error
	SendToolResponse(ctx context.Context, responses []gemini.FunctionResponse) error
}

type outbound struct {
	media gemini.Blob
	tool  gemini.FunctionResponse
}

// Uplink queues outbound messages until the session is ready, then drains
// each lane in submission order on its own goroutine. There is no ordering
// across lanes.
type Uplink struct {
	ctx     context.Context //nolint:containedctx // session lifetime
	lanes   [numKinds]chan outbound
	emitter *events.Emitter

	attachOnce sync.Once
	ready      chan struct{}
	sink       Sink
}

// NewUplink creates an uplink with capacity messages per lane, bound to the
// session context ctx.
func NewUplink(ctx context.Context, capacity int, emitter *events.Emitter) *Uplink {
	if capacity <= 0 {
		capacity = DefaultLaneCapacity
	}
	u := &Uplink{ctx: ctx, emitter: emitter, ready: make(chan struct{})}
	for i := range u.lanes {
		u.lanes[i] = make(chan outbound, capacity)
	}
	return u
}

// Start launches one drain goroutine per lane on g. They exit when the
// session context ends.
func (u *Uplink) Start(g *errgroup.Group) {
	for k := range numKinds {
		g.Go(func() error {
			u.drain(u.ctx, k)
			return nil
		})
	}
}

// Attach marks the session ready. Only the first call has an effect.
func (u *Uplink) Attach(sink Sink) error {
	err := ErrAlreadyAttached
	u.attachOnce.Do(func() {
		u.sink = sink
		close(u.ready)
		err = nil
	})
	return err
}

// Ready reports whether Attach has been called.
func (u *Uplink) Ready() bool {
	select {
	case <-u.ready:
		return true
	default:
		return false
	}
}

// Pending returns the number of queued messages of kind k.
func (u *Uplink) Pending(k Kind) int {
	return len(u.lanes[k])
}

// SendAudio queues one capture frame.
func (u *Uplink) SendAudio(f audio.Frame) error {
	return u.enqueue(KindAudio, outbound{media: gemini.Blob{MIMEType: f.MIMEType, Data: f.Data}})
}

// SendVideo queues one video snapshot.
func (u *Uplink) SendVideo(f media.Frame) error {
	return u.enqueue(KindVideo, outbound{media: gemini.Blob{MIMEType: f.MIMEType, Data: f.Data}})
}

// SendToolResponse queues one tool response.
func (u *Uplink) SendToolResponse(r gemini.FunctionResponse) error {
	return u.enqueue(KindTool, outbound{tool: r})
}

func (u *Uplink) enqueue(k Kind, msg outbound) error {
	if u.ctx.Err() != nil {
		return ErrUplinkClosed
	}
	select {
	case u.lanes[k] <- msg:
		return nil
	default:
		u.emitter.UplinkDropped(k.String(), ErrUplinkFull)
		logger.Debug("Uplink lane full, dropping message", "kind", k.String(), "capacity", cap(u.lanes[k]))
		return ErrUplinkFull
	}
}

func (u *Uplink) drain(ctx context.Context, k Kind) {
	select {
	case <-ctx.Done():
		return
	case <-u.ready:
	}

	lane := u.lanes[k]
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-lane:
			u.write(ctx, k, msg)
		}
	}
}

func (u *Uplink) write(ctx context.Context, k Kind, msg outbound) {
	var (
		err  error
		size int
	)
	if k == KindTool {
		err = u.sink.SendToolResponse(ctx, []gemini.FunctionResponse{msg.tool})
	} else {
		size = len(msg.media.Data)
		err = u.sink.SendRealtimeInput(ctx, msg.media)
	}
	if err != nil {
		if ctx.Err() == nil {
			logger.WarnContext(ctx, "Uplink send failed", "kind", k.String(), "error", err)
		}
		u.emitter.UplinkDropped(k.String(), err)
		return
	}
	u.emitter.UplinkSent(k.String(), size)
}
