package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	pkgerrors "github.com/AltairaLabs/visionary/pkg/errors"
	"github.com/AltairaLabs/visionary/runtime/audio"
	"github.com/AltairaLabs/visionary/runtime/device"
	"github.com/AltairaLabs/visionary/runtime/events"
	"github.com/AltairaLabs/visionary/runtime/logger"
	"github.com/AltairaLabs/visionary/runtime/media"
	"github.com/AltairaLabs/visionary/runtime/playback"
	"github.com/AltairaLabs/visionary/runtime/telemetry"
)

// Mode selects which devices a session uses.
type Mode string

// Session modes.
const (
	ModeVideoVoice Mode = "video+voice"
	ModeVoice      Mode = "voice"
)

// AccessDeniedMessage is shown when devices cannot be acquired.
const AccessDeniedMessage = "Permission denied or session failed. Please ensure camera/mic access."

// DefaultIntentTTL is how long LastIntent remembers a prompt after its
// generation has finished.
const DefaultIntentTTL = 5 * time.Second

// Failure stages reported on the event bus.
const (
	stageDevices   = "devices"
	stageDial      = "dial"
	stageTransport = "transport"
)

// Config wires a Controller to its collaborators.
type Config struct {
	Acquirer device.Acquirer
	Dialer   Dialer
	Canvas   Canvas

	// Optional collaborators.
	Generator      ImageGenerator
	Notifier       Notifier
	Player         device.Player
	Bus            *events.EventBus
	TracerProvider trace.TracerProvider

	// VideoConstraints overrides the 640x480 @ 15 fps camera request.
	VideoConstraints *device.VideoConstraints
	// FrameSize is the capture samples per uplink audio frame.
	FrameSize       int
	LaneCapacity    int
	SampleInterval  time.Duration
	Snapshot        media.SnapshotConfig
	GenerationSlots int64
	IntentTTL       time.Duration
}

// Controller owns the session lifecycle. All methods are safe for concurrent
// use.
type Controller struct {
	cfg    Config
	tracer trace.Tracer

	mu      sync.Mutex
	state   State
	stream  *device.MediaStream
	res     *sessionResources
	micOn   bool
	videoOn bool

	intentMu    sync.Mutex
	lastIntent  string
	intentTimer *time.Timer
	generating  int
}

// NewController validates cfg and returns an idle controller.
func NewController(cfg Config) (*Controller, error) {
	switch {
	case cfg.Acquirer == nil:
		return nil, pkgerrors.New("live", "NewController", errors.New("acquirer is required"))
	case cfg.Dialer == nil:
		return nil, pkgerrors.New("live", "NewController", errors.New("dialer is required"))
	case cfg.Canvas == nil:
		return nil, pkgerrors.New("live", "NewController", errors.New("canvas is required"))
	}
	if cfg.IntentTTL <= 0 {
		cfg.IntentTTL = DefaultIntentTTL
	}
	return &Controller{
		cfg:     cfg,
		tracer:  telemetry.Tracer(cfg.TracerProvider),
		micOn:   true,
		videoOn: true,
	}, nil
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MicEnabled reports the microphone toggle.
func (c *Controller) MicEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.micOn
}

// VideoEnabled reports the camera toggle.
func (c *Controller) VideoEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.videoOn
}

// SessionID returns the id of the running session, or "".
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.res == nil {
		return ""
	}
	return c.res.id
}

// setState applies e and publishes the change. Callers hold c.mu.
func (c *Controller) setState(e Event, em *events.Emitter) error {
	next, err := transition(c.state, e)
	if err != nil {
		return err
	}
	if next != c.state {
		em.StateChanged(c.state.String(), next.String())
		logger.Debug("Session state changed", "from", c.state.String(), "to", next.String())
	}
	c.state = next
	return nil
}

// Start acquires devices and starts a session. Device failures alert the
// user, leave the controller idle and are returned. Connecting happens in the
// background; a failed connection moves the controller to StateError.
func (c *Controller) Start(ctx context.Context, mode Mode) error {
	if mode != ModeVoice {
		mode = ModeVideoVoice
	}
	sessionID := uuid.NewString()
	em := events.NewEmitter(c.cfg.Bus, sessionID)
	ctx = logger.WithMode(logger.WithSessionID(ctx, sessionID), string(mode))

	ctx, span := c.tracer.Start(ctx, "live.Start", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("session.mode", string(mode)),
	))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.setState(EventStart, em); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return pkgerrors.New("live", "Start", err)
	}

	constraints := device.Constraints{Audio: true, SampleRate: audio.CaptureSampleRate}
	if mode == ModeVideoVoice {
		constraints.Video = c.cfg.VideoConstraints
		if constraints.Video == nil {
			constraints.Video = device.DefaultVideoConstraints()
		}
	}
	stream, err := c.cfg.Acquirer.Acquire(ctx, constraints)
	if err != nil {
		logger.ErrorContext(ctx, "Device acquisition failed", "error", err)
		c.alert(AccessDeniedMessage)
		em.SessionFailed(stageDevices, err)
		_ = c.setState(EventDenied, em)
		span.RecordError(err)
		span.SetStatus(codes.Error, "devices")
		return pkgerrors.New("live", "Start", err).WithDetails(map[string]any{"mode": string(mode)})
	}

	c.stream = stream
	c.res = c.newResources(ctx, sessionID, mode, em)
	c.run(c.res, stream)
	if err := c.setState(EventReady, em); err != nil {
		return pkgerrors.New("live", "Start", err)
	}
	logger.InfoContext(ctx, "Live session started")
	return nil
}

func (c *Controller) newResources(ctx context.Context, id string, mode Mode, em *events.Emitter) *sessionResources {
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	res := &sessionResources{id: id, mode: mode, ctx: sctx, cancel: cancel, emitter: em}

	res.mixer = playback.NewMixer(audio.PlaybackSampleRate)
	res.scheduler = playback.NewScheduler(res.mixer, playback.WithEmitter(em))
	res.uplink = NewUplink(sctx, c.cfg.LaneCapacity, em)
	res.bridge = NewToolBridge(sctx, BridgeConfig{
		Canvas:       c.cfg.Canvas,
		Generator:    c.cfg.Generator,
		Responder:    res.uplink,
		Emitter:      em,
		Tracer:       c.tracer,
		Slots:        c.cfg.GenerationSlots,
		OnIntent:     c.recordIntent,
		OnIntentDone: c.finishIntent,
	})
	res.router = NewRouter(res.scheduler, res.bridge, em)
	return res
}

// run launches the session goroutines on res.group.
func (c *Controller) run(res *sessionResources, stream *device.MediaStream) {
	ctx := res.ctx
	res.uplink.Start(&res.group)

	if mic := stream.Audio(); mic != nil {
		enc := audio.NewCaptureEncoderWithSize(c.cfg.FrameSize, func(f audio.Frame) { _ = res.uplink.SendAudio(f) })
		res.group.Go(func() error {
			if err := mic.Run(ctx, func(s []float32) { enc.Write(s) }); err != nil && ctx.Err() == nil {
				logger.WarnContext(ctx, "Microphone capture ended", "error", err)
			}
			enc.Flush()
			return nil
		})
	}

	if cam := stream.Video(); cam != nil && res.mode == ModeVideoVoice {
		sampler := media.NewSampler(cam, c.cfg.Snapshot, c.cfg.SampleInterval,
			func(f media.Frame) { _ = res.uplink.SendVideo(f) })
		res.group.Go(func() error { return sampler.Run(ctx) })
	}

	if c.cfg.Player != nil {
		res.group.Go(func() error {
			if err := c.cfg.Player.Play(ctx, audio.PlaybackSampleRate, res.mixer.Render); err != nil && ctx.Err() == nil {
				logger.WarnContext(ctx, "Speaker ended", "error", err)
			}
			return nil
		})
	}

	res.group.Go(func() error {
		c.serve(res)
		return nil
	})
}

// serve dials, attaches the uplink and routes the downlink until the
// session ends.
func (c *Controller) serve(res *sessionResources) {
	ctx := res.ctx
	sess, err := c.cfg.Dialer.Dial(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.fail(res, stageDial, err)
		}
		return
	}
	if !res.attach(sess) {
		_ = sess.Close()
		return
	}
	_ = res.uplink.Attach(sess)
	logger.InfoContext(ctx, "Live session connected")

	for {
		raw, err := sess.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.fail(res, stageTransport, err)
			}
			return
		}
		_ = res.router.Route(ctx, raw)
	}
}

// fail moves a live session to StateError and stops its pipelines. Devices
// stay acquired until Stop.
func (c *Controller) fail(res *sessionResources, stage string, err error) {
	c.mu.Lock()
	if c.res != res {
		c.mu.Unlock()
		return
	}
	ferr := c.setState(EventFail, res.emitter)
	c.mu.Unlock()
	if ferr != nil {
		return
	}

	logger.ErrorContext(res.ctx, "Live session failed", "stage", stage, "error", err)
	res.emitter.SessionFailed(stage, err)
	res.cancel()
	res.scheduler.Flush()
}

// Stop ends the session: tracks first, then the session context, then the
// connection. It joins every session goroutine before returning and resets
// both toggles. Stop on an idle controller is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state == StateIdle {
		c.micOn, c.videoOn = true, true
		c.mu.Unlock()
		return nil
	}
	if c.state == StateStopping {
		// Another Stop is tearing the session down.
		c.mu.Unlock()
		return nil
	}
	res, stream := c.res, c.stream
	var em *events.Emitter
	if res != nil {
		em = res.emitter
	}
	if err := c.setState(EventStop, em); err != nil {
		c.mu.Unlock()
		return pkgerrors.New("live", "Stop", err)
	}
	c.res, c.stream = nil, nil
	c.mu.Unlock()

	if stream != nil {
		if err := stream.Stop(); err != nil {
			logger.Warn("Device release failed", "error", err)
		}
	}
	if res != nil {
		res.cancel()
		if sess := res.detach(); sess != nil {
			if err := sess.Close(); err != nil {
				logger.Debug("Session close failed", "session_id", res.id, "error", err)
			}
		}
		res.scheduler.Flush()
		_ = res.group.Wait()
		res.bridge.Wait()
	}

	c.clearIntent()

	c.mu.Lock()
	c.micOn, c.videoOn = true, true
	err := c.setState(EventStopped, em)
	c.mu.Unlock()
	logger.Info("Live session stopped")
	if err != nil {
		return pkgerrors.New("live", "Stop", err)
	}
	return nil
}

// ToggleMic flips the microphone track and returns the new setting. Without
// a stream it changes nothing and returns the current setting.
func (c *Controller) ToggleMic() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil || c.stream.Audio() == nil {
		return c.micOn
	}
	c.micOn = !c.micOn
	c.stream.Audio().SetEnabled(c.micOn)
	return c.micOn
}

// ToggleVideo flips the camera track and returns the new setting. Without
// a video track it changes nothing and returns the current setting.
func (c *Controller) ToggleVideo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil || c.stream.Video() == nil {
		return c.videoOn
	}
	c.videoOn = !c.videoOn
	c.stream.Video().SetEnabled(c.videoOn)
	return c.videoOn
}

// LastIntent returns the most recent image prompt. It is cleared
// IntentTTL after that prompt's generation finishes, and by Stop.
func (c *Controller) LastIntent() string {
	c.intentMu.Lock()
	defer c.intentMu.Unlock()
	return c.lastIntent
}

// GeneratingImages reports how many accepted prompts are still being
// generated.
func (c *Controller) GeneratingImages() int {
	c.intentMu.Lock()
	defer c.intentMu.Unlock()
	return c.generating
}

func (c *Controller) recordIntent(prompt string) {
	c.intentMu.Lock()
	defer c.intentMu.Unlock()
	c.lastIntent = prompt
	c.generating++
	if c.intentTimer != nil {
		c.intentTimer.Stop()
		c.intentTimer = nil
	}
}

// finishIntent arms the expiry of prompt once its generation has returned.
// A prompt already superseded by a newer one has nothing to expire.
func (c *Controller) finishIntent(prompt string) {
	c.intentMu.Lock()
	defer c.intentMu.Unlock()
	if c.generating > 0 {
		c.generating--
	}
	if c.lastIntent != prompt {
		return
	}
	if c.intentTimer != nil {
		c.intentTimer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(c.cfg.IntentTTL, func() {
		c.intentMu.Lock()
		defer c.intentMu.Unlock()
		if c.intentTimer != timer {
			return
		}
		c.lastIntent = ""
		c.intentTimer = nil
	})
	c.intentTimer = timer
}

func (c *Controller) clearIntent() {
	c.intentMu.Lock()
	defer c.intentMu.Unlock()
	if c.intentTimer != nil {
		c.intentTimer.Stop()
		c.intentTimer = nil
	}
	c.lastIntent = ""
	c.generating = 0
}

func (c *Controller) alert(msg string) {
	if c.cfg.Notifier != nil {
		c.cfg.Notifier.Alert(msg)
		return
	}
	logger.Warn(msg)
}
