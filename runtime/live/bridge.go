package live

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/AltairaLabs/visionary/runtime/events"
	"github.com/AltairaLabs/visionary/runtime/logger"
	"github.com/AltairaLabs/visionary/runtime/providers/gemini"
)

// ToolAck is the result returned to the model for every accepted call.
const ToolAck = "Image generation started on the canvas."

// DefaultGenerationSlots bounds concurrent image generations per session.
const DefaultGenerationSlots = 2

// Tool call outcomes reported on the event bus.
const (
	OutcomeAcknowledged = "acknowledged"
	OutcomeIgnored      = "ignored"
	OutcomeInvalid      = "invalid"
)

// Canvas receives image intents.
type Canvas interface {
	// AddPending places a pending item and returns its id.
	AddPending(prompt string) string
	// Finalize attaches a finished image to an item.
	Finalize(id, url string)
}

// ImageGenerator renders a prompt to an image URL.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Notifier shows a message to the user.
type Notifier interface {
	Alert(msg string)
}

// ToolResponder queues tool responses for the model.
type ToolResponder interface {
	SendToolResponse(r gemini.FunctionResponse) error
}

// BridgeConfig configures a ToolBridge.
type BridgeConfig struct {
	Canvas    Canvas
	Generator ImageGenerator // optional
	Responder ToolResponder
	Emitter   *events.Emitter
	Tracer    trace.Tracer
	// Slots bounds concurrent generations. Calls beyond it wait for a slot.
	Slots int64
	// OnIntent, when set, is told about every accepted prompt.
	OnIntent func(prompt string)
	// OnIntentDone, when set, is called once per accepted prompt after its
	// generation has returned, succeeded or not.
	OnIntentDone func(prompt string)
}

// ToolBridge answers generate_image calls. The canvas item is added and the
// acknowledgment queued before the image exists; generation runs in the
// background and fills the item in when it completes.
type ToolBridge struct {
	cfg BridgeConfig
	ctx context.Context //nolint:containedctx // session lifetime bounds background generations
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewToolBridge creates a bridge whose background work is bounded by ctx.
func NewToolBridge(ctx context.Context, cfg BridgeConfig) *ToolBridge {
	if cfg.Slots <= 0 {
		cfg.Slots = DefaultGenerationSlots
	}
	return &ToolBridge{cfg: cfg, ctx: ctx, sem: semaphore.NewWeighted(cfg.Slots)}
}

// HandleCall implements CallHandler.
func (b *ToolBridge) HandleCall(ctx context.Context, call gemini.FunctionCall) {
	if call.Name != gemini.GenerateImageTool {
		logger.DebugContext(ctx, "Ignoring unknown tool call", "tool", call.Name, "call_id", call.ID)
		b.cfg.Emitter.ToolCallReceived(call.ID, call.Name, OutcomeIgnored)
		return
	}
	prompt, ok := call.StringArg("prompt")
	if !ok || prompt == "" {
		logger.WarnContext(ctx, "generate_image call without a prompt", "call_id", call.ID)
		b.cfg.Emitter.ToolCallReceived(call.ID, call.Name, OutcomeInvalid)
		return
	}
	logger.InfoContext(ctx, "Tool call: generate_image", "call_id", call.ID, "prompt", prompt)

	itemID := b.cfg.Canvas.AddPending(prompt)
	if b.cfg.OnIntent != nil {
		b.cfg.OnIntent(prompt)
	}

	if err := b.cfg.Responder.SendToolResponse(gemini.NewFunctionResult(call.ID, call.Name, ToolAck)); err != nil {
		logger.WarnContext(ctx, "Tool acknowledgment not queued", "call_id", call.ID, "error", err)
	}
	b.cfg.Emitter.ToolCallReceived(call.ID, call.Name, OutcomeAcknowledged)

	if b.cfg.Generator == nil || itemID == "" || b.ctx.Err() != nil {
		b.intentDone(prompt)
		return
	}
	b.generate(itemID, prompt)
}

func (b *ToolBridge) intentDone(prompt string) {
	if b.cfg.OnIntentDone != nil {
		b.cfg.OnIntentDone(prompt)
	}
}

func (b *ToolBridge) generate(itemID, prompt string) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.intentDone(prompt)
		ctx := logger.WithItemID(b.ctx, itemID)

		if err := b.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer b.sem.Release(1)

		span := trace.SpanFromContext(ctx)
		if b.cfg.Tracer != nil {
			ctx, span = b.cfg.Tracer.Start(ctx, "live.generate_image",
				trace.WithAttributes(attribute.String("canvas.item_id", itemID)))
			defer span.End()
		}

		start := time.Now()
		url, err := b.cfg.Generator.Generate(ctx, prompt)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			b.cfg.Emitter.ImageFailed(itemID, time.Since(start), err)
			logger.ErrorContext(ctx, "Image generation failed, item stays pending", "error", err)
			return
		}
		b.cfg.Canvas.Finalize(itemID, url)
		b.cfg.Emitter.ImageGenerated(itemID, time.Since(start))
	}()
}

// Wait blocks until every background generation has returned.
func (b *ToolBridge) Wait() {
	b.wg.Wait()
}
