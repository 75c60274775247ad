package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/visionary/runtime/events"
)

// Span names.
const (
	SpanLiveSession     = "visionary.live_session"
	SpanImageGeneration = "visionary.image_generation"
)

// Lifecycle state names as published on the bus.
const (
	stateStarting = "starting"
	stateIdle     = "idle"
)

// OTelEventListener converts live-session events into OTel spans. A root span
// covers each session from starting back to idle; tool calls, flushes and
// failures become span events, and image generations become child spans.
// The bus delivers events in order on one goroutine, but the listener is
// still safe for concurrent use.
type OTelEventListener struct {
	tracer trace.Tracer

	mu       sync.Mutex
	sessions map[string]trace.Span
}

// NewOTelEventListener creates a listener that creates OTel spans from session events.
func NewOTelEventListener(tracer trace.Tracer) *OTelEventListener {
	return &OTelEventListener{
		tracer:   tracer,
		sessions: make(map[string]trace.Span),
	}
}

// OnEvent handles one event.
func (l *OTelEventListener) OnEvent(event *events.Event) {
	//exhaustive:ignore
	switch data := event.Data.(type) {
	case events.StateChangedData:
		l.onStateChanged(event, data)
	case events.SessionFailedData:
		l.withSession(event.SessionID, func(span trace.Span) {
			span.RecordError(data.Error, trace.WithAttributes(attribute.String("stage", data.Stage)))
			span.SetStatus(codes.Error, data.Stage)
		})
	case events.ToolCallData:
		l.withSession(event.SessionID, func(span trace.Span) {
			span.AddEvent("tool_call", trace.WithTimestamp(event.Timestamp), trace.WithAttributes(
				attribute.String("tool.name", data.Name),
				attribute.String("tool.call_id", data.CallID),
				attribute.String("tool.outcome", data.Outcome),
			))
		})
	case events.FlushData:
		l.withSession(event.SessionID, func(span trace.Span) {
			span.AddEvent("interrupted", trace.WithTimestamp(event.Timestamp),
				trace.WithAttributes(attribute.Int("playback.stopped", data.Stopped)))
		})
	case events.DownlinkData:
		if event.Type == events.EventDownlinkMalformed {
			l.withSession(event.SessionID, func(span trace.Span) {
				span.AddEvent("malformed_message", trace.WithTimestamp(event.Timestamp))
			})
		}
	case events.ImageData:
		l.onImage(event, data)
	default:
	}
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *OTelEventListener) Listener() events.Listener {
	return l.OnEvent
}

// Active returns the number of open session spans.
func (l *OTelEventListener) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

func (l *OTelEventListener) onStateChanged(event *events.Event, data events.StateChangedData) {
	l.mu.Lock()
	span, open := l.sessions[event.SessionID]
	switch {
	case data.To == stateStarting && !open:
		_, span = l.tracer.Start(context.Background(), SpanLiveSession,
			trace.WithTimestamp(event.Timestamp),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attribute.String("session.id", event.SessionID)),
		)
		l.sessions[event.SessionID] = span
		l.mu.Unlock()
		return
	case data.To == stateIdle && open:
		delete(l.sessions, event.SessionID)
		l.mu.Unlock()
		span.AddEvent("state_changed", trace.WithTimestamp(event.Timestamp),
			trace.WithAttributes(attribute.String("from", data.From), attribute.String("to", data.To)))
		span.End(trace.WithTimestamp(event.Timestamp))
		return
	}
	l.mu.Unlock()
	if open {
		span.AddEvent("state_changed", trace.WithTimestamp(event.Timestamp),
			trace.WithAttributes(attribute.String("from", data.From), attribute.String("to", data.To)))
	}
}

func (l *OTelEventListener) onImage(event *events.Event, data events.ImageData) {
	l.mu.Lock()
	parent, ok := l.sessions[event.SessionID]
	l.mu.Unlock()

	ctx := context.Background()
	if ok {
		ctx = trace.ContextWithSpan(ctx, parent)
	}
	start := event.Timestamp.Add(-data.Duration)
	_, span := l.tracer.Start(ctx, SpanImageGeneration,
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.String("session.id", event.SessionID),
			attribute.String("canvas.item_id", data.ItemID),
		),
	)
	if data.Error != nil {
		span.RecordError(data.Error)
		span.SetStatus(codes.Error, data.Error.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	end := event.Timestamp
	if end.IsZero() {
		end = time.Now()
	}
	span.End(trace.WithTimestamp(end))
}

func (l *OTelEventListener) withSession(sessionID string, fn func(trace.Span)) {
	l.mu.Lock()
	span, ok := l.sessions[sessionID]
	l.mu.Unlock()
	if ok {
		fn(span)
	}
}
