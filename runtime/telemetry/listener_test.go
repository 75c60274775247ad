package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AltairaLabs/visionary/runtime/events"
)

// newTestListener returns a listener, in-memory exporter, and TracerProvider for tests.
func newTestListener(t *testing.T) (*OTelEventListener, *tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	return NewOTelEventListener(tp.Tracer(InstrumentationName)), exp, tp
}

func findSpan(t *testing.T, spans tracetest.SpanStubs, name string) tracetest.SpanStub {
	t.Helper()
	for _, s := range spans {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("span %q not found in %d spans", name, len(spans))
	return tracetest.SpanStub{}
}

func send(l *OTelEventListener, typ events.EventType, data events.EventData) {
	l.OnEvent(&events.Event{Type: typ, Timestamp: time.Now(), SessionID: "s1", Data: data})
}

func TestOTelEventListener_SessionSpan(t *testing.T) {
	l, exp, tp := newTestListener(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	send(l, events.EventSessionStateChanged, events.StateChangedData{From: "idle", To: "starting"})
	send(l, events.EventSessionStateChanged, events.StateChangedData{From: "starting", To: "active"})
	assert.Equal(t, 1, l.Active())

	send(l, events.EventToolCallReceived, events.ToolCallData{CallID: "c1", Name: "generate_image", Outcome: "acknowledged"})
	send(l, events.EventPlaybackFlushed, events.FlushData{Stopped: 2})
	send(l, events.EventDownlinkMalformed, events.DownlinkData{Error: errors.New("bad")})
	send(l, events.EventImageGenerated, events.ImageData{ItemID: "i1", Duration: 2 * time.Second})

	send(l, events.EventSessionStateChanged, events.StateChangedData{From: "active", To: "stopping"})
	send(l, events.EventSessionStateChanged, events.StateChangedData{From: "stopping", To: "idle"})
	assert.Equal(t, 0, l.Active())

	spans := exp.GetSpans()
	require.Len(t, spans, 2)

	root := findSpan(t, spans, SpanLiveSession)
	var names []string
	for _, e := range root.Events {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "tool_call")
	assert.Contains(t, names, "interrupted")
	assert.Contains(t, names, "malformed_message")

	img := findSpan(t, spans, SpanImageGeneration)
	assert.Equal(t, root.SpanContext.SpanID(), img.Parent.SpanID())
	assert.Equal(t, codes.Ok, img.Status.Code)
	assert.InDelta(t, 2*time.Second, img.EndTime.Sub(img.StartTime), float64(10*time.Millisecond))
}

func TestOTelEventListener_FailureMarksSession(t *testing.T) {
	l, exp, tp := newTestListener(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	send(l, events.EventSessionStateChanged, events.StateChangedData{From: "idle", To: "starting"})
	send(l, events.EventSessionFailed, events.SessionFailedData{Stage: "dial", Error: errors.New("refused")})
	send(l, events.EventImageFailed, events.ImageData{ItemID: "i1", Error: errors.New("quota")})
	send(l, events.EventSessionStateChanged, events.StateChangedData{From: "error", To: "idle"})

	spans := exp.GetSpans()
	root := findSpan(t, spans, SpanLiveSession)
	assert.Equal(t, codes.Error, root.Status.Code)
	img := findSpan(t, spans, SpanImageGeneration)
	assert.Equal(t, codes.Error, img.Status.Code)
}

func TestOTelEventListener_EventsWithoutSessionAreIgnored(t *testing.T) {
	l, exp, tp := newTestListener(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	send(l, events.EventToolCallReceived, events.ToolCallData{Name: "generate_image"})
	send(l, events.EventSessionStateChanged, events.StateChangedData{From: "stopping", To: "idle"})

	assert.Empty(t, exp.GetSpans())
	assert.Equal(t, 0, l.Active())
}

func TestOTelEventListener_ViaBus(t *testing.T) {
	l, exp, tp := newTestListener(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	bus := events.NewEventBus()
	bus.SubscribeAll(l.Listener())
	em := events.NewEmitter(bus, "s2")
	em.StateChanged("idle", "starting")
	em.StateChanged("starting", "idle")
	bus.Close()

	require.Len(t, exp.GetSpans(), 1)
}
