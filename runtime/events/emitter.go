package events

import "time"

// Emitter publishes events stamped with a session id. A nil Emitter, or one
// without a bus, drops everything.
type Emitter struct {
	bus       *EventBus
	sessionID string
}

// NewEmitter creates an emitter for sessionID.
func NewEmitter(bus *EventBus, sessionID string) *Emitter {
	return &Emitter{bus: bus, sessionID: sessionID}
}

// WithSession returns a copy of e stamped with another session id.
func (e *Emitter) WithSession(sessionID string) *Emitter {
	if e == nil {
		return nil
	}
	return &Emitter{bus: e.bus, sessionID: sessionID}
}

func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}
	e.bus.Publish(&Event{
		Type:      eventType,
		Timestamp: time.Now(),
		SessionID: e.sessionID,
		Data:      data,
	})
}

// StateChanged emits session.state_changed.
func (e *Emitter) StateChanged(from, to string) {
	e.emit(EventSessionStateChanged, StateChangedData{From: from, To: to})
}

// SessionFailed emits session.failed.
func (e *Emitter) SessionFailed(stage string, err error) {
	e.emit(EventSessionFailed, SessionFailedData{Stage: stage, Error: err})
}

// UplinkSent emits uplink.sent.
func (e *Emitter) UplinkSent(kind string, n int) {
	e.emit(EventUplinkSent, UplinkData{Kind: kind, Bytes: n})
}

// UplinkDropped emits uplink.dropped.
func (e *Emitter) UplinkDropped(kind string, err error) {
	e.emit(EventUplinkDropped, UplinkData{Kind: kind, Error: err})
}

// DownlinkReceived emits downlink.received.
func (e *Emitter) DownlinkReceived(toolCalls, audioParts int, interrupted bool) {
	e.emit(EventDownlinkReceived, DownlinkData{ToolCalls: toolCalls, AudioParts: audioParts, Interrupted: interrupted})
}

// DownlinkMalformed emits downlink.malformed.
func (e *Emitter) DownlinkMalformed(err error) {
	e.emit(EventDownlinkMalformed, DownlinkData{Error: err})
}

// PlaybackScheduled emits playback.scheduled.
func (e *Emitter) PlaybackScheduled(start, duration float64, active int) {
	e.emit(EventPlaybackScheduled, PlaybackData{Start: start, Duration: duration, Active: active})
}

// PlaybackDropped emits playback.dropped.
func (e *Emitter) PlaybackDropped(err error) {
	e.emit(EventPlaybackDropped, PlaybackData{Error: err})
}

// PlaybackEnded emits playback.ended.
func (e *Emitter) PlaybackEnded(active int) {
	e.emit(EventPlaybackEnded, PlaybackData{Active: active})
}

// PlaybackFlushed emits playback.flushed.
func (e *Emitter) PlaybackFlushed(stopped int) {
	e.emit(EventPlaybackFlushed, FlushData{Stopped: stopped})
}

// ToolCallReceived emits tool.call.received.
func (e *Emitter) ToolCallReceived(callID, name, outcome string) {
	e.emit(EventToolCallReceived, ToolCallData{CallID: callID, Name: name, Outcome: outcome})
}

// ImageGenerated emits image.generated.
func (e *Emitter) ImageGenerated(itemID string, d time.Duration) {
	e.emit(EventImageGenerated, ImageData{ItemID: itemID, Duration: d})
}

// ImageFailed emits image.failed.
func (e *Emitter) ImageFailed(itemID string, d time.Duration, err error) {
	e.emit(EventImageFailed, ImageData{ItemID: itemID, Duration: d, Error: err})
}
