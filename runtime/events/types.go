package events

import "time"

// EventType identifies a live-session event.
type EventType string

// Event types.
const (
	EventSessionStateChanged EventType = "session.state_changed"
	EventSessionFailed       EventType = "session.failed"

	EventUplinkSent    EventType = "uplink.sent"
	EventUplinkDropped EventType = "uplink.dropped"

	EventDownlinkReceived  EventType = "downlink.received"
	EventDownlinkMalformed EventType = "downlink.malformed"

	EventPlaybackScheduled EventType = "playback.scheduled"
	EventPlaybackDropped   EventType = "playback.dropped"
	EventPlaybackEnded     EventType = "playback.ended"
	EventPlaybackFlushed   EventType = "playback.flushed"

	EventToolCallReceived EventType = "tool.call.received"
	EventImageGenerated   EventType = "image.generated"
	EventImageFailed      EventType = "image.failed"
)

// Event is a single observation published on the bus.
type Event struct {
	Type      EventType
	Timestamp time.Time
	SessionID string
	Data      EventData
}

// EventData is implemented by every payload type in this package.
type EventData interface {
	eventData()
}

type baseEventData struct{}

func (baseEventData) eventData() {}

// StateChangedData describes a lifecycle transition.
type StateChangedData struct {
	baseEventData
	From string
	To   string
}

// SessionFailedData describes a session-level failure.
type SessionFailedData struct {
	baseEventData
	Stage string
	Error error
}

// UplinkData describes one outbound message.
type UplinkData struct {
	baseEventData
	Kind  string
	Bytes int
	Error error
}

// DownlinkData summarizes one routed inbound message.
type DownlinkData struct {
	baseEventData
	ToolCalls   int
	AudioParts  int
	Interrupted bool
	Error       error
}

// PlaybackData describes one scheduling or completion of a playback unit.
type PlaybackData struct {
	baseEventData
	Start    float64 // seconds on the output clock
	Duration float64
	Active   int
	Error    error
}

// FlushData describes an interruption flush.
type FlushData struct {
	baseEventData
	Stopped int
}

// ToolCallData describes an inbound tool invocation and what became of it.
type ToolCallData struct {
	baseEventData
	CallID  string
	Name    string
	Outcome string // "acknowledged", "ignored", "invalid"
}

// ImageData describes a background image generation.
type ImageData struct {
	baseEventData
	ItemID   string
	Duration time.Duration
	Error    error
}
