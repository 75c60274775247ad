package prometheus

import (
	"github.com/AltairaLabs/visionary/runtime/events"
)

// Label values.
const (
	statusSuccess   = "success"
	statusError     = "error"
	statusSent      = "sent"
	statusDropped   = "dropped"
	statusMalformed = "malformed"
	statusScheduled = "scheduled"

	stateActive = "active"
)

// MetricsListener records live-session events as Prometheus metrics.
// Register it with EventBus.SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
func (l *MetricsListener) Handle(event *events.Event) {
	//exhaustive:ignore
	switch data := event.Data.(type) {
	case events.StateChangedData:
		RecordTransition(data.From, data.To)
	case events.SessionFailedData:
		RecordSessionFailure(data.Stage)
	case events.UplinkData:
		l.handleUplink(event.Type, data)
	case events.DownlinkData:
		if event.Type == events.EventDownlinkMalformed {
			RecordDownlink(statusMalformed)
		} else {
			RecordDownlink(statusSuccess)
		}
	case events.PlaybackData:
		l.handlePlayback(event.Type, data)
	case events.FlushData:
		RecordPlaybackFlush()
	case events.ToolCallData:
		RecordToolCall(data.Name, data.Outcome)
	case events.ImageData:
		status := statusSuccess
		if event.Type == events.EventImageFailed {
			status = statusError
		}
		RecordImageGeneration(status, data.Duration.Seconds())
	default:
		// Ignore events that don't have metrics
	}
}

func (l *MetricsListener) handleUplink(t events.EventType, data events.UplinkData) {
	if t == events.EventUplinkDropped {
		RecordUplink(data.Kind, statusDropped, 0)
		return
	}
	RecordUplink(data.Kind, statusSent, data.Bytes)
}

func (l *MetricsListener) handlePlayback(t events.EventType, data events.PlaybackData) {
	//exhaustive:ignore
	switch t {
	case events.EventPlaybackScheduled:
		RecordPlaybackScheduled(data.Duration, data.Active)
	case events.EventPlaybackDropped:
		RecordPlaybackDropped()
	case events.EventPlaybackEnded:
		RecordPlaybackActive(data.Active)
	default:
	}
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
