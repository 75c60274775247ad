// Package prometheus exports live-session metrics to Prometheus.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "visionary"

var (
	// sessionsActive is a gauge of sessions currently in the active state.
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of live sessions currently active",
		},
	)

	// sessionTransitionsTotal counts lifecycle transitions.
	sessionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Total number of session lifecycle transitions",
		},
		[]string{"from", "to"},
	)

	// sessionFailuresTotal counts session failures by stage.
	sessionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_failures_total",
			Help:      "Total number of session failures",
		},
		[]string{"stage"}, // stage: devices, dial, transport
	)

	// uplinkMessagesTotal counts outbound messages.
	uplinkMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uplink_messages_total",
			Help:      "Total number of outbound session messages",
		},
		[]string{"kind", "status"}, // status: sent, dropped
	)

	// uplinkBytesTotal counts outbound payload bytes.
	uplinkBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uplink_bytes_total",
			Help:      "Total base64 payload bytes sent on the uplink",
		},
		[]string{"kind"},
	)

	// downlinkMessagesTotal counts inbound messages.
	downlinkMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downlink_messages_total",
			Help:      "Total number of inbound session messages",
		},
		[]string{"status"}, // status: success, malformed
	)

	// playbackChunksTotal counts playback chunks.
	playbackChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_chunks_total",
			Help:      "Total number of audio chunks handed to the scheduler",
		},
		[]string{"status"}, // status: scheduled, dropped
	)

	// playbackSecondsTotal sums scheduled audio duration.
	playbackSecondsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_scheduled_seconds_total",
			Help:      "Total seconds of model audio scheduled for playback",
		},
	)

	// playbackActiveUnits is the size of the scheduler's active set.
	playbackActiveUnits = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_active_units",
			Help:      "Number of playback units scheduled or playing",
		},
	)

	// playbackFlushesTotal counts interruption flushes.
	playbackFlushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_flushes_total",
			Help:      "Total number of playback flushes caused by interruptions",
		},
	)

	// toolCallsTotal counts inbound tool calls.
	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls received from the model",
		},
		[]string{"tool", "outcome"}, // outcome: acknowledged, ignored, invalid
	)

	// imageGenerationDuration is a histogram of background image generation.
	imageGenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_generation_duration_seconds",
			Help:      "Duration of image generation calls in seconds",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"status"}, // status: success, error
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		sessionsActive,
		sessionTransitionsTotal,
		sessionFailuresTotal,
		uplinkMessagesTotal,
		uplinkBytesTotal,
		downlinkMessagesTotal,
		playbackChunksTotal,
		playbackSecondsTotal,
		playbackActiveUnits,
		playbackFlushesTotal,
		toolCallsTotal,
		imageGenerationDuration,
	}
)

// RecordTransition records a lifecycle transition and keeps the active gauge.
func RecordTransition(from, to string) {
	sessionTransitionsTotal.WithLabelValues(from, to).Inc()
	if to == stateActive && from != stateActive {
		sessionsActive.Inc()
	}
	if from == stateActive && to != stateActive {
		sessionsActive.Dec()
	}
}

// RecordSessionFailure records a failed session.
func RecordSessionFailure(stage string) {
	sessionFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordUplink records an outbound message.
func RecordUplink(kind, status string, bytes int) {
	uplinkMessagesTotal.WithLabelValues(kind, status).Inc()
	if bytes > 0 {
		uplinkBytesTotal.WithLabelValues(kind).Add(float64(bytes))
	}
}

// RecordDownlink records an inbound message.
func RecordDownlink(status string) {
	downlinkMessagesTotal.WithLabelValues(status).Inc()
}

// RecordPlaybackScheduled records a scheduled chunk.
func RecordPlaybackScheduled(durationSeconds float64, active int) {
	playbackChunksTotal.WithLabelValues(statusScheduled).Inc()
	playbackSecondsTotal.Add(durationSeconds)
	playbackActiveUnits.Set(float64(active))
}

// RecordPlaybackDropped records an undecodable chunk.
func RecordPlaybackDropped() {
	playbackChunksTotal.WithLabelValues(statusDropped).Inc()
}

// RecordPlaybackActive sets the active unit gauge.
func RecordPlaybackActive(active int) {
	playbackActiveUnits.Set(float64(active))
}

// RecordPlaybackFlush records an interruption flush.
func RecordPlaybackFlush() {
	playbackFlushesTotal.Inc()
	playbackActiveUnits.Set(0)
}

// RecordToolCall records a tool call outcome.
func RecordToolCall(tool, outcome string) {
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordImageGeneration records a background image generation.
func RecordImageGeneration(status string, durationSeconds float64) {
	imageGenerationDuration.WithLabelValues(status).Observe(durationSeconds)
}
