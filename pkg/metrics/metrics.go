// Package metrics exposes Prometheus instrumentation for live audio sessions
// and async generation jobs. All metrics live on a private registry so
// embedding applications keep control of their default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the client. A nil *Metrics is
// valid: every record method is a no-op on it, so instrumentation stays
// optional at call sites.
type Metrics struct {
	registry *prometheus.Registry

	// Live session metrics
	LiveSessionsActive   prometheus.Gauge
	LiveSessionsTotal    *prometheus.CounterVec
	LiveSessionDuration  prometheus.Histogram
	LiveAudioBytesTotal  *prometheus.CounterVec
	LiveTurnsTotal       prometheus.Counter
	LiveFramesDropped    prometheus.Counter
	LiveInterruptsTotal  prometheus.Counter
	LivePlaybackBacklog  prometheus.Gauge
	LiveTranscriptEvents *prometheus.CounterVec

	// Job metrics
	JobsSubmittedTotal prometheus.Counter
	JobsActive         prometheus.Gauge
	JobsTotal          *prometheus.CounterVec
	JobPollsTotal      prometheus.Counter
	JobDuration        prometheus.Histogram

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

// New creates a Metrics instance with all metrics registered on a fresh
// private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "genstudio"
	}

	registry := prometheus.NewRegistry()

	liveSessionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions_active",
			Help:      "Number of active live audio sessions",
		},
	)

	liveSessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_sessions_total",
			Help:      "Total number of live audio sessions",
		},
		[]string{"status"},
	)

	liveSessionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "live_session_duration_seconds",
			Help:      "Live session duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	liveAudioBytesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_audio_bytes_total",
			Help:      "Total PCM bytes processed in live sessions",
		},
		[]string{"direction"},
	)

	liveTurnsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_turns_total",
			Help:      "Total completed conversation turns",
		},
	)

	liveFramesDropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_frames_dropped_total",
			Help:      "Outbound audio frames dropped under backpressure",
		},
	)

	liveInterruptsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_interrupts_total",
			Help:      "Model turns cut off by user speech",
		},
	)

	livePlaybackBacklog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_playback_backlog_chunks",
			Help:      "Decoded audio chunks waiting for playback",
		},
	)

	liveTranscriptEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_transcript_events_total",
			Help:      "Transcript fragments received",
		},
		[]string{"direction"},
	)

	jobsSubmittedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Total generation jobs submitted",
		},
	)

	jobsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Generation jobs currently pending",
		},
	)

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Terminal generation job outcomes",
		},
		[]string{"outcome"},
	)

	jobPollsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_polls_total",
			Help:      "Total status polls issued",
		},
	)

	jobDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Submit-to-terminal duration of generation jobs",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200},
		},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors by type",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(
		liveSessionsActive,
		liveSessionsTotal,
		liveSessionDuration,
		liveAudioBytesTotal,
		liveTurnsTotal,
		liveFramesDropped,
		liveInterruptsTotal,
		livePlaybackBacklog,
		liveTranscriptEvents,
		jobsSubmittedTotal,
		jobsActive,
		jobsTotal,
		jobPollsTotal,
		jobDuration,
		errorsTotal,
	)

	return &Metrics{
		registry:             registry,
		LiveSessionsActive:   liveSessionsActive,
		LiveSessionsTotal:    liveSessionsTotal,
		LiveSessionDuration:  liveSessionDuration,
		LiveAudioBytesTotal:  liveAudioBytesTotal,
		LiveTurnsTotal:       liveTurnsTotal,
		LiveFramesDropped:    liveFramesDropped,
		LiveInterruptsTotal:  liveInterruptsTotal,
		LivePlaybackBacklog:  livePlaybackBacklog,
		LiveTranscriptEvents: liveTranscriptEvents,
		JobsSubmittedTotal:   jobsSubmittedTotal,
		JobsActive:           jobsActive,
		JobsTotal:            jobsTotal,
		JobPollsTotal:        jobPollsTotal,
		JobDuration:          jobDuration,
		ErrorsTotal:          errorsTotal,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSessionStart records a live session becoming active.
func (m *Metrics) RecordSessionStart() {
	if m == nil {
		return
	}
	m.LiveSessionsActive.Inc()
}

// RecordSessionEnd records a live session ending.
func (m *Metrics) RecordSessionEnd(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LiveSessionsActive.Dec()
	m.LiveSessionsTotal.WithLabelValues(status).Inc()
	m.LiveSessionDuration.Observe(duration.Seconds())
}

// RecordAudio records PCM bytes moving through a live session.
// Direction is "input" (microphone) or "output" (playback).
func (m *Metrics) RecordAudio(direction string, bytes int) {
	if m == nil {
		return
	}
	m.LiveAudioBytesTotal.WithLabelValues(direction).Add(float64(bytes))
}

// RecordTurn records one completed conversation turn.
func (m *Metrics) RecordTurn() {
	if m == nil {
		return
	}
	m.LiveTurnsTotal.Inc()
}

// RecordFrameDropped records an outbound frame discarded under backpressure.
func (m *Metrics) RecordFrameDropped() {
	if m == nil {
		return
	}
	m.LiveFramesDropped.Inc()
}

// RecordInterrupt records a model turn cut off by user speech.
func (m *Metrics) RecordInterrupt() {
	if m == nil {
		return
	}
	m.LiveInterruptsTotal.Inc()
}

// SetPlaybackBacklog records the current playback queue depth.
func (m *Metrics) SetPlaybackBacklog(n int) {
	if m == nil {
		return
	}
	m.LivePlaybackBacklog.Set(float64(n))
}

// RecordTranscript records a transcript fragment by direction.
func (m *Metrics) RecordTranscript(direction string) {
	if m == nil {
		return
	}
	m.LiveTranscriptEvents.WithLabelValues(direction).Inc()
}

// RecordJobSubmitted records a job entering the pending state.
func (m *Metrics) RecordJobSubmitted() {
	if m == nil {
		return
	}
	m.JobsSubmittedTotal.Inc()
	m.JobsActive.Inc()
}

// RecordJobDone records a terminal job outcome: "done", "empty", "failed",
// or "cancelled".
func (m *Metrics) RecordJobDone(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.JobsActive.Dec()
	m.JobsTotal.WithLabelValues(outcome).Inc()
	m.JobDuration.Observe(duration.Seconds())
}

// RecordPoll records one status poll.
func (m *Metrics) RecordPoll() {
	if m == nil {
		return
	}
	m.JobPollsTotal.Inc()
}

// RecordError records an error by taxonomy type.
func (m *Metrics) RecordError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
