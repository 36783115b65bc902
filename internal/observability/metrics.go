package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	recognizerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_typer_state",
		Help: "Recognizer state (0=idle, 1=listening, 2=error)",
	})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_typer_sessions_total",
		Help: "Recognition session start attempts",
	}, []string{"result"}) // started, stream_error, source_error, config_error

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_typer_session_duration_seconds",
		Help:    "Duration of recognition sessions in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600},
	})

	// Audio metrics
	audioFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_typer_audio_frames_total",
		Help: "Audio frames seen by the recognizer",
	}, []string{"outcome"}) // forwarded, dropped

	audioBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_typer_audio_bytes_total",
		Help: "Audio bytes forwarded to the transcription stream",
	})

	inputLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_typer_input_level_rms",
		Help: "RMS level of the last captured audio frame",
	})

	speechSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_typer_speech_segments_total",
		Help: "Speech segments detected by the local activity detector",
	})

	// Transcription metrics
	transcripts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_typer_transcripts_total",
		Help: "Transcripts received from the transcription stream",
	}, []string{"kind"}) // interim, final, empty

	streamConnectLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_typer_stream_connect_seconds",
		Help:    "Time to establish the transcription stream",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	utterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_typer_utterances_total",
		Help: "Final utterances by classification",
	}, []string{"kind"}) // text, command

	// Output metrics
	actions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_typer_actions_total",
		Help: "Output actions executed",
	}, []string{"kind", "status"})

	actionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_typer_action_seconds",
		Help:    "Time spent executing an output action",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_typer_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voice_typer_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_typer_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Control surface metrics
	eventClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_typer_event_clients",
		Help: "Connected event feed clients",
	})
)

// Metrics tracks metrics for a single recognition session
type Metrics struct {
	sessionID string
	startTime time.Time
	ended     bool
	mu        sync.Mutex
}

// NewSessionMetrics creates a new metrics tracker for a session
func NewSessionMetrics(sessionID string) *Metrics {
	return &Metrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// SessionID returns the session the tracker belongs to.
func (m *Metrics) SessionID() string {
	return m.sessionID
}

// RecordSessionStart records a session that reached Listening
func (m *Metrics) RecordSessionStart() {
	sessionsTotal.WithLabelValues("started").Inc()
}

// RecordSessionEnd records the end of a session. Only the first call counts.
func (m *Metrics) RecordSessionEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ended {
		return
	}
	m.ended = true
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordFrame records a frame that was forwarded or dropped
func (m *Metrics) RecordFrame(forwarded bool, bytes int) {
	if !forwarded {
		audioFrames.WithLabelValues("dropped").Inc()
		return
	}
	audioFrames.WithLabelValues("forwarded").Inc()
	audioBytes.Add(float64(bytes))
}

// RecordTranscript records a transcript by kind (interim, final, empty)
func (m *Metrics) RecordTranscript(kind string) {
	transcripts.WithLabelValues(kind).Inc()
}

// RecordUtterance records how a final utterance was classified
func (m *Metrics) RecordUtterance(kind string) {
	utterances.WithLabelValues(kind).Inc()
}

// RecordAction records an executed output action
func (m *Metrics) RecordAction(kind string, success bool, elapsed time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	actions.WithLabelValues(kind, status).Inc()
	actionLatency.Observe(elapsed.Seconds())
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	RecordError(errorType, component)
}

// RecordError records an error outside of a session
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordSessionFailure records a start attempt that did not reach Listening
func RecordSessionFailure(result string) {
	sessionsTotal.WithLabelValues(result).Inc()
}

// SetRecognizerState records the recognizer state as a gauge value
func SetRecognizerState(state int) {
	recognizerState.Set(float64(state))
}

// RecordDroppedFrame records a frame dropped with no session to attribute it to
func RecordDroppedFrame() {
	audioFrames.WithLabelValues("dropped").Inc()
}

// ObserveStreamConnect records how long the transcription stream took to open
func ObserveStreamConnect(elapsed time.Duration) {
	streamConnectLatency.Observe(elapsed.Seconds())
}

// SetInputLevel records the RMS level of the latest captured frame
func SetInputLevel(rms float64) {
	inputLevel.Set(rms)
}

// IncrementSpeechSegments counts a detected speech segment
func IncrementSpeechSegments() {
	speechSegments.Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}

// SetEventClients records the number of connected event feed clients
func SetEventClients(n int) {
	eventClients.Set(float64(n))
}
