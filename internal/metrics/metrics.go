// Package metrics exposes Prometheus metrics for the recognition pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsPath = "/metrics"

// Face results.
const (
	ResultAuthorized = "authorized"
	ResultIntruder   = "intruder"
)

// Frame error kinds. None of them stops the stream.
const (
	ErrorDetection = "detection"
	ErrorAnnotate  = "annotate"
	ErrorEncode    = "encode"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	framesProcessed prometheus.Counter
	frameDuration   prometheus.Histogram
	faces           *prometheus.CounterVec
	intruders       prometheus.Counter
	frameErrors     *prometheus.CounterVec
	sessionState    prometheus.Gauge
}

// NewMetrics creates the collectors on their own registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.framesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "camguard_frames_processed_total",
		Help: "Frames read from the camera and run through the pipeline.",
	})
	m.frameDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "camguard_frame_duration_seconds",
		Help:    "Time spent detecting, matching and encoding one frame.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
	m.faces = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "camguard_faces_total",
		Help: "Faces seen, partitioned by recognition result.",
	}, []string{"result"})
	m.intruders = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "camguard_intruders_recorded_total",
		Help: "Novel intruders added to the ledger.",
	})
	m.frameErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "camguard_frame_errors_total",
		Help: "Per-frame failures that were skipped, partitioned by kind.",
	}, []string{"kind"})
	m.sessionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "camguard_session_state",
		Help: "Stream session state (0 idle, 1 opening, 2 streaming, 3 stopped).",
	})

	collectors := []prometheus.Collector{
		m.framesProcessed, m.frameDuration, m.faces, m.intruders, m.frameErrors, m.sessionState,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RegisterMetricsHandlers adds the metrics route to the provided mux.
func (m *Metrics) RegisterMetricsHandlers(mux *http.ServeMux) {
	if m == nil {
		return
	}
	mux.Handle(metricsPath, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFrame counts one processed frame.
func (m *Metrics) ObserveFrame(d time.Duration) {
	if m == nil {
		return
	}
	m.framesProcessed.Inc()
	m.frameDuration.Observe(d.Seconds())
}

// IncFace counts a face with the given result.
func (m *Metrics) IncFace(result string) {
	if m == nil {
		return
	}
	m.faces.WithLabelValues(result).Inc()
}

// IncIntruderRecorded counts a ledger append.
func (m *Metrics) IncIntruderRecorded() {
	if m == nil {
		return
	}
	m.intruders.Inc()
}

// IncFrameError counts a skipped per-frame failure.
func (m *Metrics) IncFrameError(kind string) {
	if m == nil {
		return
	}
	m.frameErrors.WithLabelValues(kind).Inc()
}

// SetSessionState publishes the numeric session state.
func (m *Metrics) SetSessionState(state int) {
	if m == nil {
		return
	}
	m.sessionState.Set(float64(state))
}
