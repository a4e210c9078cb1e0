package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verolabz/doctweak/internal/core/domain"
	"github.com/verolabz/doctweak/internal/core/fallback"
)

// WorkerMetrics records enhancement pipeline telemetry. It satisfies the
// chain observer consumed by the enhance use case.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	attemptsTotal      *prometheus.CounterVec
	outcomesTotal      *prometheus.CounterVec
	fallbackDepth      *prometheus.HistogramVec
	processDuration    *prometheus.HistogramVec
	processInFlight    prometheus.Gauge
	extractionFailures *prometheus.CounterVec
	queueLag           *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	attemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctweak",
			Subsystem: "chain",
			Name:      "attempts_total",
			Help:      "Total backend candidate attempts by outcome.",
		},
		[]string{"service", "backend", "status"},
	)
	outcomesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctweak",
			Subsystem: "chain",
			Name:      "outcomes_total",
			Help:      "Total completed fallback chain runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	fallbackDepth := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "doctweak",
			Subsystem: "chain",
			Name:      "fallback_depth",
			Help:      "Candidates consumed before the chain settled.",
			Buckets:   []float64{0, 1, 2, 3, 4},
		},
		[]string{"service"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "doctweak",
			Subsystem: "worker",
			Name:      "session_process_duration_seconds",
			Help:      "Enhancement processing duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "doctweak",
			Subsystem: "worker",
			Name:      "session_process_in_flight",
			Help:      "Number of sessions currently being enhanced.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	extractionFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctweak",
			Subsystem: "extraction",
			Name:      "failures_total",
			Help:      "Total local extraction failures by classified reason.",
		},
		[]string{"service", "reason"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "doctweak",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between session creation and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		attemptsTotal,
		outcomesTotal,
		fallbackDepth,
		processDuration,
		processInFlight,
		extractionFailures,
		queueLag,
	)

	return &WorkerMetrics{
		service:            service,
		registry:           registry,
		attemptsTotal:      attemptsTotal,
		outcomesTotal:      outcomesTotal,
		fallbackDepth:      fallbackDepth,
		processDuration:    processDuration,
		processInFlight:    processInFlight,
		extractionFailures: extractionFailures,
		queueLag:           queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) ObserveAttempt(backend string, status fallback.AttemptStatus) {
	m.attemptsTotal.WithLabelValues(m.service, backend, string(status)).Inc()
}

func (m *WorkerMetrics) ObserveOutcome(outcome string, depth int, duration time.Duration) {
	m.outcomesTotal.WithLabelValues(m.service, outcome).Inc()
	m.fallbackDepth.WithLabelValues(m.service).Observe(float64(depth))
	m.processDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveExtractionFailure(reason domain.ExtractionReason) {
	m.extractionFailures.WithLabelValues(m.service, string(reason)).Inc()
}

func (m *WorkerMetrics) StartSession() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishSession() {
	m.processInFlight.Dec()
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}
