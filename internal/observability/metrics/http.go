package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	uploadsTotal      *prometheus.CounterVec
	uploadBytes       *prometheus.HistogramVec
	validationsTotal  *prometheus.CounterVec
	downloadsTotal    *prometheus.CounterVec
	feedbackTotal     *prometheus.CounterVec
	authRejectedTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctweak",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "doctweak",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "doctweak",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctweak",
			Subsystem: "intake",
			Name:      "uploads_total",
			Help:      "Total accepted document uploads by source.",
		},
		[]string{"service", "source"},
	)
	uploadBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "doctweak",
			Subsystem: "intake",
			Name:      "upload_bytes",
			Help:      "Distribution of accepted upload sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"service"},
	)
	validationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctweak",
			Subsystem: "intake",
			Name:      "validation_failures_total",
			Help:      "Total uploads rejected by validation, by error kind.",
		},
		[]string{"service", "kind"},
	)
	downloadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctweak",
			Subsystem: "result",
			Name:      "downloads_total",
			Help:      "Total result deliveries by mode (download or preview).",
		},
		[]string{"service", "mode"},
	)
	feedbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctweak",
			Subsystem: "feedback",
			Name:      "submissions_total",
			Help:      "Total composed feedback submissions by rating.",
		},
		[]string{"service", "rating"},
	)
	authRejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctweak",
			Subsystem: "http",
			Name:      "auth_rejected_total",
			Help:      "Total requests rejected by the authentication gate.",
		},
		[]string{"service", "path"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		uploadBytes,
		validationsTotal,
		downloadsTotal,
		feedbackTotal,
		authRejectedTotal,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		uploadsTotal:      uploadsTotal,
		uploadBytes:       uploadBytes,
		validationsTotal:  validationsTotal,
		downloadsTotal:    downloadsTotal,
		feedbackTotal:     feedbackTotal,
		authRejectedTotal: authRejectedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/sessions/"):
		rest := strings.TrimPrefix(path, "/v1/sessions/")
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return "/v1/sessions/{session_id}" + rest[i:]
		}
		return "/v1/sessions/{session_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordUpload(service, source string, sizeBytes int64) {
	if source == "" {
		source = "file"
	}
	m.uploadsTotal.WithLabelValues(service, source).Inc()
	if sizeBytes > 0 {
		m.uploadBytes.WithLabelValues(service).Observe(float64(sizeBytes))
	}
}

func (m *HTTPServerMetrics) RecordValidationFailure(service, kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.validationsTotal.WithLabelValues(service, kind).Inc()
}

func (m *HTTPServerMetrics) RecordResultDelivery(service, mode string) {
	m.downloadsTotal.WithLabelValues(service, mode).Inc()
}

func (m *HTTPServerMetrics) RecordFeedback(service string, rating int) {
	m.feedbackTotal.WithLabelValues(service, strconv.Itoa(rating)).Inc()
}

func (m *HTTPServerMetrics) RecordAuthRejected(service, path string) {
	m.authRejectedTotal.WithLabelValues(service, normalizePath(path)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
