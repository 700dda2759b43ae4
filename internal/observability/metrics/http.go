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

	queryTotal            *prometheus.CounterVec
	queryDuration         *prometheus.HistogramVec
	queryRetrievedSources *prometheus.HistogramVec
	gateFailuresTotal     *prometheus.CounterVec
	answersTotal          *prometheus.CounterVec
	answerConfidence      *prometheus.HistogramVec
	answerFaithfulness    *prometheus.HistogramVec
	unverifiedClaimsTotal *prometheus.CounterVec
	degradedTotal         *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "policyrag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "policyrag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyrag",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total answered pipeline requests by endpoint.",
		},
		[]string{"service", "endpoint"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "policyrag",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	queryRetrievedSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "policyrag",
			Subsystem: "query",
			Name:      "retrieved_sources",
			Help:      "Distribution of distinct sources per answered request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	gateFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyrag",
			Subsystem: "query",
			Name:      "gate_failures_total",
			Help:      "Total requests rejected by the retrieval quality gate.",
		},
		[]string{"service", "endpoint"},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyrag",
			Subsystem: "query",
			Name:      "answers_total",
			Help:      "Total generated answers by confidence level.",
		},
		[]string{"service", "endpoint", "level"},
	)
	answerConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "policyrag",
			Subsystem: "query",
			Name:      "answer_confidence",
			Help:      "Distribution of composite confidence scores.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service", "endpoint"},
	)
	answerFaithfulness := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "policyrag",
			Subsystem: "query",
			Name:      "answer_faithfulness",
			Help:      "Distribution of faithfulness scores from the verifier.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service", "endpoint"},
	)
	unverifiedClaimsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyrag",
			Subsystem: "query",
			Name:      "unverified_claims_total",
			Help:      "Total numeric claims in answers not found in context.",
		},
		[]string{"service", "endpoint"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyrag",
			Subsystem: "query",
			Name:      "degraded_validations_total",
			Help:      "Total answers whose faithfulness check was unavailable.",
		},
		[]string{"service", "endpoint"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryDuration,
		queryRetrievedSources,
		gateFailuresTotal,
		answersTotal,
		answerConfidence,
		answerFaithfulness,
		unverifiedClaimsTotal,
		degradedTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		queryTotal:            queryTotal,
		queryDuration:         queryDuration,
		queryRetrievedSources: queryRetrievedSources,
		gateFailuresTotal:     gateFailuresTotal,
		answersTotal:          answersTotal,
		answerConfidence:      answerConfidence,
		answerFaithfulness:    answerFaithfulness,
		unverifiedClaimsTotal: unverifiedClaimsTotal,
		degradedTotal:         degradedTotal,
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
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordQueryObservation(service, endpoint string, sourceCount int, duration time.Duration) {
	m.queryTotal.WithLabelValues(service, endpoint).Inc()
	m.queryRetrievedSources.WithLabelValues(service, endpoint).Observe(float64(sourceCount))
	m.queryDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordGateFailure(service, endpoint string) {
	m.gateFailuresTotal.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordAnswerValidation(service, endpoint string, confidence, faithfulness float64, level string, unverifiedClaims int, degraded bool) {
	if level == "" {
		level = "unknown"
	}
	m.answersTotal.WithLabelValues(service, endpoint, level).Inc()
	m.answerConfidence.WithLabelValues(service, endpoint).Observe(confidence)
	m.answerFaithfulness.WithLabelValues(service, endpoint).Observe(faithfulness)
	if unverifiedClaims > 0 {
		m.unverifiedClaimsTotal.WithLabelValues(service, endpoint).Add(float64(unverifiedClaims))
	}
	if degraded {
		m.degradedTotal.WithLabelValues(service, endpoint).Inc()
	}
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
