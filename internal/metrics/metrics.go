package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "myphotos"

// Recorder owns the service's Prometheus collectors.
type Recorder struct {
	gatherer prometheus.Gatherer

	// transitions counts friendship writes.
	// Labels: operation (request, withdraw), result (transition name or error label)
	transitions *prometheus.CounterVec

	// accessDecisions counts visibility policy outcomes.
	// Labels: decision (owner, friend, denied)
	accessDecisions *prometheus.CounterVec

	// requestDuration measures HTTP handler latency.
	// Labels: method, code
	requestDuration *prometheus.HistogramVec
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newRecorder(reg, reg)
}

func newRecorder(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		gatherer: gatherer,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "friendship_transitions_total",
			Help:      "Friendship write operations by outcome",
		}, []string{"operation", "result"}),
		accessDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photo_access_decisions_total",
			Help:      "Photo visibility decisions by outcome",
		}, []string{"decision"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
}

// RecordTransition counts one friendship write.
func (r *Recorder) RecordTransition(operation, result string) {
	r.transitions.WithLabelValues(operation, result).Inc()
}

// RecordAccessDecision counts one visibility decision.
func (r *Recorder) RecordAccessDecision(decision string) {
	r.accessDecisions.WithLabelValues(decision).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Middleware observes the latency of every request served by next.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, req)
		r.requestDuration.WithLabelValues(req.Method, strconv.Itoa(sw.status)).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
