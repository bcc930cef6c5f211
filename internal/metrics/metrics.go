// Package metrics provides Prometheus metrics collection for the cost service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestDuration tracks HTTP request duration by method, route pattern, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestTotal tracks total HTTP requests by method, route pattern, and status code.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// EvaluationsTotal tracks cost engine runs by operation and outcome.
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cost_evaluations_total",
			Help: "Total number of cost engine evaluations",
		},
		[]string{"operation", "status"},
	)

	// EvaluationDuration tracks cost engine run duration by operation.
	EvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cost_evaluation_duration_seconds",
			Help:    "Cost engine evaluation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)

	// CandidateCartons tracks the number of cartons in the session.
	CandidateCartons = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "candidate_cartons",
			Help: "Number of candidate cartons currently stored",
		},
	)
)

// Middleware records request metrics labelled with the matched route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		statusCode := strconv.Itoa(rec.status)
		HTTPRequestDuration.WithLabelValues(r.Method, path, statusCode).Observe(time.Since(start).Seconds())
		HTTPRequestTotal.WithLabelValues(r.Method, path, statusCode).Inc()
	})
}

// RecordEvaluation records the duration and outcome of one engine operation.
func RecordEvaluation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	EvaluationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	EvaluationsTotal.WithLabelValues(operation, status).Inc()
}

// SetCandidateCartons updates the stored carton gauge.
func SetCandidateCartons(n int) {
	CandidateCartons.Set(float64(n))
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
