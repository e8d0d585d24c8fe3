package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers queued submissions handled by the worker process.
type WorkerMetrics struct {
	registry *prometheus.Registry

	submissions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	queueLag    prometheus.Histogram
	categories  *prometheus.CounterVec
	retries     *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	labels := prometheus.Labels{"service": service}
	m := &WorkerMetrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "intake",
			Subsystem:   "worker",
			Name:        "submissions_total",
			Help:        "Queued submissions handled, by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "intake",
			Subsystem:   "worker",
			Name:        "submission_duration_seconds",
			Help:        "Time spent processing a queued submission, by outcome.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			ConstLabels: labels,
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "intake",
			Subsystem:   "worker",
			Name:        "submissions_in_flight",
			Help:        "Submissions currently being processed.",
			ConstLabels: labels,
		}),
		queueLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "intake",
			Subsystem:   "worker",
			Name:        "queue_lag_seconds",
			Help:        "Delay between submission and processing start.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: labels,
		}),
		categories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "intake",
			Subsystem:   "classification",
			Name:        "categories_total",
			Help:        "Accepted categories across processed documents.",
			ConstLabels: labels,
		}, []string{"category"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "intake",
			Subsystem:   "dependency",
			Name:        "retries_total",
			Help:        "Retried outbound calls by operation.",
			ConstLabels: labels,
		}, []string{"operation"}),
	}
	m.registry.MustRegister(m.submissions, m.duration, m.inFlight, m.queueLag, m.categories, m.retries)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartSubmission records queue lag for a submission accepted at submittedAt
// and returns the callback that closes out its processing.
func (m *WorkerMetrics) StartSubmission(submittedAt time.Time) func(categories []string, err error) {
	start := time.Now()
	if !submittedAt.IsZero() {
		if lag := start.Sub(submittedAt); lag >= 0 {
			m.queueLag.Observe(lag.Seconds())
		}
	}
	m.inFlight.Inc()

	return func(categories []string, err error) {
		m.inFlight.Dec()
		outcome := Outcome(err)
		m.submissions.WithLabelValues(outcome).Inc()
		m.duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		for _, category := range categories {
			m.categories.WithLabelValues(category).Inc()
		}
	}
}

func (m *WorkerMetrics) RecordRetry(operation string) {
	m.retries.WithLabelValues(operation).Inc()
}
