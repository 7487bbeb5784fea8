package queue

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	enqueued  *prometheus.CounterVec
	processed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func newMetrics() *metrics {
	return &metrics{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nowplaying",
			Subsystem: "queue",
			Name:      "jobs_enqueued_total",
			Help:      "Jobs accepted by the queue.",
		}, []string{"job"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nowplaying",
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Job attempts by outcome (completed, retried, failed).",
		}, []string{"job", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nowplaying",
			Subsystem: "queue",
			Name:      "job_duration_seconds",
			Help:      "Handler run time per attempt.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}
}

// Collectors exposes the queue metrics for registration.
func (q *Queue) Collectors() []prometheus.Collector {
	return []prometheus.Collector{q.metrics.enqueued, q.metrics.processed, q.metrics.duration}
}
