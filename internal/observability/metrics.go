package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fm",
		Name:      "classifications_total",
		Help:      "Total number of classified embeddings by outcome",
	}, []string{"outcome"})

	ClassificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fm",
		Name:      "classification_duration_seconds",
		Help:      "Duration of nearest-embedding classification",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
	}, []string{"mode"})

	ReferenceSetSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fm",
		Name:      "reference_set_size",
		Help:      "Number of identities in the active reference set",
	})

	ReferenceReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fm",
		Name:      "reference_reloads_total",
		Help:      "Reference set reload attempts by result",
	}, []string{"result"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fm",
		Name:      "queue_depth",
		Help:      "Number of pending embedding tasks in queue",
	})

	MalformedTasks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fm",
		Name:      "malformed_tasks_total",
		Help:      "Embedding tasks dropped because they could not be classified",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fm",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fm",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)

// Classification outcomes.
const (
	OutcomeRecognized   = "recognized"
	OutcomeUnrecognized = "unrecognized"
	OutcomeUnknown      = "unknown"
)
