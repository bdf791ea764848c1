package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Outbox related metrics
	OutboxEntriesAcked     prometheus.Counter
	OutboxEntriesRetried   prometheus.Counter
	OutboxEntriesEscalated prometheus.Counter
	OutboxQueueSize        prometheus.Gauge

	// Sync pass metrics
	SyncPassLatency   prometheus.Histogram
	UploadsAccepted   prometheus.Counter
	UploadsRejected   prometheus.Counter
	DownloadedRecords *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on the default
// registry.
func NewMetrics(namespace, subsystem string) *Metrics {
	return NewMetricsWith(namespace, subsystem, prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the metrics on the given registerer.
func NewMetricsWith(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OutboxEntriesAcked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_entries_acked_total",
			Help:      "Total number of outbox entries confirmed by the remote endpoint",
		}),
		OutboxEntriesRetried: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_entries_retried_total",
			Help:      "Total number of outbox entries left for a later sync cycle",
		}),
		OutboxEntriesEscalated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_entries_escalated_total",
			Help:      "Total number of outbox entries flagged past the retry ceiling",
		}),
		OutboxQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_queue_size",
			Help:      "Current number of pending entries in the outbox",
		}),
		SyncPassLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sync_pass_duration_seconds",
			Help:      "Time spent running a full sync pass",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		UploadsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "uploads_accepted_total",
			Help:      "Total number of user-data mutations accepted by the remote endpoint",
		}),
		UploadsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "uploads_rejected_total",
			Help:      "Total number of uploads rejected in favor of a newer server copy",
		}),
		DownloadedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "downloaded_records_total",
			Help:      "Total number of reference records pulled from the remote endpoint",
		}, []string{"entity_type"}),
	}
}
