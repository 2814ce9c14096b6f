package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	DocumentsRegistered   prometheus.Counter
	UpdateDuration        prometheus.Histogram
	AllocateDuration      prometheus.Histogram
	NotificationsSent     prometheus.Counter
	NotificationsDropped  prometheus.Counter
	DistributionSanitized prometheus.Counter
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		DocumentsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chancery_documents_registered_total",
			Help: "Total number of documents assigned a registration number",
		}),
		UpdateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chancery_document_update_duration_seconds",
			Help:    "Duration of document update orchestrations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		AllocateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chancery_number_allocate_duration_seconds",
			Help:    "Duration of registration number allocations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chancery_notifications_sent_total",
			Help: "Total notifications handed to the notifier",
		}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chancery_notifications_dropped_total",
			Help: "Total notifications dropped by the fan-out cap or delivery failure",
		}),
		DistributionSanitized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chancery_distribution_ids_sanitized_total",
			Help: "Total distribution actor ids dropped as unknown or inactive",
		}),
	}
}

// ObserveUpdate records the duration of an update orchestration.
func (m *Metrics) ObserveUpdate(start time.Time) {
	m.UpdateDuration.Observe(time.Since(start).Seconds())
}

// ObserveAllocate records the duration of a number allocation.
func (m *Metrics) ObserveAllocate(start time.Time) {
	m.AllocateDuration.Observe(time.Since(start).Seconds())
}
