package telemetry

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval Prometheus metrics.
var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coco",
			Name:      "events_total",
			Help:      "Total number of retrieval events by kind",
		},
		[]string{"kind"},
	)

	HarvestItems = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "coco",
			Name:      "harvest_items",
			Help:      "Search results collected per request before filtering",
			Buckets:   []float64{0, 5, 10, 20, 30, 50, 100},
		},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coco",
			Name:      "retrieval_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// RegisterMetrics registers the retrieval metrics with the default registry.
// Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(EventsTotal)
		prometheus.MustRegister(HarvestItems)
		prometheus.MustRegister(RetrievalDuration)
	})
}

// MetricsRecorder counts events by kind.
type MetricsRecorder struct{}

func (MetricsRecorder) Record(_ context.Context, ev Event) error {
	EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	return nil
}
