package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "postcode_distance"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Postcode lookup metrics.
	LookupRequests    *prometheus.CounterVec   // labels: method={lookup,bulk}, outcome={found,not_found,error}
	LookupCache       *prometheus.CounterVec   // labels: method={lookup,bulk}, result={hit,miss}
	LookupAPIDuration *prometheus.HistogramVec // labels: method={lookup,bulk}
	CacheEntries      prometheus.Gauge

	// Distance metrics.
	DistanceRequests *prometheus.CounterVec // labels: unit={km,miles}, outcome={resolved,unresolved,error}

	// Match pipeline metrics.
	MessagesConsumed        prometheus.Counter
	MessagesProduced        prometheus.Counter
	TransformErrors         prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.LookupRequests,
		m.LookupCache,
		m.LookupAPIDuration,
		m.CacheEntries,
		m.DistanceRequests,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_requests_total",
			Help:      "postcodes.io requests by method and outcome.",
		}, []string{"method", "outcome"}),
		LookupCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_cache_total",
			Help:      "Postcode cache lookups by method and result.",
		}, []string{"method", "result"}),
		LookupAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_api_duration_seconds",
			Help:      "postcodes.io request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lookup_cache_entries",
			Help:      "Postcodes currently held in the LRU cache.",
		}),
		DistanceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distance_requests_total",
			Help:      "Postcode-to-postcode distance computations by unit and outcome.",
		}, []string{"unit", "outcome"}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total match requests read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total match distances written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total match requests that could not be annotated.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the match pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// DistanceOutcome maps a distance computation to its metric label.
func DistanceOutcome(resolved bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case resolved:
		return "resolved"
	default:
		return "unresolved"
	}
}
