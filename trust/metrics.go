package trust

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "trust"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of local trust updates, by direction.
	LocalUpdates metrics.Counter
	// Number of global trust updates, by direction.
	GlobalUpdates metrics.Counter
	// Number of updates rejected as invalid.
	RejectedUpdates metrics.Counter
	// Number of peers with local trust (approximate for sketches).
	LocalPeers metrics.Gauge
	// Number of peers with global trust (approximate for sketches).
	GlobalPeers metrics.Gauge
	// Time spent applying an update, normalization included.
	NormalizationSeconds metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	directionLabels := append(append([]string{}, labels...), "direction")
	return &Metrics{
		LocalUpdates: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "local_updates",
			Help:      "Number of local trust updates.",
		}, directionLabels).With(labelsAndValues...),
		GlobalUpdates: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "global_updates",
			Help:      "Number of sender-weighted global trust updates.",
		}, directionLabels).With(labelsAndValues...),
		RejectedUpdates: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rejected_updates",
			Help:      "Number of trust updates rejected as invalid.",
		}, labels).With(labelsAndValues...),
		LocalPeers: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "local_peers",
			Help:      "Number of peers with local trust.",
		}, labels).With(labelsAndValues...),
		GlobalPeers: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "global_peers",
			Help:      "Number of peers with global trust.",
		}, labels).With(labelsAndValues...),
		NormalizationSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "normalization_seconds",
			Help:      "Time spent applying a trust update, normalization included.",
			Buckets:   stdprometheus.ExponentialBuckets(0.00001, 4, 10),
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		LocalUpdates:         discard.NewCounter(),
		GlobalUpdates:        discard.NewCounter(),
		RejectedUpdates:      discard.NewCounter(),
		LocalPeers:           discard.NewGauge(),
		GlobalPeers:          discard.NewGauge(),
		NormalizationSeconds: discard.NewHistogram(),
	}
}
