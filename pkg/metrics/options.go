package metrics

import (
	"slices"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace overrides the "scout" namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem overrides the "valuation" subsystem.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets the buckets of the prediction and HTTP latency
// histograms. Unsorted input is sorted.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = sortedCopy(buckets)
		}
	}
}

// WithScanBuckets sets the buckets of the scan duration histogram, which
// covers seconds to minutes rather than sub-millisecond predictions.
func WithScanBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.scanBuckets = sortedCopy(buckets)
		}
	}
}

// WithPrometheusRegistry registers every collector on registry instead of
// the default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

func sortedCopy(b []float64) []float64 {
	out := slices.Clone(b)
	slices.Sort(out)
	return slices.Compact(out)
}
