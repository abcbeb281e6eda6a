package hostapi

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricKind mirrors the plugin ABI's MetricType enum (spec.md §4.6 emit).
type MetricKind int

const (
	MetricCounter MetricKind = iota
	MetricGauge
	MetricHistogram
)

// MetricValue is a sum type over the value shapes each MetricKind accepts.
// Exactly one field is meaningful for a given Kind; emit rejects any other
// combination.
type MetricValue struct {
	Kind      MetricKind
	Counter   float64
	Gauge     float64
	Histogram HistogramSample
}

// HistogramSample approximates a pre-aggregated histogram observation a
// plugin reports: rather than recording the raw sample population, the
// broker observes the mean SampleSum/SampleCount SampleCount times — the same
// approximation the original host's metrics.rs makes ("observe the
// sample_sum divided by sample_count... for sample_count observations").
type HistogramSample struct {
	SampleSum   float64
	SampleCount uint64
	Buckets     []float64
}

// MetricsBroker backs the plugin-facing "metrics" import: emit(name, type,
// value, labels[]). Every metric name is prefixed "plugin_<id>_" (spec.md
// §4.6), and vectors are created lazily per metric name the first time a
// plugin emits them, since — unlike a host's own fixed metrics — the set of
// plugin metric names is not known at compile time. The label keys of that
// first emit fix the vector's label dimensions for the name.
type MetricsBroker struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewMetricsBroker wires the broker to an existing registry so plugin
// metrics are exported alongside the host's own.
func NewMetricsBroker(registry *prometheus.Registry, logger *slog.Logger) *MetricsBroker {
	return &MetricsBroker{
		registry:   registry,
		logger:     logger,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Emit implements the "metrics.emit" host function. No capability is
// required (spec.md §4.6); a type/value mismatch is logged and dropped,
// never returned as an ABI-visible error, so a plugin cannot retry against
// it (SPEC_FULL §C.6).
func (b *MetricsBroker) Emit(pluginID, name string, kind MetricKind, value MetricValue, labels map[string]string) {
	fullName := "plugin_" + sanitizeMetricName(pluginID) + "_" + sanitizeMetricName(name)
	keys, values := splitLabels(labels)

	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case kind == MetricCounter && value.Kind == MetricCounter:
		vec := b.counterVec(fullName, keys)
		vec.WithLabelValues(values...).Add(value.Counter)
	case kind == MetricGauge && value.Kind == MetricGauge:
		vec := b.gaugeVec(fullName, keys)
		vec.WithLabelValues(values...).Set(value.Gauge)
	case kind == MetricHistogram && value.Kind == MetricHistogram:
		vec := b.histogramVec(fullName, keys, value.Histogram.Buckets)
		observer := vec.WithLabelValues(values...)
		if value.Histogram.SampleCount > 0 {
			average := value.Histogram.SampleSum / float64(value.Histogram.SampleCount)
			for n := uint64(0); n < value.Histogram.SampleCount; n++ {
				observer.Observe(average)
			}
		}
	default:
		b.logger.Warn("plugin emitted metric with mismatched type and value",
			slog.String("plugin_id", pluginID), slog.String("metric", fullName))
	}
}

func (b *MetricsBroker) counterVec(name string, keys []string) *prometheus.CounterVec {
	if vec, ok := b.counters[name]; ok {
		return vec
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: "Plugin counter metric"}, keys)
	b.registry.MustRegister(vec)
	b.counters[name] = vec
	return vec
}

func (b *MetricsBroker) gaugeVec(name string, keys []string) *prometheus.GaugeVec {
	if vec, ok := b.gauges[name]; ok {
		return vec
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: "Plugin gauge metric"}, keys)
	b.registry.MustRegister(vec)
	b.gauges[name] = vec
	return vec
}

func (b *MetricsBroker) histogramVec(name string, keys []string, buckets []float64) *prometheus.HistogramVec {
	if vec, ok := b.histograms[name]; ok {
		return vec
	}
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: "Plugin histogram metric", Buckets: buckets}, keys)
	b.registry.MustRegister(vec)
	b.histograms[name] = vec
	return vec
}

func splitLabels(labels map[string]string) (keys, values []string) {
	keys = make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	// stable order so repeated emits with the same label set reuse the
	// already-registered vector instead of tripping a dimension mismatch.
	sort.Strings(keys)
	values = make([]string, len(keys))
	for i, k := range keys {
		values[i] = labels[k]
	}
	return keys, values
}

func sanitizeMetricName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
