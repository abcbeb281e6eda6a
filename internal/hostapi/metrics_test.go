package hostapi_test

import (
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goagain/reglet-host/internal/hostapi"
)

func TestMetricsBroker_EmitCounter(t *testing.T) {
	registry := prometheus.NewRegistry()
	broker := hostapi.NewMetricsBroker(registry, slog.Default())

	broker.Emit("org.example.plugin", "hits", hostapi.MetricCounter,
		hostapi.MetricValue{Kind: hostapi.MetricCounter, Counter: 3}, nil)

	value := gaugeOrCounterValue(t, registry, "plugin_org_example_plugin_hits")
	assert.Equal(t, float64(3), value)
}

func TestMetricsBroker_MismatchIsDroppedNotPanicked(t *testing.T) {
	registry := prometheus.NewRegistry()
	broker := hostapi.NewMetricsBroker(registry, slog.Default())

	assert.NotPanics(t, func() {
		broker.Emit("org.example.plugin", "bad", hostapi.MetricCounter,
			hostapi.MetricValue{Kind: hostapi.MetricGauge, Gauge: 1}, nil)
	})

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "mismatched emit must not register any metric")
}

func gaugeOrCounterValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	t.Fatalf("metric %q not found", name)
	return 0
}
