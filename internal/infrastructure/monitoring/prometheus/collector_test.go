package prometheus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

// metricValue sums every sample of the named family whose labels include want.
func metricValue(t *testing.T, c MetricsCollector, name string, want map[string]string) float64 {
	t.Helper()
	families, err := c.Gatherer().Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			match := true
			for k, v := range want {
				if labels[k] != v {
					match = false
				}
			}
			if !match {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "unit"}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfigInvalid))
}

func TestNewMetricsCollector_WithGoMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", EnableGoMetrics: true}, nil)
	require.NoError(t, err)
	n, err := testutil.GatherAndCount(c.Gatherer(), "go_goroutines")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRegisterCounter(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("events_total", "events", "kind")
	vec.WithLabelValues("a").Inc()
	vec.WithLabelValues("a").Add(2)
	vec.WithLabelValues("b").Inc()

	assert.Equal(t, 3.0, metricValue(t, c, "test_unit_events_total", map[string]string{"kind": "a"}))
	assert.Equal(t, 4.0, metricValue(t, c, "test_unit_events_total", nil))
}

func TestRegisterCounter_DuplicateReturnsExisting(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("dup_total", "dup").WithLabelValues().Inc()
	c.RegisterCounter("dup_total", "dup").WithLabelValues().Inc()
	assert.Equal(t, 2.0, metricValue(t, c, "test_unit_dup_total", nil))
}

func TestRegister_TypeMismatchIsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("mixed", "mixed")
	g := c.RegisterGauge("mixed", "mixed")
	assert.NotPanics(t, func() { g.WithLabelValues().Set(3) })
	assert.IsType(t, noopGaugeVec{}, g)
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterGauge("level", "level", "name").WithLabelValues("x").Set(7)
	h := c.RegisterHistogram("latency_seconds", "latency", nil, "op")
	h.WithLabelValues("read").Observe(0.2)
	h.WithLabelValues("read").Observe(0.4)

	assert.Equal(t, 7.0, metricValue(t, c, "test_unit_level", map[string]string{"name": "x"}))
	assert.Equal(t, 2.0, metricValue(t, c, "test_unit_latency_seconds", map[string]string{"op": "read"}))
}

func TestWriteTextfile(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("written_total", "written").WithLabelValues().Add(5)

	path := filepath.Join(t.TempDir(), "nested", "shiftgraph.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "test_unit_written_total 5")
}
