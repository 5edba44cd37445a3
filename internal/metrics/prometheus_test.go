package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink("loadgen", reg)
	require.NoError(t, err)
	return sink, reg
}

func TestPrometheusSinkCount(t *testing.T) {
	sink, _ := newTestSink(t)

	require.NoError(t, sink.Count(IOBytes, 1024, Labels{LabelPath: "/load", LabelDirection: "write"}))
	require.NoError(t, sink.Count(IOBytes, 1024, Labels{LabelPath: "/load", LabelDirection: "write"}))

	got := testutil.ToFloat64(sink.counters[IOBytes].WithLabelValues("/load", "write"))
	assert.Equal(t, 2048.0, got)
}

func TestPrometheusSinkRejectsBadObservations(t *testing.T) {
	sink, _ := newTestSink(t)

	assert.Error(t, sink.Count("nope_total", 1, Labels{LabelPath: "/load"}))
	assert.Error(t, sink.Count(IOCycles, -1, Labels{LabelPath: "/load"}))
	assert.Error(t, sink.Count(IOCycles, 1, Labels{"route": "/load"}))
	assert.Error(t, sink.ObserveDuration(CPUDuration, time.Second, Labels{LabelPath: "/load"}))
	assert.Error(t, sink.SetGauge(LoadRequests, 1, Labels{LabelPath: "/load"}))
}

func TestPrometheusSinkGaugeAndHistogram(t *testing.T) {
	sink, reg := newTestSink(t)

	require.NoError(t, sink.SetGauge(MemoryAllocatedBytes, 1<<20, Labels{LabelPath: "/load"}))
	require.NoError(t, sink.ObserveDuration(CPUDuration, 250*time.Millisecond,
		Labels{LabelPath: "/load", LabelAlgorithm: "hashing"}))

	assert.Equal(t, float64(1<<20), testutil.ToFloat64(sink.gauges[MemoryAllocatedBytes].WithLabelValues("/load")))

	count, err := testutil.GatherAndCount(reg, "loadgen_cpu_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusSinkConcurrentUse(t *testing.T) {
	sink, _ := newTestSink(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sink.Count(LoadRequests, 1, Labels{LabelPath: "/load", LabelMode: "balanced"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50.0, testutil.ToFloat64(sink.counters[LoadRequests].WithLabelValues("/load", "balanced")))
}

func TestNewPrometheusSinkDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink("loadgen", reg)
	require.NoError(t, err)

	_, err = NewPrometheusSink("loadgen", reg)
	assert.Error(t, err)
}

func TestRegisterAppInfo(t *testing.T) {
	reg := NewRegistry(RegistryOptions{})
	require.NoError(t, RegisterAppInfo(reg, "1.0.0-dev"))

	expected := `
# HELP app_info System Load Application
# TYPE app_info gauge
app_info{version="1.0.0-dev"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "app_info"))
}

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	assert.NoError(t, s.Count(LoadRequests, 1, nil))
	assert.NoError(t, s.ObserveDuration(LoadDuration, time.Second, nil))
	assert.NoError(t, s.SetGauge(MemoryAllocatedBytes, 1, nil))
}
