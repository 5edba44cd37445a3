package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink on top of pre-declared Prometheus vectors.
// Observations for names it does not know, or with the wrong label set, are rejected with an error.
type PrometheusSink struct {
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusSink declares the engine metrics under namespace and registers them with reg.
func NewPrometheusSink(namespace string, reg prometheus.Registerer) (*PrometheusSink, error) {
	durationBuckets := prometheus.ExponentialBuckets(0.001, 2, 16)

	s := &PrometheusSink{
		counters: map[string]*prometheus.CounterVec{
			LoadRequests: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      LoadRequests,
					Help:      "Load requests executed, by route and mode",
				},
				[]string{LabelPath, LabelMode},
			),
			CPUTasks: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      CPUTasks,
					Help:      "CPU computations performed, by route and algorithm",
				},
				[]string{LabelPath, LabelAlgorithm},
			),
			MemoryAllocations: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      MemoryAllocations,
					Help:      "Memory blocks allocated by the memory stressor",
				},
				[]string{LabelPath},
			),
			IOBytes: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      IOBytes,
					Help:      "Bytes moved by the I/O stressor",
				},
				[]string{LabelPath, LabelDirection}, // read, write
			),
			IOCycles: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      IOCycles,
					Help:      "Write-then-read cycles completed by the I/O stressor",
				},
				[]string{LabelPath},
			),
			StressorErrors: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      StressorErrors,
					Help:      "Stressor failures, by route and category",
				},
				[]string{LabelPath, LabelCategory}, // memory, cpu, io
			),
		},
		histograms: map[string]*prometheus.HistogramVec{
			LoadDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      LoadDuration,
					Help:      "Time spent running the stressors of one load request",
					Buckets:   durationBuckets,
				},
				[]string{LabelPath},
			),
			CPUDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      CPUDuration,
					Help:      "Time spent in the CPU stressor",
					Buckets:   durationBuckets,
				},
				[]string{LabelPath, LabelAlgorithm},
			),
			IODuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      IODuration,
					Help:      "Time spent in the I/O stressor",
					Buckets:   durationBuckets,
				},
				[]string{LabelPath},
			),
		},
		gauges: map[string]*prometheus.GaugeVec{
			MemoryAllocatedBytes: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      MemoryAllocatedBytes,
					Help:      "Size of the most recent memory stressor allocation",
				},
				[]string{LabelPath},
			),
		},
	}

	for _, c := range s.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return s, nil
}

func (s *PrometheusSink) collectors() []prometheus.Collector {
	var out []prometheus.Collector
	for _, v := range s.counters {
		out = append(out, v)
	}
	for _, v := range s.histograms {
		out = append(out, v)
	}
	for _, v := range s.gauges {
		out = append(out, v)
	}
	return out
}

func (s *PrometheusSink) Count(name string, delta float64, labels Labels) error {
	vec, ok := s.counters[name]
	if !ok {
		return fmt.Errorf("unknown counter %q", name)
	}
	if delta < 0 {
		return fmt.Errorf("counter %q: negative delta %g", name, delta)
	}
	c, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return fmt.Errorf("counter %q: %w", name, err)
	}
	c.Add(delta)
	return nil
}

func (s *PrometheusSink) ObserveDuration(name string, d time.Duration, labels Labels) error {
	vec, ok := s.histograms[name]
	if !ok {
		return fmt.Errorf("unknown histogram %q", name)
	}
	o, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return fmt.Errorf("histogram %q: %w", name, err)
	}
	o.Observe(d.Seconds())
	return nil
}

func (s *PrometheusSink) SetGauge(name string, value float64, labels Labels) error {
	vec, ok := s.gauges[name]
	if !ok {
		return fmt.Errorf("unknown gauge %q", name)
	}
	g, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return fmt.Errorf("gauge %q: %w", name, err)
	}
	g.Set(value)
	return nil
}
