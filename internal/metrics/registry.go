package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// RegistryOptions selects the runtime collectors added to a new registry.
type RegistryOptions struct {
	GoCollector      bool
	ProcessCollector bool
}

// NewRegistry creates the process-wide registry served on /metrics.
func NewRegistry(opts RegistryOptions) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if opts.GoCollector {
		reg.MustRegister(collectors.NewGoCollector())
	}
	if opts.ProcessCollector {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return reg
}

// RegisterAppInfo exposes a constant app_info{version="..."} 1 series.
func RegisterAppInfo(reg prometheus.Registerer, version string) error {
	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "app_info",
		Help:        "System Load Application",
		ConstLabels: prometheus.Labels{"version": version},
	})
	info.Set(1)
	if err := reg.Register(info); err != nil {
		return fmt.Errorf("register app_info: %w", err)
	}
	return nil
}

// HTTPMetrics instruments every route of the HTTP server.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewHTTPMetrics(namespace string, reg prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served, by handler, status code and method",
			},
			[]string{"handler", "code", "method"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency, by handler and method",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
			},
			[]string{"handler", "method"},
		),
	}
	for _, c := range []prometheus.Collector{m.Requests, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register http metrics: %w", err)
		}
	}
	return m, nil
}
