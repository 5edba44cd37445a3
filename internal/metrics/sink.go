package metrics

import "time"

// Metric names recorded by the load engine. The Prometheus sink prefixes them with its namespace.
const (
	LoadRequests         = "load_requests_total"
	LoadDuration         = "load_duration_seconds"
	CPUDuration          = "cpu_duration_seconds"
	CPUTasks             = "cpu_tasks_total"
	MemoryAllocatedBytes = "memory_allocated_bytes"
	MemoryAllocations    = "memory_allocations_total"
	IOBytes              = "io_bytes_total"
	IOCycles             = "io_cycles_total"
	IODuration           = "io_duration_seconds"
	StressorErrors       = "stressor_errors_total"
)

// Label keys.
const (
	LabelPath      = "path"
	LabelMode      = "mode"
	LabelAlgorithm = "algorithm"
	LabelDirection = "direction"
	LabelCategory  = "category"
)

// Labels keys an observation, e.g. {"path": "/load", "algorithm": "hashing"}.
type Labels map[string]string

// Sink receives numeric observations from the load engine.
// Implementations must be safe for concurrent use by simultaneous requests.
// A returned error only describes the rejected observation; callers log it and carry on.
type Sink interface {
	Count(name string, delta float64, labels Labels) error
	ObserveDuration(name string, d time.Duration, labels Labels) error
	SetGauge(name string, value float64, labels Labels) error
}

// NopSink discards every observation.
type NopSink struct{}

func (NopSink) Count(string, float64, Labels) error                { return nil }
func (NopSink) ObserveDuration(string, time.Duration, Labels) error { return nil }
func (NopSink) SetGauge(string, float64, Labels) error              { return nil }
