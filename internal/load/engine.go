package load

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/VyvaHart/system-load-demonstrator/internal/metrics"
	"github.com/VyvaHart/system-load-demonstrator/internal/tracing"
)

// Stressor categories, used as metric and span labels.
const (
	CategoryMemory = "memory"
	CategoryCPU    = "cpu"
	CategoryIO     = "io"
)

// Result is the response of one load request.
type Result struct {
	MemoryInfo      string  `json:"memory_info"`
	CPUWork         string  `json:"cpu_work"`
	IOInfo          string  `json:"io_info"`
	DurationSeconds float64 `json:"duration_seconds"`
	ParametersUsed  Request `json:"parameters_used"`
}

// Options configures an Engine.
type Options struct {
	Sink    metrics.Sink
	Logger  *zap.Logger
	Tracer  trace.Tracer
	TempDir string
	// TouchMemory writes one byte per page of the memory block.
	TouchMemory bool
	Limits      Limits
}

// Engine runs the stressors of a load request. It keeps no per-request state and is
// safe for concurrent use; the only shared collaborator is the metrics sink.
type Engine struct {
	sink        metrics.Sink
	logger      *zap.Logger
	tracer      trace.Tracer
	tempDir     string
	touchMemory bool
	limits      Limits
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		sink:        opts.Sink,
		logger:      opts.Logger,
		tracer:      opts.Tracer,
		tempDir:     opts.TempDir,
		touchMemory: opts.TouchMemory,
		limits:      opts.Limits,
	}
	if e.sink == nil {
		e.sink = metrics.NopSink{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("load")
	}
	return e
}

// Limits returns the parameter bounds requests are validated against.
func (e *Engine) Limits() Limits {
	return e.limits
}

// outcomes collects what the stressors produced for metrics emission.
type outcomes struct {
	memoryRan   bool
	memoryBytes int
	memoryErr   error
	cpu         *CPUOutcome
	cpuErr      error
	io          *IOOutcome
	ioErr       error
}

// Run executes the stressors selected by req in the fixed order memory, CPU, I/O.
// Stressor failures are reported in the result, never returned. path labels metrics.
func (e *Engine) Run(ctx context.Context, path string, req Request) Result {
	plan := PlanFor(req)
	res := Result{ParametersUsed: req}
	var got outcomes

	start := time.Now()

	block := e.runMemory(ctx, req, plan, &res, &got)
	// The block is held until CPU and I/O are done.
	defer block.Release()

	e.runCPU(ctx, req, plan, &res, &got)
	e.runIO(ctx, req, plan, &res, &got)

	elapsed := time.Since(start)
	res.DurationSeconds = math.Round(elapsed.Seconds()*1e4) / 1e4

	e.report(path, req, elapsed, got)

	e.logger.Debug("Load request completed",
		zap.String("path", path),
		zap.String("mode", string(req.Mode)),
		zap.Bool("memory", plan.Memory),
		zap.Bool("cpu", plan.CPU),
		zap.Bool("io", plan.IO),
		zap.Duration("duration", elapsed),
	)
	return res
}

func (e *Engine) runMemory(ctx context.Context, req Request, plan Plan, res *Result, got *outcomes) *MemoryBlock {
	if !plan.Memory {
		res.MemoryInfo = "Memory allocation skipped"
		return nil
	}

	_, span := tracing.StartStressorSpan(ctx, e.tracer, CategoryMemory,
		attribute.Int("loadgen.data_size_mb", req.DataSizeMB))

	var block *MemoryBlock
	err := guard(func() error {
		var err error
		block, err = AllocateMemory(req.DataSizeMB, e.touchMemory)
		return err
	})
	tracing.EndSpan(span, err, attribute.Int("loadgen.allocated_bytes", block.Size()))

	if err != nil {
		got.memoryErr = err
		res.MemoryInfo = fmt.Sprintf("Memory allocation failed: %v", err)
		e.logger.Warn("Memory stressor failed", zap.Int("data_size_mb", req.DataSizeMB), zap.Error(err))
		return nil
	}

	got.memoryRan = true
	got.memoryBytes = block.Size()
	res.MemoryInfo = fmt.Sprintf("Allocated %.2f MB (%d bytes)", float64(block.Size())/MiB, block.Size())
	return block
}

func (e *Engine) runCPU(ctx context.Context, req Request, plan Plan, res *Result, got *outcomes) {
	if !plan.CPU {
		res.CPUWork = "CPU work skipped"
		return
	}

	_, span := tracing.StartStressorSpan(ctx, e.tracer, CategoryCPU,
		attribute.String("loadgen.algorithm", string(req.CPUAlgorithm)),
		attribute.Int("loadgen.cpu_task_scale", req.CPUTaskScale),
		attribute.Int("loadgen.iterations", req.Iterations))

	var out CPUOutcome
	err := guard(func() error {
		var err error
		out, err = RunCPU(req.CPUAlgorithm, req.CPUTaskScale, req.Iterations, req.DataSizeMB)
		return err
	})
	tracing.EndSpan(span, err)

	if err != nil {
		got.cpuErr = err
		res.CPUWork = fmt.Sprintf("CPU work failed: %v", err)
		e.logger.Warn("CPU stressor failed", zap.String("algorithm", string(req.CPUAlgorithm)), zap.Error(err))
		return
	}

	got.cpu = &out
	res.CPUWork = fmt.Sprintf("%s in %.4fs", out, out.Elapsed.Seconds())
}

func (e *Engine) runIO(ctx context.Context, req Request, plan Plan, res *Result, got *outcomes) {
	if !plan.IO {
		res.IOInfo = "I/O work skipped"
		return
	}

	_, span := tracing.StartStressorSpan(ctx, e.tracer, CategoryIO,
		attribute.Int("loadgen.data_size_mb", req.DataSizeMB),
		attribute.Int("loadgen.iterations", req.Iterations))

	var out IOOutcome
	err := guard(func() error {
		var err error
		out, err = RunIO(e.tempDir, req.DataSizeMB, req.Iterations)
		return err
	})
	tracing.EndSpan(span, err,
		attribute.Int64("loadgen.bytes_written", out.BytesWritten),
		attribute.Int64("loadgen.bytes_read", out.BytesRead))

	got.io = &out
	if err != nil {
		got.ioErr = err
		res.IOInfo = fmt.Sprintf("I/O work failed: %v", err)
		e.logger.Warn("I/O stressor failed", zap.String("dir", e.tempDir), zap.Error(err))
		return
	}

	res.IOInfo = out.String()
}

// report sends the observations of one run to the sink. Sink failures are logged only.
func (e *Engine) report(path string, req Request, elapsed time.Duration, got outcomes) {
	byPath := metrics.Labels{metrics.LabelPath: path}

	e.record(e.sink.Count(metrics.LoadRequests, 1, metrics.Labels{metrics.LabelPath: path, metrics.LabelMode: string(req.Mode)}))
	e.record(e.sink.ObserveDuration(metrics.LoadDuration, elapsed, byPath))

	if got.memoryErr != nil {
		e.recordFailure(path, CategoryMemory)
	} else if got.memoryRan {
		e.record(e.sink.SetGauge(metrics.MemoryAllocatedBytes, float64(got.memoryBytes), byPath))
		e.record(e.sink.Count(metrics.MemoryAllocations, 1, byPath))
	}

	if got.cpuErr != nil {
		e.recordFailure(path, CategoryCPU)
	} else if got.cpu != nil {
		byAlgorithm := metrics.Labels{metrics.LabelPath: path, metrics.LabelAlgorithm: string(got.cpu.Algorithm)}
		e.record(e.sink.ObserveDuration(metrics.CPUDuration, got.cpu.Elapsed, byAlgorithm))
		e.record(e.sink.Count(metrics.CPUTasks, float64(got.cpu.Tasks), byAlgorithm))
	}

	if got.io != nil {
		e.record(e.sink.Count(metrics.IOBytes, float64(got.io.BytesWritten), metrics.Labels{metrics.LabelPath: path, metrics.LabelDirection: "write"}))
		e.record(e.sink.Count(metrics.IOBytes, float64(got.io.BytesRead), metrics.Labels{metrics.LabelPath: path, metrics.LabelDirection: "read"}))
		e.record(e.sink.Count(metrics.IOCycles, float64(got.io.Cycles), byPath))
		e.record(e.sink.ObserveDuration(metrics.IODuration, got.io.Elapsed, byPath))
	}
	if got.ioErr != nil {
		e.recordFailure(path, CategoryIO)
	}
}

func (e *Engine) recordFailure(path, category string) {
	e.record(e.sink.Count(metrics.StressorErrors, 1, metrics.Labels{metrics.LabelPath: path, metrics.LabelCategory: category}))
}

func (e *Engine) record(err error) {
	if err != nil {
		e.logger.Warn("Failed to record metric", zap.Error(err))
	}
}

// guard runs fn and converts a panic into an error so one stressor cannot abort the request.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
