package load

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidParameter wraps every request decoding and validation failure.
var ErrInvalidParameter = errors.New("invalid parameter")

// Mode selects the default stressor emphasis of a request.
type Mode string

const (
	ModeBalanced    Mode = "balanced"
	ModeCPUHeavy    Mode = "cpu_heavy"
	ModeMemoryHeavy Mode = "memory_heavy"
	ModeIOHeavy     Mode = "io_heavy"
)

// Modes lists the accepted modes in documentation order.
var Modes = []Mode{ModeBalanced, ModeCPUHeavy, ModeMemoryHeavy, ModeIOHeavy}

func (m Mode) Valid() bool {
	switch m {
	case ModeBalanced, ModeCPUHeavy, ModeMemoryHeavy, ModeIOHeavy:
		return true
	}
	return false
}

// Algorithm selects the CPU stressor.
type Algorithm string

const (
	AlgorithmFibonacci          Algorithm = "fibonacci"
	AlgorithmPrimeFactorization Algorithm = "prime_factorization"
	AlgorithmHashing            Algorithm = "hashing"
	AlgorithmNoop               Algorithm = "noop"
)

// Algorithms lists the accepted CPU algorithms in documentation order.
var Algorithms = []Algorithm{AlgorithmFibonacci, AlgorithmPrimeFactorization, AlgorithmHashing, AlgorithmNoop}

func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmFibonacci, AlgorithmPrimeFactorization, AlgorithmHashing, AlgorithmNoop:
		return true
	}
	return false
}

// Request is the resolved parameter set of one load request.
type Request struct {
	Mode         Mode      `json:"mode"`
	Iterations   int       `json:"iterations"`
	DataSizeMB   int       `json:"data_size_mb"`
	CPUAlgorithm Algorithm `json:"cpu_algorithm"`
	CPUTaskScale int       `json:"cpu_task_scale"`
	ForceCPU     bool      `json:"force_cpu"`
	ForceMemory  bool      `json:"force_memory"`
	ForceIO      bool      `json:"force_io"`
}

// DefaultRequest returns the parameters used when a query sets nothing.
func DefaultRequest() Request {
	return Request{
		Mode:         ModeBalanced,
		Iterations:   10,
		DataSizeMB:   1,
		CPUAlgorithm: AlgorithmFibonacci,
		CPUTaskScale: 30,
	}
}

// Limits caps the numeric parameters of a request. Zero means unbounded.
type Limits struct {
	MaxIterations   int
	MaxDataSizeMB   int
	MaxCPUTaskScale int
	// MaxCPUWork caps EstimateCPUWork for the requested algorithm and sizes.
	MaxCPUWork float64
}

// ParseRequest decodes query parameters into a Request. Absent or empty values take the
// defaults; anything malformed or out of range fails with ErrInvalidParameter.
func ParseRequest(q url.Values, limits Limits) (Request, error) {
	req := DefaultRequest()

	if raw := q.Get("mode"); raw != "" {
		req.Mode = Mode(raw)
		if !req.Mode.Valid() {
			return Request{}, fmt.Errorf("%w: mode must be one of %s, got %q", ErrInvalidParameter, joinModes(), raw)
		}
	}

	if raw := q.Get("cpu_algorithm"); raw != "" {
		req.CPUAlgorithm = Algorithm(raw)
		if !req.CPUAlgorithm.Valid() {
			return Request{}, fmt.Errorf("%w: cpu_algorithm must be one of %s, got %q", ErrInvalidParameter, joinAlgorithms(), raw)
		}
	}

	var err error
	if req.Iterations, err = intParam(q, "iterations", req.Iterations, 1, limits.MaxIterations); err != nil {
		return Request{}, err
	}
	if req.DataSizeMB, err = intParam(q, "data_size_mb", req.DataSizeMB, 0, limits.MaxDataSizeMB); err != nil {
		return Request{}, err
	}
	if req.CPUTaskScale, err = intParam(q, "cpu_task_scale", req.CPUTaskScale, 1, limits.MaxCPUTaskScale); err != nil {
		return Request{}, err
	}

	if err := checkCPUWork(req, limits); err != nil {
		return Request{}, err
	}

	req.ForceCPU = boolParam(q, "force_cpu")
	req.ForceMemory = boolParam(q, "force_memory")
	req.ForceIO = boolParam(q, "force_io")

	return req, nil
}

func intParam(q url.Values, name string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidParameter, name, raw)
	}
	if v < min {
		return 0, fmt.Errorf("%w: %s must be at least %d, got %d", ErrInvalidParameter, name, min, v)
	}
	if max > 0 && v > max {
		return 0, fmt.Errorf("%w: %s must be at most %d, got %d", ErrInvalidParameter, name, max, v)
	}
	return v, nil
}

// checkCPUWork rejects CPU parameters that would not finish in reasonable time,
// whether or not the mode ends up running the CPU stressor.
func checkCPUWork(req Request, limits Limits) error {
	if req.CPUAlgorithm == AlgorithmFibonacci && req.Iterations <= 1 && req.CPUTaskScale > MaxRecursiveFibonacciScale {
		return fmt.Errorf("%w: cpu_task_scale must be at most %d for a single recursive fibonacci, got %d (use iterations > 1 for larger scales)",
			ErrInvalidParameter, MaxRecursiveFibonacciScale, req.CPUTaskScale)
	}
	if limits.MaxCPUWork <= 0 {
		return nil
	}
	if work := EstimateCPUWork(req.CPUAlgorithm, req.CPUTaskScale, req.Iterations, req.DataSizeMB); work > limits.MaxCPUWork {
		return fmt.Errorf("%w: %s with cpu_task_scale=%d, iterations=%d, data_size_mb=%d needs about %.3g operations, limit is %.3g",
			ErrInvalidParameter, req.CPUAlgorithm, req.CPUTaskScale, req.Iterations, req.DataSizeMB, work, limits.MaxCPUWork)
	}
	return nil
}

// boolParam is true only for the exact value "true".
func boolParam(q url.Values, name string) bool {
	return q.Get(name) == "true"
}

func joinModes() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, "|")
}

func joinAlgorithms() string {
	names := make([]string, len(Algorithms))
	for i, a := range Algorithms {
		names[i] = string(a)
	}
	return strings.Join(names, "|")
}
