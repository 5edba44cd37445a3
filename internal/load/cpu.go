package load

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"time"
)

const (
	// recursiveFibonacciCeiling is the largest scale still computed recursively when
	// more than one iteration is requested.
	recursiveFibonacciCeiling = 38

	// MaxRecursiveFibonacciScale is the largest cpu_task_scale accepted for a single
	// recursive Fibonacci computation. fib(40) takes about a second.
	MaxRecursiveFibonacciScale = 40

	// fibonacciBitsPerTerm is log2(phi), the growth of fib(k) in bits per term.
	fibonacciBitsPerTerm = 0.6942

	hashSampleSize = 256 * 1024
	hashFillByte   = 'x'
	// digestSuffixLen is how much of the final digest is surfaced.
	digestSuffixLen = 8
)

// FibonacciRecursive computes fib(n) by naive double recursion. fib(0)=0, fib(1)=1.
func FibonacciRecursive(n int) uint64 {
	if n < 2 {
		if n < 0 {
			return 0
		}
		return uint64(n)
	}
	return FibonacciRecursive(n-1) + FibonacciRecursive(n-2)
}

// FibonacciIterative computes fib(n) in linear time with arbitrary precision.
func FibonacciIterative(n int) *big.Int {
	a, b := big.NewInt(0), big.NewInt(1)
	for i := 0; i < n; i++ {
		a.Add(a, b)
		a, b = b, a
	}
	return a
}

// PrimeFactors returns the prime factors of n in ascending order with multiplicity,
// found by trial division. n < 2 has no factors.
func PrimeFactors(n uint64) []uint64 {
	var factors []uint64
	if n < 2 {
		return factors
	}
	for d := uint64(2); d*d <= n; d++ {
		for n%d == 0 {
			factors = append(factors, d)
			n /= d
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}

// PerformHashing feeds data into one SHA-256 state iterations times and returns the digest.
func PerformHashing(data []byte, iterations int) [sha256.Size]byte {
	h := sha256.New()
	for i := 0; i < iterations; i++ {
		h.Write(data)
	}
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// HashIterations ties the hashing workload to both the iteration count and the size knob.
func HashIterations(iterations, dataSizeMB int) int {
	perIteration := 100
	if dataSizeMB > 0 {
		perIteration = dataSizeMB * 4
	}
	return iterations * perIteration
}

// EstimateCPUWork approximates the primitive operations RunCPU would perform: recursive
// calls, big-integer word additions, trial divisions or hashed bytes. Noop sleeps and costs nothing.
func EstimateCPUWork(alg Algorithm, scale, iterations, dataSizeMB int) float64 {
	switch alg {
	case AlgorithmFibonacci:
		if scale > recursiveFibonacciCeiling && iterations > 1 {
			// every task recomputes its term from scratch
			n := float64(scale + iterations)
			return float64(iterations) * n * n * fibonacciBitsPerTerm / 64
		}
		// fib(n) makes 2*fib(n+1)-1 calls
		return 2 * math.Pow(math.Phi, float64(scale+1)) / math.Sqrt(5)
	case AlgorithmPrimeFactorization:
		return float64(iterations) * math.Sqrt(float64(scale+iterations))
	case AlgorithmHashing:
		return float64(HashIterations(iterations, dataSizeMB)) * hashSampleSize
	}
	return 0
}

// CPUOutcome describes one CPU stressor run.
type CPUOutcome struct {
	Algorithm Algorithm
	// Variant names the concrete routine, e.g. fibonacci_recursive.
	Variant string
	// Tasks counts the individual computations (or hash updates) performed.
	Tasks int
	// Input is the largest input value computed on; zero for hashing and noop.
	Input   int
	Result  string
	Elapsed time.Duration
}

func (o CPUOutcome) String() string {
	switch o.Variant {
	case "fibonacci_recursive":
		return fmt.Sprintf("fibonacci_recursive(%d) = %s", o.Input, o.Result)
	case "fibonacci_iterative", "prime_factorization":
		return fmt.Sprintf("%s x%d, last %s(%d) = %s", o.Variant, o.Tasks, o.Variant, o.Input, o.Result)
	case "hashing":
		return fmt.Sprintf("sha256 over %d updates, digest ...%s", o.Tasks, o.Result)
	case "noop":
		return fmt.Sprintf("noop slept %s", o.Result)
	}
	return string(o.Algorithm)
}

// RunCPU performs the CPU work selected by alg. It is deterministic for every
// algorithm except noop, which only consumes wall time.
func RunCPU(alg Algorithm, scale, iterations, dataSizeMB int) (CPUOutcome, error) {
	out := CPUOutcome{Algorithm: alg}
	start := time.Now()

	switch alg {
	case AlgorithmFibonacci:
		if scale > recursiveFibonacciCeiling && iterations > 1 {
			var last *big.Int
			for i := 0; i < iterations; i++ {
				last = FibonacciIterative(scale + i)
			}
			out.Variant = "fibonacci_iterative"
			out.Tasks = iterations
			out.Input = scale + iterations - 1
			out.Result = last.String()
		} else {
			out.Variant = "fibonacci_recursive"
			out.Tasks = 1
			out.Input = scale
			out.Result = fmt.Sprint(FibonacciRecursive(scale))
		}

	case AlgorithmPrimeFactorization:
		var last []uint64
		for i := 0; i < iterations; i++ {
			last = PrimeFactors(uint64(scale + i))
		}
		out.Variant = "prime_factorization"
		out.Tasks = iterations
		out.Input = scale + iterations - 1
		out.Result = fmt.Sprint(last)

	case AlgorithmHashing:
		sample := bytes.Repeat([]byte{hashFillByte}, hashSampleSize)
		n := HashIterations(iterations, dataSizeMB)
		sum := PerformHashing(sample, n)
		digest := hex.EncodeToString(sum[:])
		out.Variant = "hashing"
		out.Tasks = n
		out.Result = digest[len(digest)-digestSuffixLen:]

	case AlgorithmNoop:
		d := time.Duration(iterations) * time.Millisecond
		time.Sleep(d)
		out.Variant = "noop"
		out.Tasks = iterations
		out.Result = d.String()

	default:
		return out, fmt.Errorf("unknown cpu algorithm %q", alg)
	}

	out.Elapsed = time.Since(start)
	return out, nil
}
