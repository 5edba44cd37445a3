package load

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TempFilePattern names the scratch files of the I/O stressor inside its directory.
const TempFilePattern = "loadgen-io-*.tmp"

// scratchFile is the part of *os.File the I/O stressor uses.
type scratchFile interface {
	io.ReadWriteCloser
	Name() string
}

// createTemp and openFile open the stressor's scratch files; tests swap them to inject faults.
var (
	createTemp = func(dir, pattern string) (scratchFile, error) {
		f, err := os.CreateTemp(dir, pattern)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	openFile = func(name string) (scratchFile, error) {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
)

// IOOutcome totals one I/O stressor run across all of its cycles.
type IOOutcome struct {
	BytesWritten int64
	BytesRead    int64
	Cycles       int
	Elapsed      time.Duration
}

func (o IOOutcome) MBWritten() float64 { return float64(o.BytesWritten) / MiB }
func (o IOOutcome) MBRead() float64    { return float64(o.BytesRead) / MiB }

func (o IOOutcome) String() string {
	return fmt.Sprintf("Wrote %.2f MB and read %.2f MB across %d cycles", o.MBWritten(), o.MBRead(), o.Cycles)
}

// RunIO performs max(1, iterations) write-then-read cycles against fresh temporary files
// in dir, each writing and reading back sizeMB mebibytes. Every temporary file is removed
// before RunIO returns, including on failure. The outcome carries whatever was completed.
func RunIO(dir string, sizeMB, iterations int) (out IOOutcome, err error) {
	if sizeMB < 0 {
		return out, fmt.Errorf("io size must not be negative, got %d MB", sizeMB)
	}
	if iterations < 1 {
		iterations = 1
	}

	start := time.Now()
	defer func() { out.Elapsed = time.Since(start) }()

	chunk := make([]byte, MiB)
	if _, err = rand.Read(chunk); err != nil {
		return out, fmt.Errorf("generate io chunk: %w", err)
	}
	readBuf := make([]byte, MiB)

	for i := 0; i < iterations; i++ {
		written, read, err := ioCycle(dir, chunk, readBuf, sizeMB)
		out.BytesWritten += written
		out.BytesRead += read
		if err != nil {
			return out, fmt.Errorf("io cycle %d: %w", i+1, err)
		}
		out.Cycles++
	}
	return out, nil
}

func ioCycle(dir string, chunk, readBuf []byte, sizeMB int) (written, read int64, err error) {
	f, err := createTemp(dir, TempFilePattern)
	if err != nil {
		return 0, 0, err
	}
	name := f.Name()
	defer func() {
		if rmErr := os.Remove(name); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	for i := 0; i < sizeMB; i++ {
		n, werr := f.Write(chunk)
		written += int64(n)
		if werr != nil {
			f.Close()
			return written, 0, werr
		}
	}
	if err := f.Close(); err != nil {
		return written, 0, err
	}

	r, err := openFile(name)
	if err != nil {
		return written, 0, err
	}
	defer r.Close()

	for {
		n, rerr := r.Read(readBuf)
		read += int64(n)
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, read, rerr
		}
	}
	return written, read, nil
}
