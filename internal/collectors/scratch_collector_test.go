package collectors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/VyvaHart/system-load-demonstrator/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const dfOutput = `Filesystem     1024-blocks     Used Available Capacity Mounted on
/dev/sda1         41152736 12345678  26700000      32% /
`

type fakeExecutor struct {
	output string
	err    error
	paths  []string
}

func (f *fakeExecutor) GetDiskUsage(ctx context.Context, path string) ([]byte, error) {
	f.paths = append(f.paths, path)
	return []byte(f.output), f.err
}

func newDeps(t *testing.T, exec *fakeExecutor, logger *zap.Logger) *CollectorDependencies {
	t.Helper()
	cfg := config.New()
	cfg.Load.TempDir = t.TempDir()
	return &CollectorDependencies{Executor: exec, Logger: logger, Config: cfg}
}

func TestScratchCollectorReportsFilesystem(t *testing.T) {
	exec := &fakeExecutor{output: dfOutput}
	deps := newDeps(t, exec, zap.NewNop())
	c := NewScratchCollector(deps)

	require.NoError(t, c.CollectMetrics(context.Background()))

	assert.Equal(t, []string{deps.Config.Load.TempDir}, exec.paths)
	assert.Equal(t, 41152736.0*1024, testutil.ToFloat64(c.filesystemBytes.WithLabelValues("total")))
	assert.Equal(t, 12345678.0*1024, testutil.ToFloat64(c.filesystemBytes.WithLabelValues("used")))
	assert.Equal(t, 26700000.0*1024, testutil.ToFloat64(c.filesystemBytes.WithLabelValues("available")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.leftoverFiles))
}

func TestScratchCollectorCountsLeftoverFiles(t *testing.T) {
	deps := newDeps(t, &fakeExecutor{output: dfOutput}, zap.NewNop())
	dir := deps.Config.Load.TempDir
	for _, name := range []string{"loadgen-io-1.tmp", "loadgen-io-2.tmp", "unrelated.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	c := NewScratchCollector(deps)
	require.NoError(t, c.CollectMetrics(context.Background()))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.leftoverFiles))
}

func TestScratchCollectorLogsDiskFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	deps := newDeps(t, &fakeExecutor{err: errors.New("df: not found")}, zap.New(core))

	c := NewScratchCollector(deps)
	require.NoError(t, c.CollectMetrics(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("Failed to collect scratch filesystem metrics").Len())
	assert.Equal(t, 0, testutil.CollectAndCount(c.filesystemBytes))
}

func TestParseDiskUsageRejectsGarbage(t *testing.T) {
	c := NewScratchCollector(newDeps(t, &fakeExecutor{}, zap.NewNop()))

	assert.Error(t, c.parseDiskUsage("Filesystem 1024-blocks Used Available Capacity Mounted on\n"))
	assert.Error(t, c.parseDiskUsage("header\n/dev/sda1 many some few 1% /\n"))
}

func TestScratchCollectorExposition(t *testing.T) {
	deps := newDeps(t, &fakeExecutor{output: dfOutput}, zap.NewNop())
	c := NewScratchCollector(deps)
	require.NoError(t, c.CollectMetrics(context.Background()))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	assert.Equal(t, "scratch", c.Name())

	expected := `
# HELP loadgen_scratch_leftover_files I/O stressor temporary files present in the scratch directory
# TYPE loadgen_scratch_leftover_files gauge
loadgen_scratch_leftover_files 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "loadgen_scratch_leftover_files"))
}
