package collectors

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/VyvaHart/system-load-demonstrator/internal/load"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ScratchCollector reports on the directory the I/O stressor writes its temporary files to
type ScratchCollector struct {
	deps *CollectorDependencies

	// Prometheus metrics
	// filesystemBytes: capacity of the filesystem holding the scratch directory (total, used, available)
	// leftoverFiles: stressor temp files currently on disk. Non-zero at rest means a cleanup was missed.
	filesystemBytes *prometheus.GaugeVec
	leftoverFiles   prometheus.Gauge
}

// NewScratchCollector creates a new ScratchCollector
// Args:
// - deps: CollectorDependencies
// Returns:
// - *ScratchCollector: new ScratchCollector instance
func NewScratchCollector(deps *CollectorDependencies) *ScratchCollector {
	namespace := deps.Config.Metrics.Namespace
	return &ScratchCollector{
		deps: deps,
		filesystemBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scratch_filesystem_bytes",
				Help:      "Filesystem capacity behind the I/O stressor scratch directory in bytes",
			},
			[]string{"type"}, // total, used, available
		),
		leftoverFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scratch_leftover_files",
				Help:      "I/O stressor temporary files present in the scratch directory",
			},
		),
	}
}

func (c *ScratchCollector) Name() string {
	return "scratch"
}

// Describe implements the prometheus.Collector interface
func (c *ScratchCollector) Describe(ch chan<- *prometheus.Desc) {
	c.filesystemBytes.Describe(ch)
	c.leftoverFiles.Describe(ch)
}

// Collect implements the prometheus.Collector interface
func (c *ScratchCollector) Collect(ch chan<- prometheus.Metric) {
	c.filesystemBytes.Collect(ch)
	c.leftoverFiles.Collect(ch)
}

// CollectMetrics refreshes the scratch directory metrics
// The command it runs is:
// - df -k -P <temp_dir>
func (c *ScratchCollector) CollectMetrics(ctx context.Context) error {
	dir := c.deps.Config.Load.TempDir
	c.deps.Logger.Debug("Collecting scratch directory metrics", zap.String("dir", dir))

	if err := c.collectFilesystemMetrics(ctx, dir); err != nil {
		c.deps.Logger.Error("Failed to collect scratch filesystem metrics", zap.Error(err))
	}

	matches, err := filepath.Glob(filepath.Join(dir, load.TempFilePattern))
	if err != nil {
		return fmt.Errorf("glob scratch files: %w", err)
	}
	c.leftoverFiles.Set(float64(len(matches)))

	return nil
}

func (c *ScratchCollector) collectFilesystemMetrics(ctx context.Context, dir string) error {
	output, err := c.deps.Executor.GetDiskUsage(ctx, dir)
	if err != nil {
		return err
	}
	return c.parseDiskUsage(string(output))
}

// parseDiskUsage parses POSIX df output
// Example:
// Filesystem     1024-blocks      Used Available Capacity Mounted on
// /dev/sda1         41152736  12345678  26700000      32% /
func (c *ScratchCollector) parseDiskUsage(output string) error {
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue // Skip header and empty lines
		}

		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}

		// df -k reports 1K blocks
		for idx, kind := range map[int]string{1: "total", 2: "used", 3: "available"} {
			kb, err := strconv.ParseFloat(fields[idx], 64)
			if err != nil {
				return fmt.Errorf("parse df %s %q: %w", kind, fields[idx], err)
			}
			c.filesystemBytes.WithLabelValues(kind).Set(kb * 1024)
		}
		return nil
	}
	return fmt.Errorf("no filesystem line in df output")
}
