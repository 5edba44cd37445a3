package collectors

import (
	"context"

	"github.com/VyvaHart/system-load-demonstrator/internal/config"
	"github.com/VyvaHart/system-load-demonstrator/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Collector is a Prometheus collector whose values are refreshed on an interval
// rather than at scrape time.
type Collector interface {
	prometheus.Collector
	Name() string
	CollectMetrics(ctx context.Context) error
}

type CollectorDependencies struct {
	Executor utils.CommandExecutor
	Logger   *zap.Logger
	Config   *config.Config
}
