package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/VyvaHart/system-load-demonstrator/internal/collectors"
	"github.com/VyvaHart/system-load-demonstrator/internal/config"
	"github.com/VyvaHart/system-load-demonstrator/internal/load"
	"github.com/VyvaHart/system-load-demonstrator/internal/metrics"
	"github.com/VyvaHart/system-load-demonstrator/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server is the main server struct
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	httpServer *http.Server
	registry   *prometheus.Registry
	engine     *load.Engine
	collectors []collectors.Collector

	mu            sync.Mutex
	listener      net.Listener
	stopCollector context.CancelFunc
	collectorDone chan struct{}
}

// ServerParams is the parameters for the server
type ServerParams struct {
	fx.In

	Config      *config.Config
	Logger      *zap.Logger
	Executor    utils.CommandExecutor
	Engine      *load.Engine
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
	Tracer      trace.Tracer `optional:"true"`
}

// New creates a new server
// Args:
// - params: ServerParams
// Returns:
// - *Server: new Server instance
// - error: error if a collector cannot be registered
func New(params ServerParams) (*Server, error) {
	// Create collector dependencies
	deps := &collectors.CollectorDependencies{
		Executor: params.Executor,
		Logger:   params.Logger,
		Config:   params.Config,
	}

	scratchCollector := collectors.NewScratchCollector(deps)
	if err := params.Registry.Register(scratchCollector); err != nil {
		return nil, fmt.Errorf("register %s collector: %w", scratchCollector.Name(), err)
	}

	s := &Server{
		config:     params.Config,
		logger:     params.Logger,
		registry:   params.Registry,
		engine:     params.Engine,
		collectors: []collectors.Collector{scratchCollector},
	}

	var limiter *rate.Limiter
	if rps := params.Config.RateLimit.RequestsPerSecond; rps > 0 {
		burst := params.Config.RateLimit.Burst
		if burst <= 0 {
			burst = max(1, int(rps))
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	mw := &middleware{logger: params.Logger, metrics: params.HTTPMetrics, tracer: params.Tracer}
	landing, err := newLandingHandler(params.Config, params.Engine.Limits())
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/load", mw.wrap("/load", rateLimited(limiter, http.HandlerFunc(s.handleLoad))))
	mux.Handle("/health", mw.wrap("/health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("/info", mw.wrap("/info", http.HandlerFunc(s.handleInfo)))
	// Prometheus metrics endpoint
	mux.Handle("/metrics", mw.wrap("/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          zap.NewStdLog(params.Logger),
	})))
	mux.Handle("/", mw.wrap("/", landing))

	s.httpServer = &http.Server{
		Addr:         params.Config.Server.Port,
		Handler:      mux,
		ReadTimeout:  params.Config.Server.ReadTimeout,
		WriteTimeout: params.Config.Server.WriteTimeout,
	}
	return s, nil
}

// Handler returns the routed handler, for mounting in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the bound listen address once Start has returned, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Start binds the listen address and serves in the background.
// Metric collection runs until Stop.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}

	collectCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	s.mu.Lock()
	s.listener = ln
	s.stopCollector = cancel
	s.collectorDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.startMetricCollection(collectCtx)
	}()

	s.logger.Info("Starting HTTP server",
		zap.String("addr", ln.Addr().String()),
		zap.Duration("read_timeout", s.config.Server.ReadTimeout),
		zap.Duration("write_timeout", s.config.Server.WriteTimeout),
	)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	s.mu.Lock()
	cancel, done := s.stopCollector, s.collectorDone
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancelShutdown()

	return s.httpServer.Shutdown(shutdownCtx)
}

// startMetricCollection starts the metric collection
// It collects metrics at the specified interval
func (s *Server) startMetricCollection(ctx context.Context) {
	ticker := time.NewTicker(s.config.Metrics.ScratchInterval)
	defer ticker.Stop()

	s.logger.Info("Starting metric collection",
		zap.Duration("interval", s.config.Metrics.ScratchInterval),
		zap.Int("collectors", len(s.collectors)),
	)

	// Collect metrics immediately on startup
	s.collectAllMetrics(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping metric collection")
			return
		case <-ticker.C:
			s.collectAllMetrics(ctx)
		}
	}
}

// collectAllMetrics calls the CollectMetrics method of all the collectors.
// Each round is bounded by metrics.command_timeout.
func (s *Server) collectAllMetrics(ctx context.Context) {
	start := time.Now()

	collectCtx, cancel := context.WithTimeout(ctx, s.config.Metrics.CommandTimeout)
	defer cancel()

	for _, collector := range s.collectors {
		if err := collector.CollectMetrics(collectCtx); err != nil {
			s.logger.Error("Failed to collect metrics",
				zap.String("collector", collector.Name()),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("Metric collection completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("collectors", len(s.collectors)),
	)
}

// ServerLifecycle manages the server lifecycle with fx
type ServerLifecycle struct {
	server *Server
	logger *zap.Logger
}

func NewServerLifecycle(server *Server, logger *zap.Logger) *ServerLifecycle {
	return &ServerLifecycle{
		server: server,
		logger: logger,
	}
}

func (sl *ServerLifecycle) Start(ctx context.Context) error {
	if err := sl.server.Start(ctx); err != nil {
		sl.logger.Error("Server startup failed", zap.Error(err))
		return err
	}
	return nil
}

func (sl *ServerLifecycle) Stop(ctx context.Context) error {
	return sl.server.Stop(ctx)
}
