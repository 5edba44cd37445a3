// Package caller drives bursty traffic against the /load endpoint.
package caller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/VyvaHart/system-load-demonstrator/internal/load"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config controls the shape of the generated traffic.
type Config struct {
	BaseURL string
	// MinBurst and MaxBurst bound the number of calls in one burst (inclusive).
	MinBurst int
	MaxBurst int
	// CallInterval spaces the calls inside a burst.
	CallInterval time.Duration
	// BurstPause is the quiet period between bursts.
	BurstPause time.Duration
	// Bursts stops the caller after that many bursts. Zero runs until the context ends.
	Bursts int
	// MaxDataSizeMB and MaxIterations bound the randomized request parameters.
	MaxDataSizeMB int
	MaxIterations int
	Timeout       time.Duration
}

// DefaultConfig returns 10 to 50 calls per burst, 200ms apart, with 5s between bursts.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:5000",
		MinBurst:      10,
		MaxBurst:      50,
		CallInterval:  200 * time.Millisecond,
		BurstPause:    5 * time.Second,
		MaxDataSizeMB: 16,
		MaxIterations: 20,
		Timeout:       5 * time.Minute,
	}
}

func (c Config) validate() error {
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base url %q: %w", c.BaseURL, err)
	}
	if c.MinBurst < 1 || c.MaxBurst < c.MinBurst {
		return fmt.Errorf("burst bounds must satisfy 1 <= min <= max, got %d..%d", c.MinBurst, c.MaxBurst)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.MaxDataSizeMB < 0 {
		return fmt.Errorf("max data size must not be negative, got %d", c.MaxDataSizeMB)
	}
	if c.CallInterval < 0 || c.BurstPause < 0 {
		return errors.New("intervals must not be negative")
	}
	return nil
}

// Stats are the running totals of a Caller.
type Stats struct {
	Succeeded int64
	Failed    int64
	Bursts    int64
}

type Caller struct {
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
	rng     *rand.Rand
	limiter *rate.Limiter

	succeeded atomic.Int64
	failed    atomic.Int64
	bursts    atomic.Int64
}

// New creates a Caller. rng may be nil, in which case it is seeded from the clock.
func New(cfg Config, logger *zap.Logger, rng *rand.Rand) (*Caller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	limit := rate.Inf
	if cfg.CallInterval > 0 {
		limit = rate.Every(cfg.CallInterval)
	}
	return &Caller{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		rng:     rng,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Stats returns a snapshot of the totals.
func (c *Caller) Stats() Stats {
	return Stats{
		Succeeded: c.succeeded.Load(),
		Failed:    c.failed.Load(),
		Bursts:    c.bursts.Load(),
	}
}

// Run sends bursts until ctx is done or the configured burst count is reached.
// It returns nil when stopped by either.
func (c *Caller) Run(ctx context.Context) error {
	c.logger.Info("Starting load caller",
		zap.String("target", c.cfg.BaseURL),
		zap.Int("min_burst", c.cfg.MinBurst),
		zap.Int("max_burst", c.cfg.MaxBurst),
	)

	for c.cfg.Bursts == 0 || int(c.bursts.Load()) < c.cfg.Bursts {
		if err := c.burst(ctx); err != nil {
			return ignoreCancel(err)
		}
		c.bursts.Add(1)

		if c.cfg.Bursts != 0 && int(c.bursts.Load()) >= c.cfg.Bursts {
			break
		}
		c.logger.Info("Burst finished, pausing", zap.Duration("pause", c.cfg.BurstPause))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.BurstPause):
		}
	}

	stats := c.Stats()
	c.logger.Info("Load caller finished",
		zap.Int64("succeeded", stats.Succeeded),
		zap.Int64("failed", stats.Failed),
		zap.Int64("bursts", stats.Bursts),
	)
	return nil
}

func (c *Caller) burst(ctx context.Context) error {
	// Every call in a burst sends the same query.
	query := c.randomQuery()
	target := strings.TrimRight(c.cfg.BaseURL, "/") + "/load?" + query.Encode()
	repetitions := c.cfg.MinBurst + c.rng.Intn(c.cfg.MaxBurst-c.cfg.MinBurst+1)

	c.logger.Info("Starting burst",
		zap.String("url", target),
		zap.Int("repetitions", repetitions),
	)

	for i := 0; i < repetitions; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := c.call(ctx, target); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.failed.Add(1)
			c.logger.Warn("Load call failed", zap.String("url", target), zap.Error(err))
			continue
		}
		n := c.succeeded.Add(1)
		c.logger.Debug("Load call succeeded", zap.Int64("call", n), zap.String("url", target))
	}
	return nil
}

func (c *Caller) call(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Request-Id", ulid.Make().String())

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// randomQuery picks a mode and CPU algorithm and sizes the request within the configured bounds.
func (c *Caller) randomQuery() url.Values {
	mode := load.Modes[c.rng.Intn(len(load.Modes))]
	alg := load.Algorithms[c.rng.Intn(len(load.Algorithms))]

	q := url.Values{}
	q.Set("mode", string(mode))
	q.Set("cpu_algorithm", string(alg))
	q.Set("iterations", strconv.Itoa(1+c.rng.Intn(c.cfg.MaxIterations)))
	q.Set("data_size_mb", strconv.Itoa(c.rng.Intn(c.cfg.MaxDataSizeMB+1)))
	switch alg {
	case load.AlgorithmFibonacci:
		// Recursive range only; larger scales switch to the cheap iterative form.
		q.Set("cpu_task_scale", strconv.Itoa(20+c.rng.Intn(13)))
	case load.AlgorithmPrimeFactorization:
		q.Set("cpu_task_scale", strconv.Itoa(100_000+c.rng.Intn(900_000)))
	}
	return q
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
