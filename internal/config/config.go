package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. LOADGEN_SERVER_PORT.
const EnvPrefix = "LOADGEN"

type Config struct {
	App struct {
		Name    string `mapstructure:"name" json:"name"`
		Version string `mapstructure:"version" json:"version"`
	} `mapstructure:"app" json:"app"`

	Server struct {
		Port            string        `mapstructure:"port" json:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
	} `mapstructure:"server" json:"server"`

	// Load bounds what a single /load request may ask for.
	Load struct {
		TempDir         string  `mapstructure:"temp_dir" json:"temp_dir"`
		MaxIterations   int     `mapstructure:"max_iterations" json:"max_iterations"`
		MaxDataSizeMB   int     `mapstructure:"max_data_size_mb" json:"max_data_size_mb"`
		MaxCPUTaskScale int     `mapstructure:"max_cpu_task_scale" json:"max_cpu_task_scale"`
		MaxCPUWork      float64 `mapstructure:"max_cpu_work" json:"max_cpu_work"` // estimated CPU stressor operations
		TouchMemory     bool    `mapstructure:"touch_memory" json:"touch_memory"`
	} `mapstructure:"load" json:"load"`

	Metrics struct {
		Namespace              string        `mapstructure:"namespace" json:"namespace"`
		ScratchInterval        time.Duration `mapstructure:"scratch_interval" json:"scratch_interval"`
		CommandTimeout         time.Duration `mapstructure:"command_timeout" json:"command_timeout"`
		EnableGoCollector      bool          `mapstructure:"enable_go_collector" json:"enable_go_collector"`
		EnableProcessCollector bool          `mapstructure:"enable_process_collector" json:"enable_process_collector"`
	} `mapstructure:"metrics" json:"metrics"`

	RateLimit struct {
		RequestsPerSecond float64 `mapstructure:"requests_per_second" json:"requests_per_second"`
		Burst             int     `mapstructure:"burst" json:"burst"`
	} `mapstructure:"rate_limit" json:"rate_limit"`

	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`

	Logging struct {
		Level  string `mapstructure:"level" json:"level"`
		Format string `mapstructure:"format" json:"format"`
	} `mapstructure:"logging" json:"logging"`
}

// TracingConfig controls OTLP span export. Tracing is off while Endpoint is empty.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint" json:"endpoint"`
	Protocol    string  `mapstructure:"protocol" json:"protocol"`
	Insecure    bool    `mapstructure:"insecure" json:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate" json:"sample_rate"`
	ServiceName string  `mapstructure:"service_name" json:"service_name"`
}

// Enabled reports whether an exporter endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != ""
}

// setDefaults registers the values used when neither the file nor the environment set a key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "system-load")
	v.SetDefault("app.version", "1.0.0-dev")

	v.SetDefault("server.port", ":5000")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("load.temp_dir", os.TempDir())
	v.SetDefault("load.max_iterations", 100000)
	v.SetDefault("load.max_data_size_mb", 1024)
	v.SetDefault("load.max_cpu_task_scale", 1000000)
	v.SetDefault("load.max_cpu_work", 2e10)
	v.SetDefault("load.touch_memory", true)

	v.SetDefault("metrics.namespace", "loadgen")
	v.SetDefault("metrics.scratch_interval", "15s")
	v.SetDefault("metrics.command_timeout", "5s")
	v.SetDefault("metrics.enable_go_collector", true)
	v.SetDefault("metrics.enable_process_collector", true)

	v.SetDefault("rate_limit.requests_per_second", 0)
	v.SetDefault("rate_limit.burst", 0)

	v.SetDefault("tracing.protocol", "grpc")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.service_name", "system-load")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// New returns a Config populated with defaults only.
func New() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// defaults are static; failing here is a programming error
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads the configuration file at path (JSON or YAML, optional when empty),
// applies LOADGEN_* environment overrides and then any flags that were explicitly set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		if f := flags.Lookup("port"); f != nil && f.Changed {
			port := f.Value.String()
			if !strings.Contains(port, ":") {
				port = ":" + port
			}
			v.Set("server.port", port)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks the limits and enumerations that the rest of the service relies on.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port must not be empty"))
	}
	if c.Load.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("load.max_iterations must be positive, got %d", c.Load.MaxIterations))
	}
	if c.Load.MaxDataSizeMB < 0 {
		errs = append(errs, fmt.Errorf("load.max_data_size_mb must not be negative, got %d", c.Load.MaxDataSizeMB))
	}
	if c.Load.MaxCPUTaskScale <= 0 {
		errs = append(errs, fmt.Errorf("load.max_cpu_task_scale must be positive, got %d", c.Load.MaxCPUTaskScale))
	}
	if c.Load.MaxCPUWork <= 0 {
		errs = append(errs, fmt.Errorf("load.max_cpu_work must be positive, got %g", c.Load.MaxCPUWork))
	}
	if c.Metrics.ScratchInterval <= 0 {
		errs = append(errs, fmt.Errorf("metrics.scratch_interval must be positive, got %s", c.Metrics.ScratchInterval))
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.requests_per_second must not be negative, got %g", c.RateLimit.RequestsPerSecond))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}
	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		errs = append(errs, fmt.Errorf("tracing.protocol must be grpc or http, got %q", c.Tracing.Protocol))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
