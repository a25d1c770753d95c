// Package config holds the settings of the offload command.
//
// Values are resolved in this order, later sources winning:
//
//  1. `default` struct tags
//  2. an optional config file (--config), any format viper reads
//  3. OFFLOAD_* environment variables, e.g. OFFLOAD_MAX_THREADS
//  4. command-line flags that were explicitly set
//
// # Fields
//
//	┌───────────────┬──────────────┬──────────────────────────────────────────┐
//	│ Field         │ Default      │ Description                              │
//	├───────────────┼──────────────┼──────────────────────────────────────────┤
//	│ MaxThreads    │ 128          │ Upper bound on live worker threads       │
//	│ IdleTimeout   │ 30s          │ Idle time before a worker retires        │
//	│ LogLevel      │ "info"       │ debug, info, warn, error                 │
//	│ LogFormat     │ "console"    │ console or json                          │
//	│ MetricsAddr   │ ""           │ Serve /metrics here when set             │
//	│ Tasks         │ 64           │ Work items submitted by `offload run`    │
//	│ TaskDuration  │ 50ms         │ Sleep of each submitted work item        │
//	│ AbortRatio    │ 0            │ Fraction of items aborted after submit   │
//	└───────────────┴──────────────┴──────────────────────────────────────────┘
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jzx17/offload/pkg/blocking"
	"github.com/jzx17/offload/pkg/types"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "OFFLOAD"

const (
	KeyConfig       = "config"
	KeyMaxThreads   = "max-threads"
	KeyIdleTimeout  = "idle-timeout"
	KeyLogLevel     = "log-level"
	KeyLogFormat    = "log-format"
	KeyMetricsAddr  = "metrics-addr"
	KeyTasks        = "tasks"
	KeyTaskDuration = "task-duration"
	KeyAbortRatio   = "abort-ratio"
)

type Config struct {
	MaxThreads   int           `mapstructure:"max-threads" default:"128"`
	IdleTimeout  time.Duration `mapstructure:"idle-timeout" default:"30s"`
	LogLevel     string        `mapstructure:"log-level" default:"info"`
	LogFormat    string        `mapstructure:"log-format" default:"console"`
	MetricsAddr  string        `mapstructure:"metrics-addr"`
	Tasks        int           `mapstructure:"tasks" default:"64"`
	TaskDuration time.Duration `mapstructure:"task-duration" default:"50ms"`
	AbortRatio   float64       `mapstructure:"abort-ratio" default:"0"`
}

// Default returns a Config with every default tag applied
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}
	return cfg, nil
}

// RegisterFlags defines one flag per key on fs, using the tag defaults
func RegisterFlags(fs *pflag.FlagSet) error {
	cfg, err := Default()
	if err != nil {
		return err
	}
	fs.String(KeyConfig, "", "configuration file to read from")
	fs.Int(KeyMaxThreads, cfg.MaxThreads, "maximum number of worker threads")
	fs.Duration(KeyIdleTimeout, cfg.IdleTimeout, "idle time before a worker thread retires")
	fs.String(KeyLogLevel, cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.String(KeyLogFormat, cfg.LogFormat, "log format (console, json)")
	fs.String(KeyMetricsAddr, cfg.MetricsAddr, "address to serve Prometheus metrics on, empty to disable")
	fs.Int(KeyTasks, cfg.Tasks, "number of work items to submit")
	fs.Duration(KeyTaskDuration, cfg.TaskDuration, "how long each work item blocks")
	fs.Float64(KeyAbortRatio, cfg.AbortRatio, "fraction of work items to abort after submission")
	return nil
}

// Load resolves the configuration from defaults, an optional file, the environment and
// flags. flags may be nil.
func Load(v *viper.Viper, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	v.SetDefault(KeyMaxThreads, cfg.MaxThreads)
	v.SetDefault(KeyIdleTimeout, cfg.IdleTimeout)
	v.SetDefault(KeyLogLevel, cfg.LogLevel)
	v.SetDefault(KeyLogFormat, cfg.LogFormat)
	v.SetDefault(KeyMetricsAddr, cfg.MetricsAddr)
	v.SetDefault(KeyTasks, cfg.Tasks)
	v.SetDefault(KeyTaskDuration, cfg.TaskDuration)
	v.SetDefault(KeyAbortRatio, cfg.AbortRatio)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading configuration file '%s': %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and wraps failures in types.ErrInvalidConfig
func (c *Config) Validate() error {
	if c.MaxThreads < 1 {
		return fmt.Errorf("%w: %s must be >= 1, got %d", types.ErrInvalidConfig, KeyMaxThreads, c.MaxThreads)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", types.ErrInvalidConfig, KeyIdleTimeout, c.IdleTimeout)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrInvalidConfig, KeyLogLevel, err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: %s must be console or json, got %q", types.ErrInvalidConfig, KeyLogFormat, c.LogFormat)
	}
	if c.Tasks < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %d", types.ErrInvalidConfig, KeyTasks, c.Tasks)
	}
	if c.TaskDuration < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %v", types.ErrInvalidConfig, KeyTaskDuration, c.TaskDuration)
	}
	if c.AbortRatio < 0 || c.AbortRatio > 1 {
		return fmt.Errorf("%w: %s must be within [0, 1], got %v", types.ErrInvalidConfig, KeyAbortRatio, c.AbortRatio)
	}
	return nil
}

// PoolConfig converts the pool settings into a blocking.Config
func (c *Config) PoolConfig(name string, logger *zap.Logger, metrics types.Metrics) *blocking.Config {
	cfg := blocking.DefaultConfig()
	cfg.Name = name
	cfg.MaxThreads = c.MaxThreads
	cfg.IdleTimeout = c.IdleTimeout
	if logger != nil {
		cfg.Logger = logger
	}
	if metrics != nil {
		cfg.Metrics = metrics
	}
	return cfg
}

// Fields renders the configuration for structured logging
func (c *Config) Fields() []zap.Field {
	return []zap.Field{
		zap.Int(KeyMaxThreads, c.MaxThreads),
		zap.Duration(KeyIdleTimeout, c.IdleTimeout),
		zap.String(KeyLogLevel, c.LogLevel),
		zap.String(KeyLogFormat, c.LogFormat),
		zap.String(KeyMetricsAddr, c.MetricsAddr),
		zap.Int(KeyTasks, c.Tasks),
		zap.Duration(KeyTaskDuration, c.TaskDuration),
		zap.Float64(KeyAbortRatio, c.AbortRatio),
	}
}
