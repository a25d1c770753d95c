package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jzx17/offload/pkg/types"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.MaxThreads)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, 64, cfg.Tasks)
	assert.Equal(t, 50*time.Millisecond, cfg.TaskDuration)
	assert.Zero(t, cfg.AbortRatio)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("defaults only", func(t *testing.T) {
		cfg, err := Load(viper.New(), nil)
		require.NoError(t, err)
		assert.Equal(t, 128, cfg.MaxThreads)
		assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("OFFLOAD_MAX_THREADS", "8")
		t.Setenv("OFFLOAD_IDLE_TIMEOUT", "2s")
		t.Setenv("OFFLOAD_ABORT_RATIO", "0.25")

		cfg, err := Load(viper.New(), nil)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.MaxThreads)
		assert.Equal(t, 2*time.Second, cfg.IdleTimeout)
		assert.Equal(t, 0.25, cfg.AbortRatio)
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "offload.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max-threads: 4\nlog-format: json\ntask-duration: 5ms\n"), 0o600))

		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		require.NoError(t, RegisterFlags(fs))
		require.NoError(t, fs.Parse([]string{"--config", path}))

		cfg, err := Load(viper.New(), fs)
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.MaxThreads)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, 5*time.Millisecond, cfg.TaskDuration)
		assert.Equal(t, 64, cfg.Tasks)
	})

	t.Run("explicit flag beats environment", func(t *testing.T) {
		t.Setenv("OFFLOAD_MAX_THREADS", "8")

		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		require.NoError(t, RegisterFlags(fs))
		require.NoError(t, fs.Parse([]string{"--max-threads", "3", "--tasks", "10"}))

		cfg, err := Load(viper.New(), fs)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.MaxThreads)
		assert.Equal(t, 10, cfg.Tasks)
	})

	t.Run("environment beats unset flag", func(t *testing.T) {
		t.Setenv("OFFLOAD_MAX_THREADS", "8")

		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		require.NoError(t, RegisterFlags(fs))
		require.NoError(t, fs.Parse(nil))

		cfg, err := Load(viper.New(), fs)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.MaxThreads)
	})

	t.Run("missing config file", func(t *testing.T) {
		v := viper.New()
		v.Set(KeyConfig, filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := Load(v, nil)
		assert.Error(t, err)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("OFFLOAD_MAX_THREADS", "0")
		_, err := Load(viper.New(), nil)
		assert.ErrorIs(t, err, types.ErrInvalidConfig)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero threads", func(c *Config) { c.MaxThreads = 0 }},
		{"zero idle timeout", func(c *Config) { c.IdleTimeout = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"negative tasks", func(c *Config) { c.Tasks = -1 }},
		{"negative task duration", func(c *Config) { c.TaskDuration = -time.Second }},
		{"abort ratio above one", func(c *Config) { c.AbortRatio = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), types.ErrInvalidConfig)
		})
	}
}

func TestConfig_PoolConfig(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	cfg.MaxThreads = 6
	cfg.IdleTimeout = time.Second

	logger := zap.NewExample()
	pc := cfg.PoolConfig("cli", logger, nil)
	assert.Equal(t, "cli", pc.Name)
	assert.Equal(t, 6, pc.MaxThreads)
	assert.Equal(t, time.Second, pc.IdleTimeout)
	assert.Same(t, logger, pc.Logger)
	assert.Equal(t, types.NopMetrics{}, pc.Metrics)
	assert.NoError(t, pc.Validate())

	assert.Len(t, cfg.Fields(), 8)
}
