// File: internal/config/config_test.go
package config

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "storefront-e2e", cfg.Logger().ServiceName)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser().LaunchTimeout)
	assert.Equal(t, 3, cfg.Pool().Capacity)
	assert.Zero(t, cfg.Pool().AcquireTimeout, "acquire waits indefinitely by default")
	assert.Equal(t, 10*time.Second, cfg.Interaction().DefaultTimeout)
	assert.Equal(t, 1, cfg.Interaction().RetryCount)
	assert.Equal(t, 250*time.Millisecond, cfg.Interaction().PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Interaction().BatchSettleDelay)
	assert.Equal(t, DefaultEnvironment, cfg.Environment().Default)
	assert.Equal(t, 3, cfg.Runner().Concurrency)
	assert.Equal(t, "reports", cfg.Report().Dir)

	require.NoError(t, cfg.Validate(), "defaults must be valid on their own")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		require.NoError(t, cfg.Validate())

		cfgInvalidPool := *cfg
		cfgInvalidPool.PoolCfg.Capacity = 0
		err := cfgInvalidPool.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pool.capacity must be a positive integer")

		cfgInvalidRunner := *cfg
		cfgInvalidRunner.RunnerCfg.Concurrency = -1
		err = cfgInvalidRunner.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "runner.concurrency must be a positive integer")

		cfgNoEnvs := *cfg
		cfgNoEnvs.EnvironmentCfg.URLs = nil
		assert.Error(t, cfgNoEnvs.Validate())
	})

	t.Run("Interaction Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Interaction()
		require.NoError(t, valid.Validate())

		tests := []struct {
			name   string
			mutate func(*InteractionConfig)
			want   string
		}{
			{"ZeroTimeout", func(i *InteractionConfig) { i.DefaultTimeout = 0 }, "default_timeout"},
			{"NegativeRetry", func(i *InteractionConfig) { i.RetryCount = -1 }, "retry_count"},
			{"ZeroPoll", func(i *InteractionConfig) { i.PollInterval = 0 }, "poll_interval must be positive"},
			{"PollExceedsTimeout", func(i *InteractionConfig) { i.PollInterval = time.Minute }, "must not exceed"},
			{"ZeroPasses", func(i *InteractionConfig) { i.BatchMaxPasses = 0 }, "batch_max_passes"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ic := valid
				tt.mutate(&ic)
				err := ic.Validate()
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.want)
			})
		}

		cfg := NewDefaultConfig()
		cfg.InteractionCfg.RetryCount = -3
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "interaction configuration invalid")
	})
}

// -- Environment Resolution Tests --

func TestActiveEnvironment(t *testing.T) {
	newCfg := func(active string) *Config {
		cfg := NewDefaultConfig()
		cfg.EnvironmentCfg.URLs = map[string]string{
			"staging": "https://staging.example.test/",
			"uat":     "https://uat.example.test/",
		}
		cfg.SetEnvironment(active)
		return cfg
	}

	t.Run("Known", func(t *testing.T) {
		env, err := newCfg("UAT").ActiveEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "UAT", env.Name)
		assert.Equal(t, "https://uat.example.test/", env.URL)
		assert.False(t, env.FellBack)
	})

	t.Run("EmptyUsesDefault", func(t *testing.T) {
		env, err := newCfg("").ActiveEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "STAGING", env.Name)
		assert.False(t, env.FellBack)
	})

	t.Run("UnknownFallsBack", func(t *testing.T) {
		env, err := newCfg("PERF").ActiveEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "STAGING", env.Name)
		assert.Equal(t, "https://staging.example.test/", env.URL)
		assert.True(t, env.FellBack)
		assert.Equal(t, "PERF", env.Requested)
	})

	t.Run("NoDefaultConfigured", func(t *testing.T) {
		cfg := newCfg("PERF")
		cfg.EnvironmentCfg.URLs = map[string]string{"uat": "https://uat.example.test/"}
		_, err := cfg.ActiveEnvironment()
		require.ErrorIs(t, err, ErrUnknownEnvironment)
		assert.Contains(t, err.Error(), "UAT")
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("YAML Overrides Defaults", func(t *testing.T) {
		yamlBytes := []byte(`
pool:
  capacity: 5
interaction:
  default_timeout: 4s
  retry_count: 2
environment:
  active: uat
  urls:
    STAGING: "https://staging.example.test/"
    UAT: "https://uat.example.test/"
runner:
  concurrency: 8
`)
		t.Setenv(EnvironmentVar, "") // empty counts as unset
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, 5, cfg.Pool().Capacity)
		assert.Equal(t, 4*time.Second, cfg.Interaction().DefaultTimeout)
		assert.Equal(t, 2, cfg.Interaction().RetryCount)
		assert.Equal(t, 8, cfg.Runner().Concurrency)
		// Check a default value was also loaded
		assert.Equal(t, "info", cfg.Logger().Level)

		env, err := cfg.ActiveEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "https://uat.example.test/", env.URL)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("pool.capacity", 0) // Intentionally invalid

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "pool.capacity must be a positive integer")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString("pool:\n  capacity: 2\n")))

		t.Setenv("STOREFRONT_POOL_CAPACITY", "4")
		t.Setenv("ENVIRONMENT", "production")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Pool().Capacity, "env overrides the config file")
		assert.Equal(t, "production", cfg.Environment().Active)

		env, err := cfg.ActiveEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "PRODUCTION", env.Name)
	})

	t.Run("Home Directory Expansion", func(t *testing.T) {
		home, err := homedir.Dir()
		if err != nil {
			t.Skipf("no home directory: %v", err)
		}
		v := viper.New()
		SetDefaults(v)
		v.Set("runner.data_file", "~/data/users.csv")
		v.Set("report.dir", "~/reports")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "data", "users.csv"), cfg.Runner().DataFile)
		assert.Equal(t, filepath.Join(home, "reports"), cfg.Report().Dir)
	})
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetRunnerConcurrency(7)
	cfg.SetRunnerDataFile("users.csv")
	cfg.SetRunnerScenarios([]string{"login-valid"})
	cfg.SetBrowserHeadless(false)

	assert.Equal(t, 7, cfg.Runner().Concurrency)
	assert.Equal(t, "users.csv", cfg.Runner().DataFile)
	assert.Equal(t, []string{"login-valid"}, cfg.Runner().Scenarios)
	assert.False(t, cfg.Browser().Headless)
}
