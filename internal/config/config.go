// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override, e.g.
// STOREFRONT_POOL_CAPACITY.
const EnvPrefix = "STOREFRONT"

// EnvironmentVar selects the target environment without the prefix, the
// same variable CI pipelines already export.
const EnvironmentVar = "ENVIRONMENT"

// DefaultEnvironment is used when the active environment is unset or unknown.
const DefaultEnvironment = "STAGING"

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Pool() PoolConfig
	Interaction() InteractionConfig
	Environment() EnvironmentConfig
	Runner() RunnerConfig
	Report() ReportConfig

	// ActiveEnvironment resolves the base URL the scenarios run against.
	ActiveEnvironment() (ResolvedEnvironment, error)

	// CLI flag setters
	SetEnvironment(name string)
	SetRunnerConcurrency(n int)
	SetRunnerDataFile(path string)
	SetRunnerScenarios(names []string)
	SetBrowserHeadless(b bool)
}

// Config holds the entire application configuration. Fields are exported so
// viper can decode into them; consumers go through the Interface getters.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	BrowserCfg     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	PoolCfg        PoolConfig        `mapstructure:"pool" yaml:"pool"`
	InteractionCfg InteractionConfig `mapstructure:"interaction" yaml:"interaction"`
	EnvironmentCfg EnvironmentConfig `mapstructure:"environment" yaml:"environment"`
	RunnerCfg      RunnerConfig      `mapstructure:"runner" yaml:"runner"`
	ReportCfg      ReportConfig      `mapstructure:"report" yaml:"report"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig         { return c.BrowserCfg }
func (c *Config) Pool() PoolConfig               { return c.PoolCfg }
func (c *Config) Interaction() InteractionConfig { return c.InteractionCfg }
func (c *Config) Environment() EnvironmentConfig { return c.EnvironmentCfg }
func (c *Config) Runner() RunnerConfig           { return c.RunnerCfg }
func (c *Config) Report() ReportConfig           { return c.ReportCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetEnvironment(name string)        { c.EnvironmentCfg.Active = name }
func (c *Config) SetRunnerConcurrency(n int)        { c.RunnerCfg.Concurrency = n }
func (c *Config) SetRunnerDataFile(path string)     { c.RunnerCfg.DataFile = path }
func (c *Config) SetRunnerScenarios(names []string) { c.RunnerCfg.Scenarios = names }
func (c *Config) SetBrowserHeadless(b bool)         { c.BrowserCfg.Headless = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the Chrome process every session runs in.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	WindowWidth     int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int           `mapstructure:"window_height" yaml:"window_height"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	ExecPath        string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	LaunchTimeout   time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// PoolConfig sizes the session pool.
type PoolConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
	// AcquireTimeout bounds the wait for a free session. Zero waits until
	// the run is cancelled.
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" yaml:"acquire_timeout"`
	InitTimeout    time.Duration `mapstructure:"init_timeout" yaml:"init_timeout"`
}

// InteractionConfig is the readiness and retry policy of the interaction engine.
type InteractionConfig struct {
	DefaultTimeout   time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	RetryCount       int           `mapstructure:"retry_count" yaml:"retry_count"`
	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PresenceTimeout  time.Duration `mapstructure:"presence_timeout" yaml:"presence_timeout"`
	BatchMaxPasses   int           `mapstructure:"batch_max_passes" yaml:"batch_max_passes"`
	BatchSettleDelay time.Duration `mapstructure:"batch_settle_delay" yaml:"batch_settle_delay"`
}

// EnvironmentConfig maps environment names to base URLs.
type EnvironmentConfig struct {
	Active  string            `mapstructure:"active" yaml:"active"`
	Default string            `mapstructure:"default" yaml:"default"`
	URLs    map[string]string `mapstructure:"urls" yaml:"urls"`
}

// RunnerConfig controls how scenarios are scheduled.
type RunnerConfig struct {
	Concurrency     int           `mapstructure:"concurrency" yaml:"concurrency"`
	ScenarioTimeout time.Duration `mapstructure:"scenario_timeout" yaml:"scenario_timeout"`
	// StartRate limits how many scenarios start per second. Zero disables it.
	StartRate  float64  `mapstructure:"start_rate" yaml:"start_rate"`
	StartBurst int      `mapstructure:"start_burst" yaml:"start_burst"`
	DataFile   string   `mapstructure:"data_file" yaml:"data_file"`
	Scenarios  []string `mapstructure:"scenarios" yaml:"scenarios"`
	FailFast   bool     `mapstructure:"fail_fast" yaml:"fail_fast"`
}

// ReportConfig controls the run report written at the end.
type ReportConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	Screenshots bool   `mapstructure:"screenshots" yaml:"screenshots"`
	Pretty      bool   `mapstructure:"pretty" yaml:"pretty"`
}

// ResolvedEnvironment is the outcome of ActiveEnvironment.
type ResolvedEnvironment struct {
	Name string
	URL  string
	// FellBack is set when the requested environment was unknown and the
	// default was used instead.
	FellBack  bool
	Requested string
}

// ErrUnknownEnvironment means neither the active nor the default environment
// has a URL configured.
var ErrUnknownEnvironment = errors.New("unknown environment")

// ActiveEnvironment returns the base URL of the active environment, falling
// back to the default one when the active name is empty or has no URL.
// Names are matched case-insensitively since viper lowercases map keys.
func (c *Config) ActiveEnvironment() (ResolvedEnvironment, error) {
	env := c.EnvironmentCfg
	fallback := env.Default
	if fallback == "" {
		fallback = DefaultEnvironment
	}
	requested := strings.TrimSpace(env.Active)
	if requested == "" {
		requested = fallback
	}

	if url, ok := lookupURL(env.URLs, requested); ok {
		return ResolvedEnvironment{Name: strings.ToUpper(requested), URL: url, Requested: requested}, nil
	}
	if url, ok := lookupURL(env.URLs, fallback); ok {
		return ResolvedEnvironment{Name: strings.ToUpper(fallback), URL: url, FellBack: true, Requested: requested}, nil
	}
	return ResolvedEnvironment{}, fmt.Errorf("%w: %q (default %q), configured: %s",
		ErrUnknownEnvironment, requested, fallback, strings.Join(environmentNames(env.URLs), ", "))
}

func lookupURL(urls map[string]string, name string) (string, bool) {
	for k, v := range urls {
		if strings.EqualFold(k, name) && v != "" {
			return v, true
		}
	}
	return "", false
}

func environmentNames(urls map[string]string) []string {
	names := make([]string, 0, len(urls))
	for k := range urls {
		names = append(names, strings.ToUpper(k))
	}
	sort.Strings(names)
	return names
}

// NewDefaultConfig creates a configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "storefront-e2e")
	v.SetDefault("logger.log_file", "storefront-e2e.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.window_width", 1366)
	v.SetDefault("browser.window_height", 768)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.launch_timeout", "30s")

	// -- Pool --
	v.SetDefault("pool.capacity", 3)
	v.SetDefault("pool.acquire_timeout", "0s")
	v.SetDefault("pool.init_timeout", "60s")

	// -- Interaction --
	v.SetDefault("interaction.default_timeout", "10s")
	v.SetDefault("interaction.retry_count", 1)
	v.SetDefault("interaction.poll_interval", "250ms")
	v.SetDefault("interaction.presence_timeout", "2s")
	v.SetDefault("interaction.batch_max_passes", 50)
	v.SetDefault("interaction.batch_settle_delay", "500ms")

	// -- Environment --
	v.SetDefault("environment.active", "")
	v.SetDefault("environment.default", DefaultEnvironment)
	v.SetDefault("environment.urls", map[string]string{
		"STAGING":    "https://www.saucedemo.com/",
		"PRODUCTION": "https://www.saucedemo.com/",
	})

	// -- Runner --
	v.SetDefault("runner.concurrency", 3)
	v.SetDefault("runner.scenario_timeout", "3m")
	v.SetDefault("runner.start_rate", 2.0)
	v.SetDefault("runner.start_burst", 1)
	v.SetDefault("runner.data_file", "")
	v.SetDefault("runner.scenarios", []string{})
	v.SetDefault("runner.fail_fast", false)

	// -- Report --
	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.screenshots", true)
	v.SetDefault("report.pretty", true)
}

// NewConfigFromViper decodes, expands and validates the configuration held
// by v. Environment variables prefixed with STOREFRONT_ override file values,
// and ENVIRONMENT selects the active environment.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The unprefixed variable wins over STOREFRONT_ENVIRONMENT_ACTIVE.
	if err := v.BindEnv("environment.active", EnvironmentVar, EnvPrefix+"_ENVIRONMENT_ACTIVE"); err != nil {
		return nil, fmt.Errorf("error binding environment variables: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every path setting.
func (c *Config) expandPaths() error {
	paths := []*string{
		&c.LoggerCfg.LogFile,
		&c.BrowserCfg.ExecPath,
		&c.RunnerCfg.DataFile,
		&c.ReportCfg.Dir,
	}
	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("error expanding path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for values the framework cannot run with.
func (c *Config) Validate() error {
	if c.PoolCfg.Capacity <= 0 {
		return fmt.Errorf("pool.capacity must be a positive integer")
	}
	if c.PoolCfg.AcquireTimeout < 0 {
		return fmt.Errorf("pool.acquire_timeout must not be negative")
	}
	if c.RunnerCfg.Concurrency <= 0 {
		return fmt.Errorf("runner.concurrency must be a positive integer")
	}
	if c.RunnerCfg.StartRate < 0 {
		return fmt.Errorf("runner.start_rate must not be negative")
	}
	if err := c.InteractionCfg.Validate(); err != nil {
		return fmt.Errorf("interaction configuration invalid: %w", err)
	}
	if len(c.EnvironmentCfg.URLs) == 0 {
		return fmt.Errorf("environment.urls must define at least one environment")
	}
	return nil
}

// Validate checks the interaction policy.
func (i InteractionConfig) Validate() error {
	if i.DefaultTimeout <= 0 {
		return fmt.Errorf("default_timeout must be positive")
	}
	if i.RetryCount < 0 {
		return fmt.Errorf("retry_count must not be negative")
	}
	if i.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if i.PollInterval > i.DefaultTimeout {
		return fmt.Errorf("poll_interval (%s) must not exceed default_timeout (%s)", i.PollInterval, i.DefaultTimeout)
	}
	if i.BatchMaxPasses <= 0 {
		return fmt.Errorf("batch_max_passes must be positive")
	}
	return nil
}
