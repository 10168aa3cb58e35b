// Package config loads intake-cli settings from config.yaml and INTAKE_*
// environment variables.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/intake-cli/internal/trend"
	"github.com/sells-group/intake-cli/internal/valuation"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer" mapstructure:"analyzer"`
	Valuation  ValuationConfig  `yaml:"valuation" mapstructure:"valuation"`
	Trend      trend.Config     `yaml:"trend" mapstructure:"trend"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the document store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CacheConfig configures the redis cache of latest submissions.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	TTLSecs  int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	RateLimit           float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst           int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
	MaxBodyBytes        int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// AnalyzerConfig configures the submission analyzer and completeness checker.
type AnalyzerConfig struct {
	HighThreshold        float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	GoodThreshold        float64 `yaml:"good_threshold" mapstructure:"good_threshold"`
	MaxNextSteps         int     `yaml:"max_next_steps" mapstructure:"max_next_steps"`
	OverridesFile        string  `yaml:"overrides_file" mapstructure:"overrides_file"`
	CheckerOverridesFile string  `yaml:"checker_overrides_file" mapstructure:"checker_overrides_file"`
}

// ValuationConfig configures the replacement cost model.
type ValuationConfig struct {
	valuation.Thresholds `yaml:",inline" mapstructure:",squash"`
	SprinklerFactor      float64 `yaml:"sprinkler_factor" mapstructure:"sprinkler_factor"`
	TaxonomyFallback     string  `yaml:"taxonomy_fallback" mapstructure:"taxonomy_fallback"`
	TablesFile           string  `yaml:"tables_file" mapstructure:"tables_file"`
}

// RetryConfig configures retries and the circuit breaker around document
// lookups.
type RetryConfig struct {
	MaxAttempts         int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs    int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs        int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier          float64 `yaml:"multiplier" mapstructure:"multiplier"`
	Jitter              float64 `yaml:"jitter" mapstructure:"jitter"`
	BreakerThreshold    int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCoolDownSecs int     `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// MonitoringConfig configures the background alert checker.
type MonitoringConfig struct {
	Enabled             bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL          string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	ErrorRateThreshold  float64 `yaml:"error_rate_threshold" mapstructure:"error_rate_threshold"`
	MinAvgQuality       float64 `yaml:"min_avg_quality" mapstructure:"min_avg_quality"`
	CheckIntervalSecs   int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.intake-cli")

	// Environment
	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "intake.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl_secs", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 15)
	v.SetDefault("server.max_body_bytes", 10<<20)

	v.SetDefault("analyzer.high_threshold", 90.0)
	v.SetDefault("analyzer.good_threshold", 80.0)
	v.SetDefault("analyzer.max_next_steps", 3)
	v.SetDefault("analyzer.overrides_file", "")
	v.SetDefault("analyzer.checker_overrides_file", "")

	th := valuation.DefaultThresholds()
	v.SetDefault("valuation.variance_high", th.VarianceHigh)
	v.SetDefault("valuation.underinsurance", th.Underinsurance)
	v.SetDefault("valuation.overinsurance", th.Overinsurance)
	v.SetDefault("valuation.content_ratio_high", th.ContentRatioHigh)
	v.SetDefault("valuation.content_ratio_low", th.ContentRatioLow)
	v.SetDefault("valuation.low_content_min_building", th.LowContentMinBuilding)
	v.SetDefault("valuation.older_construction_age", th.OlderConstructionAge)
	v.SetDefault("valuation.aging_roof_age", th.AgingRoofAge)
	v.SetDefault("valuation.sprinkler_factor", valuation.DefaultTables().SprinklerFactor)
	v.SetDefault("valuation.taxonomy_fallback", string(valuation.FallbackFirst))
	v.SetDefault("valuation.tables_file", "")

	tr := trend.DefaultConfig()
	v.SetDefault("trend.threshold", tr.Threshold)
	v.SetDefault("trend.max_periods", tr.MaxPeriods)
	v.SetDefault("trend.volatility_limit", tr.VolatilityLimit)
	v.SetDefault("trend.decrease_limit", tr.DecreaseLimit)
	v.SetDefault("trend.rapid_appreciation", tr.RapidAppreciation)
	v.SetDefault("trend.alignment_tolerance", tr.AlignmentTolerance)
	v.SetDefault("trend.cost_index", tr.CostIndex)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 200)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter", 0.25)
	v.SetDefault("retry.breaker_threshold", 5)
	v.SetDefault("retry.breaker_cooldown_secs", 30)

	v.SetDefault("batch.concurrency", 8)

	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.error_rate_threshold", 0.2)
	v.SetDefault("monitoring.min_avg_quality", 60.0)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !slices.Contains([]string{"sqlite", "postgres"}, c.Store.Driver) {
		add("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		add("store.database_url is required")
	}
	if c.Store.MinConns > c.Store.MaxConns && c.Store.MaxConns > 0 {
		add("store.min_conns (%d) exceeds store.max_conns (%d)", c.Store.MinConns, c.Store.MaxConns)
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		add("cache.addr is required when the cache is enabled")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		add("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if !slices.Contains([]string{"json", "console"}, c.Log.Format) {
		add("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		add("server.rate_limit and server.rate_burst must not be negative")
	}
	if c.Analyzer.GoodThreshold <= 0 || c.Analyzer.GoodThreshold >= c.Analyzer.HighThreshold || c.Analyzer.HighThreshold > 100 {
		add("analyzer thresholds need 0 < good (%v) < high (%v) <= 100", c.Analyzer.GoodThreshold, c.Analyzer.HighThreshold)
	}
	if c.Analyzer.MaxNextSteps <= 0 {
		add("analyzer.max_next_steps must be positive")
	}
	if c.Valuation.Overinsurance <= c.Valuation.Underinsurance {
		add("valuation.overinsurance (%v) must exceed valuation.underinsurance (%v)", c.Valuation.Overinsurance, c.Valuation.Underinsurance)
	}
	if c.Valuation.SprinklerFactor <= 0 || c.Valuation.SprinklerFactor > 1 {
		add("valuation.sprinkler_factor must be in (0, 1], got %v", c.Valuation.SprinklerFactor)
	}
	fb := valuation.Fallback(c.Valuation.TaxonomyFallback)
	if fb != valuation.FallbackFirst && fb != valuation.FallbackUnknown {
		add("valuation.taxonomy_fallback must be first or unknown, got %q", c.Valuation.TaxonomyFallback)
	}
	if c.Trend.Threshold <= 0 {
		add("trend.threshold must be positive")
	}
	if c.Trend.MaxPeriods < 2 {
		add("trend.max_periods must be at least 2")
	}
	if c.Retry.MaxAttempts <= 0 {
		add("retry.max_attempts must be positive")
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		add("retry.jitter must be in [0, 1]")
	}
	if c.Batch.Concurrency <= 0 {
		add("batch.concurrency must be positive")
	}
	if c.Monitoring.Enabled && c.Monitoring.LookbackWindowHours <= 0 {
		add("monitoring.lookback_window_hours must be positive")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
