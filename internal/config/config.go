package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingCredential is returned when no upstream API key can be
// resolved. Startup must treat this as fatal; the bridge never runs
// without a credential.
var ErrMissingCredential = errors.New("upstream api key is not configured")

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Thinking  ThinkingConfig  `mapstructure:"thinking"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Store     StoreConfig     `mapstructure:"store"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port    string   `mapstructure:"port"`
	Env     string   `mapstructure:"env"`
	APIKeys []string `mapstructure:"api_keys"`
}

type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
}

type ThinkingConfig struct {
	// Enable asks thinking-capable backends for an explicit trace.
	Enable bool `mapstructure:"enable"`
	// Show forwards the trace to the caller wrapped in <think> markers;
	// when false the trace is stripped.
	Show bool `mapstructure:"show"`
	// Models is the set of backend models that accept the directive.
	Models []string `mapstructure:"models"`
}

type ResolverConfig struct {
	// Aliases maps public model names to backend model names.
	Aliases  map[string]string `mapstructure:"aliases"`
	Fallback FallbackConfig    `mapstructure:"fallback"`
}

// FallbackConfig holds the three-tier fallback models used when a public
// name has no alias and the upstream probe rejected it.
type FallbackConfig struct {
	Large  string `mapstructure:"large"`
	Medium string `mapstructure:"medium"`
	Small  string `mapstructure:"small"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	}

	// Default Values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("upstream.base_url", "https://integrate.api.nvidia.com/v1")
	v.SetDefault("upstream.api_key", "ENV:UPSTREAM_API_KEY")
	v.SetDefault("upstream.request_timeout", 5*time.Minute)
	v.SetDefault("upstream.probe_timeout", 10*time.Second)
	v.SetDefault("thinking.enable", true)
	v.SetDefault("thinking.show", true)
	v.SetDefault("thinking.models", []string{
		"deepseek-ai/deepseek-r1",
		"deepseek-ai/deepseek-v3.1",
		"qwen/qwen3-235b-a22b",
	})
	v.SetDefault("resolver.fallback.large", "meta/llama-3.1-405b-instruct")
	v.SetDefault("resolver.fallback.medium", "meta/llama-3.1-70b-instruct")
	v.SetDefault("resolver.fallback.small", "meta/llama-3.1-8b-instruct")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "file:bridge.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("tracing.enabled", false)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Resolve the upstream credential
	if strings.HasPrefix(cfg.Upstream.APIKey, "ENV:") {
		envVar := strings.TrimPrefix(cfg.Upstream.APIKey, "ENV:")
		// Check process environment first (explicit override)
		val := os.Getenv(envVar)
		if val == "" {
			// Then check viper (which might have it from other sources)
			val = v.GetString(envVar)
		}
		cfg.Upstream.APIKey = val
	}

	if cfg.Upstream.APIKey == "" {
		return nil, ErrMissingCredential
	}

	return &cfg, nil
}
