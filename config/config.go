package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/wikigraph/secret"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WIKIGRAPH"

// Config is the full process configuration.
type Config struct {
	Wiki       WikiConfig       `mapstructure:"wiki"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Lookup     LookupConfig     `mapstructure:"lookup"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Observe    ObserveConfig    `mapstructure:"observe"`
	Debug      bool             `mapstructure:"debug"`
}

type WikiConfig struct {
	URL           string        `mapstructure:"url"`
	XMLRPCPath    string        `mapstructure:"xmlrpc_path"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	BaseNamespace string        `mapstructure:"base_namespace"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// Fixture is a YAML corpus served instead of a live wiki.
	Fixture string `mapstructure:"fixture"`
}

type CacheConfig struct {
	Backend        string        `mapstructure:"backend"`
	Path           string        `mapstructure:"path"`
	TTL            time.Duration `mapstructure:"ttl"`
	IndexTTL       time.Duration `mapstructure:"index_ttl"`
	MaxColdFetches int           `mapstructure:"max_cold_fetches"`
}

type LookupConfig struct {
	MaxPages         int `mapstructure:"max_pages"`
	GraphConcurrency int `mapstructure:"graph_concurrency"`
	PreviewLength    int `mapstructure:"preview_length"`
}

type ResilienceConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	InitialDelay  time.Duration `mapstructure:"initial_delay"`
	MaxFailures   int           `mapstructure:"max_failures"`
	ResetTimeout  time.Duration `mapstructure:"reset_timeout"`
	Rate          float64       `mapstructure:"rate"`
	Burst         int           `mapstructure:"burst"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	Mode        string   `mapstructure:"mode"`
	APIKeys     []string `mapstructure:"api_keys"`
	JWTSecret   string   `mapstructure:"jwt_secret"`
	JWTIssuer   string   `mapstructure:"jwt_issuer"`
	JWTAudience string   `mapstructure:"jwt_audience"`
}

type ObserveConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	LogLevel    string  `mapstructure:"log_level"`
	Tracing     string  `mapstructure:"tracing"`
	Metrics     string  `mapstructure:"metrics"`
	SamplePct   float64 `mapstructure:"sample_pct"`
}

// defaults registers every key; viper only maps environment variables
// onto keys it knows.
var defaults = map[string]any{
	"wiki.url":                  "",
	"wiki.xmlrpc_path":          "/lib/exe/xmlrpc.php",
	"wiki.username":             "",
	"wiki.password":             "",
	"wiki.base_namespace":       "",
	"wiki.timeout":              30 * time.Second,
	"wiki.fixture":              "",
	"cache.backend":             "memory",
	"cache.path":                "",
	"cache.ttl":                 300 * time.Second,
	"cache.index_ttl":           3600 * time.Second,
	"cache.max_cold_fetches":    50,
	"lookup.max_pages":          500,
	"lookup.graph_concurrency":  8,
	"lookup.preview_length":     300,
	"resilience.max_attempts":   3,
	"resilience.initial_delay":  200 * time.Millisecond,
	"resilience.max_failures":   5,
	"resilience.reset_timeout":  30 * time.Second,
	"resilience.rate":           20.0,
	"resilience.burst":          10,
	"resilience.max_concurrent": 8,
	"server.addr":               ":8080",
	"server.shutdown_timeout":   10 * time.Second,
	"auth.mode":                 "none",
	"auth.api_keys":             []string{},
	"auth.jwt_secret":           "",
	"auth.jwt_issuer":           "",
	"auth.jwt_audience":         "",
	"observe.service_name":      "wikigraph",
	"observe.log_level":         "info",
	"observe.tracing":           "none",
	"observe.metrics":           "prometheus",
	"observe.sample_pct":        1.0,
	"debug":                     false,
}

// New returns a viper instance with defaults and environment binding
// applied. Callers may Set overrides (e.g. from CLI flags) before Decode.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (optional) and the environment into a Config. It does
// not validate.
func Load(path string) (*Config, error) {
	return Read(New(), path)
}

// Read is Load over a caller-prepared viper instance, e.g. one with CLI
// flags bound.
func Read(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}
	return Decode(v)
}

// Decode unmarshals v into a Config.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	// A comma-separated env value arrives as one element.
	if len(cfg.Auth.APIKeys) == 1 && strings.Contains(cfg.Auth.APIKeys[0], ",") {
		cfg.Auth.APIKeys = splitList(cfg.Auth.APIKeys[0])
	}
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ConfigurationError lists every configuration problem. It is fatal:
// the server refuses to start.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "config: " + strings.Join(e.Problems, "; ")
}

// IsConfigurationError reports whether err is a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var p []string
	add := func(format string, args ...any) { p = append(p, fmt.Sprintf(format, args...)) }

	if c.Wiki.URL == "" && c.Wiki.Fixture == "" {
		add("wiki.url is required unless wiki.fixture is set")
	}
	if c.Wiki.URL != "" && !strings.HasPrefix(c.Wiki.URL, "http://") && !strings.HasPrefix(c.Wiki.URL, "https://") {
		add("wiki.url %q must be an http(s) URL", c.Wiki.URL)
	}
	if c.Wiki.Timeout <= 0 {
		add("wiki.timeout must be positive")
	}
	switch c.Cache.Backend {
	case "memory":
	case "badger":
		if c.Cache.Path == "" {
			add("cache.path is required for the badger backend")
		}
	default:
		add("cache.backend %q is not one of memory, badger", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 || c.Cache.IndexTTL < 0 {
		add("cache ttls must not be negative")
	}
	if c.Cache.MaxColdFetches < 0 {
		add("cache.max_cold_fetches must not be negative")
	}
	if c.Lookup.MaxPages <= 0 || c.Lookup.GraphConcurrency <= 0 || c.Lookup.PreviewLength <= 0 {
		add("lookup limits must be positive")
	}
	if c.Resilience.MaxAttempts <= 0 {
		add("resilience.max_attempts must be positive")
	}
	switch c.Auth.Mode {
	case "none":
	case "api_key":
		if len(c.Auth.APIKeys) == 0 {
			add("auth.api_keys is required for mode api_key")
		}
	case "jwt":
		if c.Auth.JWTSecret == "" {
			add("auth.jwt_secret is required for mode jwt")
		}
	case "any":
		if len(c.Auth.APIKeys) == 0 && c.Auth.JWTSecret == "" {
			add("auth mode any needs api_keys or jwt_secret")
		}
	default:
		add("auth.mode %q is not one of none, api_key, jwt, any", c.Auth.Mode)
	}
	if !oneOf(c.Observe.Tracing, "none", "stdout", "otlp") {
		add("observe.tracing %q is not one of none, stdout, otlp", c.Observe.Tracing)
	}
	if !oneOf(c.Observe.Metrics, "none", "stdout", "otlp", "prometheus") {
		add("observe.metrics %q is not one of none, stdout, otlp, prometheus", c.Observe.Metrics)
	}
	if c.Observe.SamplePct < 0 || c.Observe.SamplePct > 1 {
		add("observe.sample_pct must be within [0, 1]")
	}

	if len(p) > 0 {
		return &ConfigurationError{Problems: p}
	}
	return nil
}

func oneOf(v string, set ...string) bool {
	return slices.Contains(set, v)
}

// ResolveSecrets replaces secret references in the wiki password, the
// JWT secret and the API key list.
func (c *Config) ResolveSecrets(ctx context.Context, r *secret.Resolver) error {
	var err error
	if c.Wiki.Password, err = r.Resolve(ctx, c.Wiki.Password); err != nil {
		return fmt.Errorf("config: wiki.password: %w", err)
	}
	if c.Auth.JWTSecret, err = r.Resolve(ctx, c.Auth.JWTSecret); err != nil {
		return fmt.Errorf("config: auth.jwt_secret: %w", err)
	}
	if c.Auth.APIKeys, err = r.ResolveAll(ctx, c.Auth.APIKeys); err != nil {
		return fmt.Errorf("config: auth.api_keys: %w", err)
	}
	return nil
}

// LogLevel is the effective log level: debug forces "debug".
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Observe.LogLevel
}
