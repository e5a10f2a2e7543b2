package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/wikigraph/secret"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Wiki.XMLRPCPath != "/lib/exe/xmlrpc.php" || cfg.Cache.TTL != 300*time.Second || cfg.Cache.IndexTTL != time.Hour {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Cache.MaxColdFetches != 50 || cfg.Lookup.MaxPages != 500 || cfg.Server.Addr != ":8080" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.LogLevel() != "info" {
		t.Errorf("LogLevel() = %q", cfg.LogLevel())
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wikigraph.yaml")
	body := "wiki:\n  url: https://file.example\n  base_namespace: docs\ncache:\n  ttl: 60s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WIKIGRAPH_WIKI_URL", "https://env.example")
	t.Setenv("WIKIGRAPH_AUTH_API_KEYS", "aa,bb")
	t.Setenv("WIKIGRAPH_DEBUG", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Wiki.URL != "https://env.example" {
		t.Errorf("env must override the file, got %q", cfg.Wiki.URL)
	}
	if cfg.Wiki.BaseNamespace != "docs" || cfg.Cache.TTL != time.Minute {
		t.Errorf("file values lost: %+v", cfg.Wiki)
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[1] != "bb" {
		t.Errorf("APIKeys = %v", cfg.Auth.APIKeys)
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("debug must force debug logging, got %q", cfg.LogLevel())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		cfg.Wiki.URL = "https://wiki.example"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string // substring of a problem; "" means valid
	}{
		{"valid", func(*Config) {}, ""},
		{"fixture instead of url", func(c *Config) { c.Wiki.URL = ""; c.Wiki.Fixture = "corpus.yaml" }, ""},
		{"no source", func(c *Config) { c.Wiki.URL = "" }, "wiki.url is required"},
		{"bad url", func(c *Config) { c.Wiki.URL = "ftp://x" }, "http(s)"},
		{"badger without path", func(c *Config) { c.Cache.Backend = "badger" }, "cache.path"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }, "cache.backend"},
		{"jwt without secret", func(c *Config) { c.Auth.Mode = "jwt" }, "jwt_secret"},
		{"unknown auth", func(c *Config) { c.Auth.Mode = "ldap" }, "auth.mode"},
		{"bad sampling", func(c *Config) { c.Observe.SamplePct = 2 }, "sample_pct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() error = %v, want *ConfigurationError", err)
			}
			if !strings.Contains(ce.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want mention of %q", ce, tt.want)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg, _ := Load("")
	cfg.Cache.Backend = "redis"
	cfg.Auth.Mode = "ldap"
	var ce *ConfigurationError
	if !errors.As(cfg.Validate(), &ce) || len(ce.Problems) != 3 {
		t.Fatalf("expected three problems, got %v", ce)
	}
	if !IsConfigurationError(ce) {
		t.Fatal("IsConfigurationError() = false")
	}
}

func TestResolveSecrets(t *testing.T) {
	t.Setenv("WG_TEST_PASS", "hunter2")
	cfg := &Config{}
	cfg.Wiki.Password = "secretref:env:WG_TEST_PASS"
	cfg.Auth.JWTSecret = "plain"

	if err := cfg.ResolveSecrets(context.Background(), secret.DefaultResolver()); err != nil {
		t.Fatalf("ResolveSecrets() error = %v", err)
	}
	if cfg.Wiki.Password != "hunter2" || cfg.Auth.JWTSecret != "plain" {
		t.Fatalf("resolved = %q, %q", cfg.Wiki.Password, cfg.Auth.JWTSecret)
	}

	cfg.Wiki.Password = "secretref:env:WG_TEST_ABSENT"
	if err := cfg.ResolveSecrets(context.Background(), secret.DefaultResolver()); !errors.Is(err, secret.ErrSecretNotFound) {
		t.Fatalf("ResolveSecrets() error = %v", err)
	}
}
