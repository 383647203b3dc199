package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:      HTTPConfig{Port: 8080},
		Redis:     RedisConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small", Dimensions: 1536},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"missing redis addrs", func(c *Config) { c.Redis.Addrs = nil }, "redis.addrs"},
		{"unknown lexical driver", func(c *Config) { c.Lexical.Driver = "solr" }, "lexical.driver"},
		{"missing model", func(c *Config) { c.Embedding.Model = "" }, "embedding.model"},
		{"zero dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }, "embedding.dimensions"},
		{"default over max", func(c *Config) { c.Search.DefaultLimit = 200 }, "search.default_limit"},
		{"threshold out of range", func(c *Config) {
			v := 1.5
			c.Search.DefaultScoreThreshold = &v
		}, "default_score_threshold"},
		{"fail ratio", func(c *Config) { c.Resilience.BreakerFailRatio = 2 }, "breaker_fail_ratio"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errSub) {
				t.Errorf("error = %q, want substring %q", err, tc.errSub)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Redis.KeyPrefix != "souq:" {
		t.Errorf("expected KeyPrefix='souq:', got %q", cfg.Redis.KeyPrefix)
	}
	if cfg.Lexical.Driver != LexicalRedis {
		t.Errorf("expected lexical driver redis, got %q", cfg.Lexical.Driver)
	}
	if cfg.Search.DefaultLimit != 10 {
		t.Errorf("expected DefaultLimit=10, got %d", cfg.Search.DefaultLimit)
	}
	if cfg.Search.Threshold() != 0.3 {
		t.Errorf("expected threshold 0.3, got %v", cfg.Search.Threshold())
	}
	if cfg.Search.Timeouts.Embed != 3000 || cfg.Search.Timeouts.Vector != 1000 {
		t.Errorf("unexpected stage timeouts %+v", cfg.Search.Timeouts)
	}
	if cfg.WebSearch.MaxResults != 10 || cfg.WebSearch.SearchDepth != "advanced" {
		t.Errorf("unexpected websearch defaults %+v", cfg.WebSearch)
	}
	if len(cfg.WebSearch.IncludeDomains) != 1 || cfg.WebSearch.IncludeDomains[0] != "amazon.com" {
		t.Errorf("unexpected include domains %v", cfg.WebSearch.IncludeDomains)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	zero := 0.0
	cfg := Config{
		HTTP:   HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Redis:  RedisConfig{KeyPrefix: "custom:"},
		Search: SearchConfig{DefaultLimit: 5, DefaultScoreThreshold: &zero},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Redis.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Redis.KeyPrefix)
	}
	if cfg.Search.DefaultLimit != 5 {
		t.Errorf("expected DefaultLimit=5, got %d", cfg.Search.DefaultLimit)
	}
	if cfg.Search.Threshold() != 0 {
		t.Errorf("explicit zero threshold must be kept, got %v", cfg.Search.Threshold())
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("SOUQ_TEST_REDIS", "redis.internal:6380")

	data := []byte(`
http:
  port: ${SOUQ_TEST_PORT:-9090}
redis:
  addrs: ["${SOUQ_TEST_REDIS}"]
embedding:
  model: m
  dimensions: 8
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Redis.Addrs[0] != "redis.internal:6380" {
		t.Errorf("addrs = %v", cfg.Redis.Addrs)
	}
}

func TestLoad_LocalFile(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.Threshold() != 0.3 {
		t.Errorf("unexpected search config %+v", cfg.Search)
	}
}

func TestDuration(t *testing.T) {
	if Duration(1500).Milliseconds() != 1500 {
		t.Errorf("Duration(1500) = %v", Duration(1500))
	}
}
