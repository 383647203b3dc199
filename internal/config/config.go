package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the souq API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Lexical    LexicalConfig    `yaml:"lexical"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Search     SearchConfig     `yaml:"search"`
	WebSearch  WebSearchConfig  `yaml:"websearch"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	StaticDir       string `yaml:"static_dir"`
}

// RedisConfig holds the item store and FT index connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// PostgresConfig holds the transaction store settings.
type PostgresConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_sec"`
}

// Lexical drivers.
const (
	LexicalRedis = "redis"
	LexicalBleve = "bleve"
)

// LexicalConfig selects the full-text backend.
type LexicalConfig struct {
	Driver    string `yaml:"driver"` // redis (default), bleve
	BlevePath string `yaml:"bleve_path"`
}

// EmbeddingConfig holds embedding provider and cache settings.
type EmbeddingConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
	LRUSize             int    `yaml:"lru_size"`
	RedisCache          bool   `yaml:"redis_cache"`
}

// SearchConfig holds retrieval pipeline settings.
type SearchConfig struct {
	DefaultLimit          int            `yaml:"default_limit"`
	MaxLimit              int            `yaml:"max_limit"`
	DefaultScoreThreshold *float64       `yaml:"default_score_threshold"`
	RerankConcurrency     int            `yaml:"rerank_concurrency"`
	Timeouts              StageTimeouts  `yaml:"timeouts_ms"`
	Import                ImportSettings `yaml:"import"`
}

// StageTimeouts bounds each external call of the search pipeline.
type StageTimeouts struct {
	Embed   int `yaml:"embed"`
	Lexical int `yaml:"lexical"`
	Rerank  int `yaml:"rerank"`
	Vector  int `yaml:"vector"`
	Hydrate int `yaml:"hydrate"`
}

// ImportSettings controls catalog seeding.
type ImportSettings struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
}

// Threshold returns the configured default score threshold.
func (s SearchConfig) Threshold() float64 {
	if s.DefaultScoreThreshold == nil {
		return 0
	}
	return *s.DefaultScoreThreshold
}

// Duration converts a millisecond setting to a time.Duration.
func Duration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// WebSearchConfig holds the web search provider settings.
type WebSearchConfig struct {
	APIKey         string   `yaml:"api_key"`
	BaseURL        string   `yaml:"base_url"`
	IncludeDomains []string `yaml:"include_domains"`
	MaxResults     int      `yaml:"max_results"`
	SearchDepth    string   `yaml:"search_depth"`
	RatePerSec     float64  `yaml:"rate_per_sec"`
	Burst          int      `yaml:"burst"`
	TimeoutMS      int      `yaml:"timeout_ms"`
}

// ResilienceConfig holds retry and circuit breaker knobs for outbound clients.
type ResilienceConfig struct {
	MaxRetries       int     `yaml:"max_retries"`
	BaseBackoffMS    int     `yaml:"base_backoff_ms"`
	MaxBackoffMS     int     `yaml:"max_backoff_ms"`
	BreakerFailures  uint32  `yaml:"breaker_failures"`
	BreakerOpenSec   int     `yaml:"breaker_open_sec"`
	BreakerFailRatio float64 `yaml:"breaker_fail_ratio"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies
// defaults and validation.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	c.applyHTTPDefaults()
	c.applyStoreDefaults()
	c.applySearchDefaults()
	c.applyOutboundDefaults()
}

func (c *Config) applyHTTPDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.StaticDir == "" {
		c.HTTP.StaticDir = "static"
	}
}

func (c *Config) applyStoreDefaults() {
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "souq:"
	}
	if c.Postgres.MaxOpenConns <= 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		c.Postgres.ConnMaxLifetime = 300
	}
	if c.Lexical.Driver == "" {
		c.Lexical.Driver = LexicalRedis
	}
	if c.Lexical.BlevePath == "" {
		c.Lexical.BlevePath = "data/catalog.bleve"
	}
	if c.Embedding.LRUSize <= 0 {
		c.Embedding.LRUSize = 4096
	}
}

func (c *Config) applySearchDefaults() {
	s := &c.Search
	if s.DefaultLimit <= 0 {
		s.DefaultLimit = 10
	}
	if s.MaxLimit <= 0 {
		s.MaxLimit = 100
	}
	if s.DefaultScoreThreshold == nil {
		t := 0.3
		s.DefaultScoreThreshold = &t
	}
	if s.RerankConcurrency <= 0 {
		s.RerankConcurrency = 8
	}
	if s.Timeouts.Embed <= 0 {
		s.Timeouts.Embed = 3000
	}
	if s.Timeouts.Lexical <= 0 {
		s.Timeouts.Lexical = 1000
	}
	if s.Timeouts.Rerank <= 0 {
		s.Timeouts.Rerank = 5000
	}
	if s.Timeouts.Vector <= 0 {
		s.Timeouts.Vector = 1000
	}
	if s.Timeouts.Hydrate <= 0 {
		s.Timeouts.Hydrate = 1000
	}
	if s.Import.Workers <= 0 {
		s.Import.Workers = 8
	}
	if s.Import.BatchSize <= 0 {
		s.Import.BatchSize = 100
	}
}

func (c *Config) applyOutboundDefaults() {
	w := &c.WebSearch
	if w.BaseURL == "" {
		w.BaseURL = "https://api.tavily.com"
	}
	if len(w.IncludeDomains) == 0 {
		w.IncludeDomains = []string{"amazon.com"}
	}
	if w.MaxResults <= 0 {
		w.MaxResults = 10
	}
	if w.SearchDepth == "" {
		w.SearchDepth = "advanced"
	}
	if w.RatePerSec <= 0 {
		w.RatePerSec = 2
	}
	if w.Burst <= 0 {
		w.Burst = 4
	}
	if w.TimeoutMS <= 0 {
		w.TimeoutMS = 10000
	}

	r := &c.Resilience
	if r.MaxRetries < 0 {
		r.MaxRetries = 0
	}
	if r.BaseBackoffMS <= 0 {
		r.BaseBackoffMS = 100
	}
	if r.MaxBackoffMS <= 0 {
		r.MaxBackoffMS = 2000
	}
	if r.BreakerFailures == 0 {
		r.BreakerFailures = 5
	}
	if r.BreakerOpenSec <= 0 {
		r.BreakerOpenSec = 30
	}
	if r.BreakerFailRatio <= 0 {
		r.BreakerFailRatio = 0.6
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	switch c.Lexical.Driver {
	case LexicalRedis, LexicalBleve:
	default:
		return fmt.Errorf("lexical.driver must be %q or %q, got %q", LexicalRedis, LexicalBleve, c.Lexical.Driver)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if t := c.Search.Threshold(); t < 0 || t > 1 {
		return fmt.Errorf("search.default_score_threshold must be between 0 and 1, got %v", t)
	}
	if c.Resilience.BreakerFailRatio > 1 {
		return fmt.Errorf("resilience.breaker_fail_ratio must be at most 1, got %v", c.Resilience.BreakerFailRatio)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to this source file, for tests and go run from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
