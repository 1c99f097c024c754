// Package config provides configuration management for the research pipeline.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrUnknownSource        = errors.New("unknown crawler source")
	ErrInvalidMode          = errors.New("crawler.mode must be 'parallel' or 'sequential'")
	ErrInvalidReferences    = errors.New("crawler.num_references must be at least 1")
	ErrInvalidWorkers       = errors.New("worker counts must be at least 1")
	ErrInvalidTimeout       = errors.New("timeouts must be positive")
	ErrInvalidDelayRange    = errors.New("min delay cannot exceed max delay")
	ErrInvalidAttempts      = errors.New("fetch.attempts must be at least 1")
	ErrMissingLLMURL        = errors.New("llm.url is required")
	ErrInvalidMaxTokens     = errors.New("llm.max_tokens must be at least 1")
	ErrInvalidTemperature   = errors.New("llm.temperature must be between 0 and 2")
	ErrInvalidProvider      = errors.New("screener.provider must be 'alpaca' or 'yahoo'")
	ErrInvalidUniverse      = errors.New("screener.universe must be 'static', 'csv', 'wikipedia' or 'alpaca'")
	ErrEmptyStaticUniverse  = errors.New("screener.tickers is required for the static universe")
	ErrMissingTickersFile   = errors.New("screener.tickers_file is required for the csv universe")
	ErrMissingAlpacaKeys    = errors.New("alpaca api key and secret are required")
	ErrInvalidCacheBackend  = errors.New("cache.backend must be 'memory', 'redis' or 'none'")
	ErrMissingRedisAddr     = errors.New("cache.redis_addr is required for the redis backend")
	ErrInvalidLogLevel      = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidContentBudget = errors.New("extract.max_chars must be at least 1")
)

// Crawl modes.
const (
	ModeParallel   = "parallel"
	ModeSequential = "sequential"
)

// SourceKeys lists every crawler source that can be enabled by key.
var SourceKeys = []string{"google", "yahoo", "marketwatch", "rss", "alternative"}

// Config represents the complete application configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Crawler  CrawlerConfig  `yaml:"crawler"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Extract  ExtractConfig  `yaml:"extract"`
	Screener ScreenerConfig `yaml:"screener"`
	Alpaca   AlpacaConfig   `yaml:"alpaca"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
}

// LLMConfig describes the chat-completion endpoint.
type LLMConfig struct {
	URL           string        `yaml:"url"`
	HealthURL     string        `yaml:"health_url"`
	Model         string        `yaml:"model"`
	APIKey        string        `yaml:"api_key"`
	Language      string        `yaml:"language"`
	MaxTokens     int           `yaml:"max_tokens"`
	Temperature   float64       `yaml:"temperature"`
	Timeout       time.Duration `yaml:"timeout"`
	HealthTimeout time.Duration `yaml:"health_timeout"`
}

// CrawlerConfig contains news aggregation settings.
type CrawlerConfig struct {
	Sources       []string      `yaml:"sources"`
	Mode          string        `yaml:"mode"`
	RSSFeeds      []string      `yaml:"rss_feeds"`
	NumReferences int           `yaml:"num_references"`
	MaxWorkers    int           `yaml:"max_workers"`
	MinArticles   int           `yaml:"min_articles"`
	SourceTimeout time.Duration `yaml:"source_timeout"`
	MinDelay      time.Duration `yaml:"min_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// FetchConfig controls the shared HTTP fetch helper.
type FetchConfig struct {
	UserAgents []string      `yaml:"user_agents"`
	Attempts   int           `yaml:"attempts"`
	Timeout    time.Duration `yaml:"timeout"`
	MinDelay   time.Duration `yaml:"min_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// ExtractConfig controls link enrichment.
type ExtractConfig struct {
	MaxLinks int           `yaml:"max_links"`
	MaxChars int           `yaml:"max_chars"`
	Timeout  time.Duration `yaml:"timeout"`
	MinDelay time.Duration `yaml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay"`
}

// ScreenerConfig selects the price provider and ticker universe.
type ScreenerConfig struct {
	Provider     string        `yaml:"provider"`
	Universe     string        `yaml:"universe"`
	Tickers      []string      `yaml:"tickers"`
	TickersFile  string        `yaml:"tickers_file"`
	WikipediaURL string        `yaml:"wikipedia_url"`
	Workers      int           `yaml:"workers"`
	TopN         int           `yaml:"top_n"`
	TargetReturn float64       `yaml:"target_return"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// AlpacaConfig holds market data credentials.
type AlpacaConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	Feed      string `yaml:"feed"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration that works against a local vLLM server without any file.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			URL:           "http://localhost:8000/v1/chat/completions",
			Model:         "google/gemma-2b-it",
			Language:      "한국어",
			MaxTokens:     250,
			Temperature:   0.7,
			Timeout:       30 * time.Second,
			HealthTimeout: 5 * time.Second,
		},
		Crawler: CrawlerConfig{
			Sources: []string{"google"},
			Mode:    ModeParallel,
			RSSFeeds: []string{
				"https://feeds.finance.yahoo.com/rss/2.0/headline?s={ticker}&region=US&lang=en-US",
				"https://feeds.reuters.com/reuters/businessNews",
				"https://www.nasdaq.com/feed/rssoutbound?category=Stocks",
				"https://www.cnbc.com/id/100003114/device/rss/rss.html",
			},
			NumReferences: 15,
			MaxWorkers:    3,
			MinArticles:   3,
			SourceTimeout: 10 * time.Second,
			MinDelay:      500 * time.Millisecond,
			MaxDelay:      1500 * time.Millisecond,
			CacheTTL:      30 * time.Minute,
		},
		Fetch: FetchConfig{
			Attempts: 1,
			Timeout:  5 * time.Second,
			MinDelay: 100 * time.Millisecond,
			MaxDelay: 500 * time.Millisecond,
		},
		Extract: ExtractConfig{
			MaxLinks: 5,
			MaxChars: 2000,
			Timeout:  10 * time.Second,
			MinDelay: 1 * time.Second,
			MaxDelay: 2 * time.Second,
		},
		Screener: ScreenerConfig{
			Provider:     "yahoo",
			Universe:     "wikipedia",
			WikipediaURL: "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
			Workers:      4,
			TopN:         5,
			TargetReturn: 10,
			CacheTTL:     30 * time.Minute,
		},
		Alpaca: AlpacaConfig{
			BaseURL: "https://paper-api.alpaca.markets",
			Feed:    "iex",
		},
		Cache: CacheConfig{
			Backend: "memory",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads a .env file if present, layers the YAML file at path (if any) over the
// defaults, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	set(&c.Alpaca.APIKey, "ALPACA_API_KEY")
	set(&c.Alpaca.APISecret, "ALPACA_SECRET_KEY")
	set(&c.Alpaca.BaseURL, "ALPACA_BASE_URL")
	set(&c.LLM.URL, "LLM_API_URL", "VLLM_API_URL")
	set(&c.LLM.Model, "LLM_MODEL")
	set(&c.LLM.APIKey, "LLM_API_KEY")
	set(&c.Cache.RedisAddr, "REDIS_ADDR")
	set(&c.Logging.Level, "LOG_LEVEL")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.URL == "" {
		return ErrMissingLLMURL
	}

	if c.LLM.MaxTokens < 1 {
		return ErrInvalidMaxTokens
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return ErrInvalidTemperature
	}

	if c.LLM.Timeout <= 0 || c.LLM.HealthTimeout <= 0 {
		return fmt.Errorf("%w: llm", ErrInvalidTimeout)
	}

	if err := ValidateSources(c.Crawler.Sources); err != nil {
		return err
	}

	if c.Crawler.Mode != ModeParallel && c.Crawler.Mode != ModeSequential {
		return ErrInvalidMode
	}

	if c.Crawler.NumReferences < 1 {
		return ErrInvalidReferences
	}

	if c.Crawler.MaxWorkers < 1 || c.Screener.Workers < 1 {
		return ErrInvalidWorkers
	}

	if c.Crawler.SourceTimeout <= 0 {
		return fmt.Errorf("%w: crawler.source_timeout", ErrInvalidTimeout)
	}

	if c.Crawler.MinDelay > c.Crawler.MaxDelay || c.Fetch.MinDelay > c.Fetch.MaxDelay || c.Extract.MinDelay > c.Extract.MaxDelay {
		return ErrInvalidDelayRange
	}

	if c.Fetch.Attempts < 1 {
		return ErrInvalidAttempts
	}

	if c.Fetch.Timeout <= 0 || c.Extract.Timeout <= 0 {
		return fmt.Errorf("%w: fetch/extract", ErrInvalidTimeout)
	}

	if c.Extract.MaxChars < 1 {
		return ErrInvalidContentBudget
	}

	switch c.Screener.Provider {
	case "alpaca":
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return fmt.Errorf("%w: screener.provider", ErrMissingAlpacaKeys)
		}
	case "yahoo":
	default:
		return ErrInvalidProvider
	}

	switch c.Screener.Universe {
	case "static":
		if len(c.Screener.Tickers) == 0 {
			return ErrEmptyStaticUniverse
		}
	case "csv":
		if c.Screener.TickersFile == "" {
			return ErrMissingTickersFile
		}
	case "alpaca":
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return fmt.Errorf("%w: screener.universe", ErrMissingAlpacaKeys)
		}
	case "wikipedia":
	default:
		return ErrInvalidUniverse
	}

	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return ErrInvalidCacheBackend
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// ValidateSources rejects any key that is not a registered crawler source.
func ValidateSources(keys []string) error {
	known := make(map[string]bool, len(SourceKeys))
	for _, k := range SourceKeys {
		known[k] = true
	}

	for _, k := range keys {
		if !known[strings.ToLower(strings.TrimSpace(k))] {
			return fmt.Errorf("%w: %q", ErrUnknownSource, k)
		}
	}

	return nil
}

// HealthEndpoint returns the liveness URL for the LLM server. Unless configured
// explicitly it is derived from the chat-completion URL.
func (l LLMConfig) HealthEndpoint() string {
	if l.HealthURL != "" {
		return l.HealthURL
	}

	if strings.HasSuffix(l.URL, "/v1/chat/completions") {
		return strings.TrimSuffix(l.URL, "/v1/chat/completions") + "/health"
	}

	return strings.TrimRight(l.URL, "/") + "/health"
}

// String returns a short representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Sources: %v, Mode: %s, Provider: %s, Universe: %s, Cache: %s}",
		c.Crawler.Sources,
		c.Crawler.Mode,
		c.Screener.Provider,
		c.Screener.Universe,
		c.Cache.Backend,
	)
}
