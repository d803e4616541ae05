package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Ingest IngestConfig `yaml:"ingest"`
	Recent RecentConfig `yaml:"recent"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP viewer configuration.
type ServerConfig struct {
	Host           string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port           int           `yaml:"port" envconfig:"SERVER_PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"SERVER_REQUEST_TIMEOUT"`
	PageSize       int           `yaml:"page_size" envconfig:"SERVER_PAGE_SIZE"`
	// RefreshInterval reloads the working set periodically. Zero disables it.
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"SERVER_REFRESH_INTERVAL"`
}

// FetchConfig controls how remote exports are retrieved.
type FetchConfig struct {
	// Timeout bounds a whole fetch across all candidate URLs.
	Timeout time.Duration `yaml:"timeout" envconfig:"FETCH_TIMEOUT"`
	// RequestTimeout bounds a single HTTP attempt.
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"FETCH_REQUEST_TIMEOUT"`
	Retries        int           `yaml:"retries" envconfig:"FETCH_RETRIES"`
	RetryDelay     time.Duration `yaml:"retry_delay" envconfig:"FETCH_RETRY_DELAY"`
	// Proxies are URL templates; "{url}" is replaced with the escaped target.
	Proxies      []string `yaml:"proxies" envconfig:"FETCH_PROXIES"`
	UserAgent    string   `yaml:"user_agent" envconfig:"FETCH_USER_AGENT"`
	MaxBodyBytes int64    `yaml:"max_body_bytes" envconfig:"FETCH_MAX_BODY_BYTES"`
	// RateLimit is the number of outbound requests per second. Zero disables pacing.
	RateLimit float64 `yaml:"rate_limit" envconfig:"FETCH_RATE_LIMIT"`
	RateBurst int     `yaml:"rate_burst" envconfig:"FETCH_RATE_BURST"`
}

// IngestConfig controls batch loading.
type IngestConfig struct {
	// Concurrency is the number of sources loaded in parallel. One or less loads sequentially.
	Concurrency int `yaml:"concurrency" envconfig:"INGEST_CONCURRENCY"`
}

// RecentConfig holds recent-source list configuration.
type RecentConfig struct {
	// Backend is "file", "sqlite" or "none".
	Backend string `yaml:"backend" envconfig:"RECENT_BACKEND"`
	Path    string `yaml:"path" envconfig:"RECENT_PATH"`
	Max     int    `yaml:"max" envconfig:"RECENT_MAX"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// Recent store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// DefaultProxies are tried after direct raw-content candidates.
var DefaultProxies = []string{
	"https://api.allorigins.win/raw?url={url}",
	"https://corsproxy.io/?{url}",
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8347,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			RequestTimeout: 30 * time.Second,
			PageSize:       50,
		},
		Fetch: FetchConfig{
			Timeout:        5 * time.Second,
			RequestTimeout: 2 * time.Second,
			Retries:        2,
			RetryDelay:     300 * time.Millisecond,
			Proxies:        append([]string(nil), DefaultProxies...),
			UserAgent:      "x-bookmarks/1.0",
			MaxBodyBytes:   64 << 20,
			RateLimit:      10,
			RateBurst:      4,
		},
		Ingest: IngestConfig{
			Concurrency: 1,
		},
		Recent: RecentConfig{
			Backend: BackendFile,
			Path:    defaultRecentPath(),
			Max:     10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from defaults, an optional .env file, an optional
// YAML file and environment variables, in that order of increasing priority.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	// A missing .env is normal; anything else is reported.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Only variables that are set override; no envconfig defaults are declared
	// so file values survive.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.PageSize <= 0 {
		return fmt.Errorf("SERVER_PAGE_SIZE must be positive")
	}
	if c.Server.RefreshInterval < 0 {
		return fmt.Errorf("SERVER_REFRESH_INTERVAL must not be negative")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.Fetch.RequestTimeout <= 0 {
		return fmt.Errorf("FETCH_REQUEST_TIMEOUT must be positive")
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("FETCH_RETRIES must not be negative")
	}
	if c.Fetch.RetryDelay < 0 {
		return fmt.Errorf("FETCH_RETRY_DELAY must not be negative")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("FETCH_MAX_BODY_BYTES must be positive")
	}
	if c.Fetch.RateLimit < 0 {
		return fmt.Errorf("FETCH_RATE_LIMIT must not be negative")
	}
	for _, p := range c.Fetch.Proxies {
		if !strings.Contains(p, "{url}") {
			return fmt.Errorf("proxy template %q has no {url} placeholder", p)
		}
	}
	switch c.Recent.Backend {
	case BackendFile, BackendSQLite:
		if c.Recent.Path == "" {
			return fmt.Errorf("RECENT_PATH is required for the %s backend", c.Recent.Backend)
		}
	case BackendNone:
	default:
		return fmt.Errorf("unknown recent backend %q", c.Recent.Backend)
	}
	if c.Recent.Max <= 0 {
		return fmt.Errorf("RECENT_MAX must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func defaultRecentPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".xbookmarks-recent.json"
	}
	return dir + string(os.PathSeparator) + "xbookmarks" + string(os.PathSeparator) + "recent.json"
}
