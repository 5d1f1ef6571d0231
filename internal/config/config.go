package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultUserAgent identifies the bot to Wikipedia as its User-Agent policy requires.
const DefaultUserAgent = "WikiScraperBot/3.0 (+https://github.com/IshaanNene/wikiscraper; wikiscraper@users.noreply.github.com)"

// SupportedLanguages lists the Wikipedia editions the scraper accepts.
var SupportedLanguages = []string{
	"en", "ceb", "es", "fr", "de", "it", "pt", "ja", "zh", "ru", "ko", "nl", "ar", "simple",
}

// Config is the root configuration for wikiscraper.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper" yaml:"scraper"`
	Mapper  MapperConfig  `mapstructure:"mapper"  yaml:"mapper"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ScraperConfig controls the HTTP session and the Wikipedia edition.
type ScraperConfig struct {
	Language        string        `mapstructure:"language"          yaml:"language"`
	Timeout         time.Duration `mapstructure:"timeout"           yaml:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"       yaml:"max_retries"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"      yaml:"backoff_base"`
	Parser          string        `mapstructure:"parser"            yaml:"parser"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	RateLimit       float64       `mapstructure:"rate_limit"        yaml:"rate_limit"` // requests per second, 0 = unlimited
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
}

// MapperConfig controls link mapping.
type MapperConfig struct {
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
	// LinkLimit caps the internal links fetched per page, 0 = all.
	LinkLimit int `mapstructure:"link_limit" yaml:"link_limit"`
	// Namespace restricts followed links, -1 = any namespace.
	Namespace int `mapstructure:"namespace" yaml:"namespace"`
}

// StorageConfig controls where saved content goes.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"` // file, mongodb
	OutputDir       string `mapstructure:"output_dir"       yaml:"output_dir"`
	Encoding        string `mapstructure:"encoding"         yaml:"encoding"`
	TimestampFormat string `mapstructure:"timestamp_format" yaml:"timestamp_format"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			Language:        "es",
			Timeout:         15 * time.Second,
			MaxRetries:      3,
			MaxRedirects:    3,
			BackoffBase:     500 * time.Millisecond,
			Parser:          "goquery",
			UserAgent:       DefaultUserAgent,
			RateLimit:       0,
			MaxBodySize:     20 * 1024 * 1024, // 20MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    10,
		},
		Mapper: MapperConfig{
			MaxDepth:  1,
			LinkLimit: 0,
			Namespace: -1,
		},
		Storage: StorageConfig{
			Type:            "file",
			OutputDir:       "data",
			Encoding:        "utf-8",
			TimestampFormat: "20060102_150405",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "wikiscraper",
			MongoCollection: "pages",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// IsSupportedLanguage reports whether lang is a supported Wikipedia edition.
func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
