package config

import (
	"fmt"
	"strings"

	"github.com/IshaanNene/wikiscraper/internal/types"
)

// ValidEncodings lists the text encodings the file saver can write.
var ValidEncodings = []string{"utf-8", "latin-1", "iso-8859-1"}

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateScraper(&cfg.Scraper); err != nil {
		return err
	}

	if cfg.Mapper.MaxDepth < 1 {
		return configError("mapper.max_depth must be >= 1, got %d", cfg.Mapper.MaxDepth)
	}
	if cfg.Mapper.LinkLimit < 0 {
		return configError("mapper.link_limit must be >= 0, got %d", cfg.Mapper.LinkLimit)
	}
	if cfg.Mapper.Namespace < -1 {
		return configError("mapper.namespace must be >= -1, got %d", cfg.Mapper.Namespace)
	}

	switch cfg.Storage.Type {
	case "file":
		if !IsValidEncoding(cfg.Storage.Encoding) {
			return configError("storage.encoding %q is not supported (valid: %s)",
				cfg.Storage.Encoding, strings.Join(ValidEncodings, ", "))
		}
		if cfg.Storage.OutputDir == "" {
			return configError("storage.output_dir must not be empty")
		}
	case "mongodb":
		if cfg.Storage.MongoURI == "" {
			return configError("storage.mongo_uri must be set for mongodb storage")
		}
	default:
		return configError("storage.type %q is not supported (valid: file, mongodb)", cfg.Storage.Type)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return configError("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return configError("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return configError("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateScraper checks the values a scraper session is built from.
func ValidateScraper(sc *ScraperConfig) error {
	if !IsSupportedLanguage(sc.Language) {
		return &types.Error{
			Kind:   types.KindConfig,
			Op:     "validate_config",
			Target: sc.Language,
			Err: fmt.Errorf("%w: %q (valid: %s)", types.ErrUnsupportedLang,
				sc.Language, strings.Join(SupportedLanguages, ", ")),
		}
	}
	if sc.Timeout <= 0 {
		return configError("scraper.timeout must be > 0")
	}
	if sc.MaxRetries < 0 {
		return configError("scraper.max_retries must be >= 0, got %d", sc.MaxRetries)
	}
	if sc.MaxRedirects < 0 {
		return configError("scraper.max_redirects must be >= 0, got %d", sc.MaxRedirects)
	}
	if sc.BackoffBase < 0 {
		return configError("scraper.backoff_base must be >= 0")
	}
	if strings.TrimSpace(sc.UserAgent) == "" {
		return configError("scraper.user_agent must identify the bot and a contact")
	}
	if sc.RateLimit < 0 {
		return configError("scraper.rate_limit must be >= 0")
	}
	if sc.MaxBodySize <= 0 {
		return configError("scraper.max_body_size must be > 0")
	}
	return nil
}

// IsValidEncoding reports whether enc is a supported file encoding.
func IsValidEncoding(enc string) bool {
	enc = strings.ToLower(enc)
	for _, e := range ValidEncodings {
		if e == enc {
			return true
		}
	}
	return false
}

func configError(format string, args ...any) error {
	return &types.Error{
		Kind: types.KindConfig,
		Op:   "validate_config",
		Err:  fmt.Errorf(format, args...),
	}
}
