package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/wikiscraper/internal/types"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "es", cfg.Scraper.Language)
	assert.Equal(t, 3, cfg.Scraper.MaxRetries)
	assert.Equal(t, 3, cfg.Scraper.MaxRedirects)
	assert.NotEmpty(t, cfg.Scraper.UserAgent)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unsupported language", func(c *Config) { c.Scraper.Language = "xx" }},
		{"zero timeout", func(c *Config) { c.Scraper.Timeout = 0 }},
		{"negative retries", func(c *Config) { c.Scraper.MaxRetries = -1 }},
		{"negative redirects", func(c *Config) { c.Scraper.MaxRedirects = -1 }},
		{"missing user agent", func(c *Config) { c.Scraper.UserAgent = "  " }},
		{"bad encoding", func(c *Config) { c.Storage.Encoding = "utf-16" }},
		{"bad storage type", func(c *Config) { c.Storage.Type = "s3" }},
		{"depth zero", func(c *Config) { c.Mapper.MaxDepth = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad metrics port", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Port = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, types.IsKind(err, types.KindConfig), "got %v", err)
		})
	}
}

func TestValidateScraperUnsupportedLanguage(t *testing.T) {
	sc := DefaultConfig().Scraper
	sc.Language = "klingon"

	err := ValidateScraper(&sc)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnsupportedLang)
}

func TestEncodingsAreCaseInsensitive(t *testing.T) {
	assert.True(t, IsValidEncoding("UTF-8"))
	assert.True(t, IsValidEncoding("latin-1"))
	assert.False(t, IsValidEncoding("cp1252"))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wikiscraper.yaml")
	content := `
scraper:
  language: en
  timeout: 5s
  max_retries: 1
mapper:
  max_depth: 2
storage:
  encoding: latin-1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.Scraper.Language)
	assert.Equal(t, 5*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 1, cfg.Scraper.MaxRetries)
	assert.Equal(t, 3, cfg.Scraper.MaxRedirects, "unset keys keep defaults")
	assert.Equal(t, 2, cfg.Mapper.MaxDepth)
	assert.Equal(t, -1, cfg.Mapper.Namespace, "mapper follows links in every namespace by default")
	assert.Equal(t, "latin-1", cfg.Storage.Encoding)
	require.NoError(t, Validate(cfg))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDump(t *testing.T) {
	out, err := Dump(DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, string(out), "language: es")
	assert.Contains(t, string(out), "max_redirects: 3")
}
