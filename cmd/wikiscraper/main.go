package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/wikiscraper/internal/config"
	"github.com/IshaanNene/wikiscraper/internal/mapper"
	"github.com/IshaanNene/wikiscraper/internal/observability"
	"github.com/IshaanNene/wikiscraper/internal/service"
	"github.com/IshaanNene/wikiscraper/internal/storage"
	"github.com/IshaanNene/wikiscraper/internal/wiki"
)

var (
	cfgFile    string
	verbose    bool
	language   string
	timeoutSec int
	maxRetries int
	parserName string
	userAgent  string
	rateLimit  float64
	logLevel   string
	logFormat  string
	metricsOn  bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wikiscraper",
		Short: "Wikipedia scraper: search, articles, links and link maps",
		Long: `wikiscraper reads Wikipedia through its HTML pages and the MediaWiki API.

It can search articles, print or save their plain text, extract article
structure from HTML, list links and categories, and map the internal links
of a page recursively into a tree or graph.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file path")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVarP(&language, "lang", "l", "", "Wikipedia language code, e.g. es, en, fr")
	pf.IntVar(&timeoutSec, "timeout", 0, "HTTP timeout in seconds (0 = use config)")
	pf.IntVar(&maxRetries, "max-retries", -1, "max retries per failed request (-1 = use config)")
	pf.StringVar(&parserName, "parser", "", "HTML parser engine: goquery, htmlquery")
	pf.StringVar(&userAgent, "user-agent", "", "identifying User-Agent string")
	pf.Float64Var(&rateLimit, "rate-limit", -1, "max requests per second (0 = unlimited, -1 = use config)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "log format: text, json")
	pf.BoolVar(&metricsOn, "metrics", false, "serve Prometheus metrics while the command runs")

	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(pageCmd())
	rootCmd.AddCommand(linksCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(mapCmd())
	rootCmd.AddCommand(testCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// app holds everything a command needs for one run.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	scraper *wiki.Scraper
	service *service.WikiService

	closers []func() error
}

// setupApp loads and validates configuration, then wires the scraper,
// mapper and service. withSaver also opens the configured storage.
func setupApp(ctx context.Context, withSaver bool) (*app, error) {
	if err := validateCLIInputs(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, closeLog, err := setupLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, closeLog)

	a.metrics = observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		srv := a.metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
		a.closers = append(a.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.metrics.Shutdown(ctx, srv)
		})
	}

	scraper, err := wiki.New(cfg.Scraper, logger, wiki.WithMetrics(a.metrics))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create scraper: %w", err)
	}
	a.scraper = scraper
	a.closers = append(a.closers, scraper.Close)

	var saver storage.Saver
	if withSaver {
		saver, err = storage.New(ctx, cfg.Storage, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create storage: %w", err)
		}
		a.closers = append(a.closers, saver.Close)
	}

	m := mapper.New(scraper, cfg.Mapper, a.metrics, logger)
	a.service = service.New(scraper, m, saver, a.metrics, logger)

	logger.Debug("wikiscraper ready",
		"language", cfg.Scraper.Language,
		"base_url", scraper.BaseURL(),
		"timeout", cfg.Scraper.Timeout,
		"parser", cfg.Scraper.Parser,
	)
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	stats := a.metrics.Snapshot()
	a.logger.Debug("run finished",
		"requests", stats["requests_total"],
		"retried", stats["requests_retried"],
		"failed", stats["requests_failed"],
		"bytes", stats["bytes_downloaded"],
	)
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("cleanup failed", "error", err)
		}
	}
}

// runWithApp sets up the app, runs fn under a signal-aware context and
// always closes the app afterwards.
func runWithApp(cmd *cobra.Command, withSaver bool, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setupApp(ctx, withSaver)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

// validateCLIInputs checks flag values before any config is loaded.
func validateCLIInputs() error {
	if language != "" {
		if len(language) != 2 || !isAlpha(language) {
			return fmt.Errorf("invalid language code %q: must be a 2-letter ISO 639-1 code (e.g. es, en, fr)", language)
		}
	}
	if timeoutSec < 0 {
		return fmt.Errorf("invalid timeout %d: must be greater than 0", timeoutSec)
	}
	if logLevel != "" {
		switch strings.ToLower(logLevel) {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level %q: use debug, info, warn or error", logLevel)
		}
	}
	return nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if language != "" {
		cfg.Scraper.Language = strings.ToLower(language)
	}
	if timeoutSec > 0 {
		cfg.Scraper.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if maxRetries >= 0 {
		cfg.Scraper.MaxRetries = maxRetries
	}
	if parserName != "" {
		cfg.Scraper.Parser = parserName
	}
	if userAgent != "" {
		cfg.Scraper.UserAgent = userAgent
	}
	if rateLimit >= 0 {
		cfg.Scraper.RateLimit = rateLimit
	}
	if logLevel != "" {
		cfg.Logging.Level = strings.ToLower(logLevel)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if logFormat != "" {
		cfg.Logging.Format = strings.ToLower(logFormat)
	}
	if metricsOn {
		cfg.Metrics.Enabled = true
	}
	if getStorage != "" {
		cfg.Storage.Type = strings.ToLower(getStorage)
	}
	if getOutputDir != "" {
		cfg.Storage.OutputDir = getOutputDir
	}
	if getEncoding != "" {
		cfg.Storage.Encoding = strings.ToLower(getEncoding)
	}
	if mapLinkLimit >= 0 {
		cfg.Mapper.LinkLimit = mapLinkLimit
	}
	if mapNamespace != namespaceFromConfig {
		cfg.Mapper.Namespace = mapNamespace
	}
}

// setupLogger creates a structured logger from the logging config. The
// returned func closes the log file when output is a path.
func setupLogger(lc config.LoggingConfig) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: parseLevel(lc.Level)}
	noop := func() error { return nil }

	var w io.Writer
	closeFn := noop
	switch lc.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(lc.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, noop, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}

	var handler slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), closeFn, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
