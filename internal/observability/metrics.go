package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters for a scraper session.
type Metrics struct {
	// Request metrics
	RequestsTotal   atomic.Int64
	RequestsFailed  atomic.Int64
	RequestsRetried atomic.Int64
	RedirectsTotal  atomic.Int64

	// Response metrics
	ResponsesTotal  atomic.Int64
	Responses2xx    atomic.Int64
	Responses3xx    atomic.Int64
	Responses4xx    atomic.Int64
	Responses5xx    atomic.Int64
	BytesDownloaded atomic.Int64

	// Wiki metrics
	APIQueries    atomic.Int64
	PagesFetched  atomic.Int64
	PagesExpanded atomic.Int64
	PagesSaved    atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// RecordStatus counts a received response by status class.
func (m *Metrics) RecordStatus(code int) {
	if m == nil {
		return
	}
	m.ResponsesTotal.Add(1)
	switch {
	case code >= 500:
		m.Responses5xx.Add(1)
	case code >= 400:
		m.Responses4xx.Add(1)
	case code >= 300:
		m.Responses3xx.Add(1)
	case code >= 200:
		m.Responses2xx.Add(1)
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"wikiscraper_requests_total", "Total HTTP attempts made", m.RequestsTotal.Load()},
		{"wikiscraper_requests_failed_total", "Total requests that failed after all attempts", m.RequestsFailed.Load()},
		{"wikiscraper_requests_retried_total", "Total retried attempts", m.RequestsRetried.Load()},
		{"wikiscraper_redirects_total", "Total redirect hops followed", m.RedirectsTotal.Load()},
		{"wikiscraper_responses_total", "Total responses received", m.ResponsesTotal.Load()},
		{"wikiscraper_responses_2xx_total", "Total 2xx responses", m.Responses2xx.Load()},
		{"wikiscraper_responses_3xx_total", "Total 3xx responses", m.Responses3xx.Load()},
		{"wikiscraper_responses_4xx_total", "Total 4xx responses", m.Responses4xx.Load()},
		{"wikiscraper_responses_5xx_total", "Total 5xx responses", m.Responses5xx.Load()},
		{"wikiscraper_bytes_downloaded_total", "Total decoded bytes downloaded", m.BytesDownloaded.Load()},
		{"wikiscraper_api_queries_total", "Total MediaWiki API queries", m.APIQueries.Load()},
		{"wikiscraper_pages_fetched_total", "Total HTML pages fetched", m.PagesFetched.Load()},
		{"wikiscraper_pages_expanded_total", "Total pages expanded by the link mapper", m.PagesExpanded.Load()},
		{"wikiscraper_pages_saved_total", "Total pages saved to storage", m.PagesSaved.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server in the background.
// The returned server can be passed to Shutdown.
func (m *Metrics) StartServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}

// Shutdown stops a server started by StartServer.
func (m *Metrics) Shutdown(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"requests_total":   m.RequestsTotal.Load(),
		"requests_failed":  m.RequestsFailed.Load(),
		"requests_retried": m.RequestsRetried.Load(),
		"redirects":        m.RedirectsTotal.Load(),
		"responses_total":  m.ResponsesTotal.Load(),
		"responses_2xx":    m.Responses2xx.Load(),
		"responses_4xx":    m.Responses4xx.Load(),
		"responses_5xx":    m.Responses5xx.Load(),
		"bytes_downloaded": m.BytesDownloaded.Load(),
		"api_queries":      m.APIQueries.Load(),
		"pages_fetched":    m.PagesFetched.Load(),
		"pages_expanded":   m.PagesExpanded.Load(),
		"pages_saved":      m.PagesSaved.Load(),
	}
}
