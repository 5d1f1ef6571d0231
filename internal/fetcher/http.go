package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/IshaanNene/wikiscraper/internal/config"
	"github.com/IshaanNene/wikiscraper/internal/observability"
	"github.com/IshaanNene/wikiscraper/internal/types"
)

// ErrClientClosed is returned by Fetch after Close.
var ErrClientClosed = errors.New("http client is closed")

// retryStatuses are the response codes worth another attempt.
var retryStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// maxRetryAfter caps how long a 429 Retry-After header can stall a request.
const maxRetryAfter = 2 * time.Minute

// HTTPClient implements Fetcher over a single connection-reusing http.Client.
// It is not safe for concurrent use.
type HTTPClient struct {
	client  *http.Client
	cfg     config.ScraperConfig
	limiter *rate.Limiter
	metrics *observability.Metrics
	logger  *slog.Logger
	closed  atomic.Bool

	// sleep is replaced in tests to skip backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHTTPClient creates the HTTP client core. metrics may be nil.
func NewHTTPClient(cfg config.ScraperConfig, metrics *observability.Metrics, logger *slog.Logger) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, types.NewError(types.KindConfig, "new_http_client", "",
			errors.New("an identifying User-Agent with contact information is required"))
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 10
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        maxIdle,
		MaxIdleConnsPerHost: maxIdle,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decompression (including brotli) is done in readBody
	}

	c := &HTTPClient{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With("component", "http_client"),
		sleep:   sleepContext,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	c.client = &http.Client{
		Transport:     transport,
		Jar:           jar,
		CheckRedirect: c.checkRedirect,
	}

	return c, nil
}

// checkRedirect enforces the redirect ceiling and records every followed hop.
func (c *HTTPClient) checkRedirect(req *http.Request, via []*http.Request) error {
	hops := len(via)
	if hops > c.cfg.MaxRedirects {
		return fmt.Errorf("%w: more than %d", types.ErrTooManyRedirects, c.cfg.MaxRedirects)
	}
	if c.metrics != nil {
		c.metrics.RedirectsTotal.Add(1)
	}
	c.logger.Warn("following redirect",
		"hop", hops,
		"from", via[hops-1].URL.String(),
		"to", req.URL.String(),
	)
	return nil
}

// Fetch performs req with retries and exponential backoff.
// Only idempotent requests are retried.
func (c *HTTPClient) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if c.closed.Load() {
		return nil, types.NewError(types.KindConfig, "fetch", req.URL, ErrClientClosed)
	}

	fullURL, err := req.FullURL()
	if err != nil {
		return nil, types.NewError(types.KindValidation, "fetch", req.URL, err)
	}

	maxAttempts := 1
	if req.Idempotent() {
		maxAttempts += c.cfg.MaxRetries
	}

	var (
		lastErr    *types.Error
		retryAfter time.Duration
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			if retryAfter > delay {
				delay = retryAfter
			}
			if c.metrics != nil {
				c.metrics.RequestsRetried.Add(1)
			}
			c.logger.Warn("retrying request",
				"url", fullURL,
				"attempt", attempt+1,
				"max_attempts", maxAttempts,
				"status", lastErr.StatusCode,
				"delay", delay,
				"error", lastErr.Err,
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, c.fail(&types.Error{
					Kind: types.KindTransient, Op: "fetch", Target: fullURL,
					Attempts: attempt, Err: err,
				})
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, c.fail(&types.Error{
					Kind: types.KindTransient, Op: "fetch", Target: fullURL,
					Attempts: attempt, Err: err,
				})
			}
		}

		resp, ra, ferr := c.do(ctx, req, fullURL)
		if ferr == nil {
			resp.Attempts = attempt + 1
			return resp, nil
		}
		ferr.Attempts = attempt + 1
		lastErr = ferr
		retryAfter = ra

		if !ferr.Retryable() || ctx.Err() != nil {
			break
		}
	}

	return nil, c.fail(lastErr)
}

func (c *HTTPClient) fail(err *types.Error) error {
	if c.metrics != nil {
		c.metrics.RequestsFailed.Add(1)
	}
	c.logger.Error("request failed",
		"url", err.Target,
		"kind", err.Kind.String(),
		"status", err.StatusCode,
		"attempts", err.Attempts,
		"error", err.Err,
	)
	return err
}

// do performs a single attempt. The second return value is the server-requested
// delay before the next attempt, if any.
func (c *HTTPClient) do(ctx context.Context, req *types.Request, fullURL string) (*types.Response, time.Duration, *types.Error) {
	timeout := c.cfg.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, method, fullURL, nil)
	if err != nil {
		return nil, 0, types.NewError(types.KindValidation, "fetch", fullURL, err)
	}

	httpReq.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}
	// Set last so per-request headers cannot drop the identifying agent.
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)

	if c.metrics != nil {
		c.metrics.RequestsTotal.Add(1)
	}

	start := time.Now()
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, 0, c.classifyTransportError(ctx, fullURL, err)
	}
	defer httpResp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordStatus(httpResp.StatusCode)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		statusErr := fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(snippet)))
		if retryStatuses[httpResp.StatusCode] {
			var ra time.Duration
			if httpResp.StatusCode == http.StatusTooManyRequests {
				ra = parseRetryAfter(httpResp.Header.Get("Retry-After"))
			}
			return nil, ra, &types.Error{
				Kind: types.KindTransient, Op: "fetch", Target: fullURL,
				StatusCode: httpResp.StatusCode, Err: statusErr,
			}
		}
		return nil, 0, &types.Error{
			Kind: types.KindHTTPStatus, Op: "fetch", Target: fullURL,
			StatusCode: httpResp.StatusCode, Err: statusErr,
		}
	}

	body, err := c.readBody(httpResp)
	if errors.Is(err, types.ErrBodyTooLarge) {
		c.logger.Warn("response body too large", "url", fullURL, "max_body_size", c.cfg.MaxBodySize)
		return nil, 0, &types.Error{
			Kind: types.KindParse, Op: "fetch", Target: fullURL,
			StatusCode: httpResp.StatusCode, Err: err,
		}
	}
	if err != nil {
		return nil, 0, c.classifyTransportError(ctx, fullURL, err)
	}
	duration := time.Since(start)

	resp := types.NewResponse(httpResp, body, duration)
	if c.metrics != nil {
		c.metrics.BytesDownloaded.Add(int64(len(body)))
	}
	if resp.Redirects > 0 {
		c.logger.Warn("request was redirected",
			"hops", resp.Redirects,
			"final_url", resp.FinalURL,
		)
	}

	c.logger.Debug("fetch complete",
		"url", fullURL,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", duration,
	)

	return resp, 0, nil
}

// classifyTransportError maps a client or body-read failure to a typed error.
// Per-attempt timeouts are retryable; cancellation of the caller's context is not.
func (c *HTTPClient) classifyTransportError(ctx context.Context, target string, err error) *types.Error {
	if errors.Is(err, types.ErrTooManyRedirects) {
		c.logger.Warn("redirect limit exceeded", "url", target, "max_redirects", c.cfg.MaxRedirects)
		return types.NewError(types.KindRedirectLimit, "fetch", target, err)
	}
	if ctx.Err() != nil {
		return types.NewError(types.KindTransient, "fetch", target, ctx.Err())
	}
	c.logger.Debug("transient network error", "url", target, "cause", transientCause(err), "error", err)
	return types.NewError(types.KindTransient, "fetch", target, err)
}

// readBody reads the decompressed body. A body larger than the configured
// cap fails with ErrBodyTooLarge instead of being cut short.
func (c *HTTPClient) readBody(resp *http.Response) ([]byte, error) {
	reader, err := decompressReader(resp, resp.Body)
	if err != nil {
		return nil, err
	}
	if closer, ok := reader.(io.Closer); ok && reader != io.Reader(resp.Body) {
		defer closer.Close()
	}
	if c.cfg.MaxBodySize <= 0 {
		return io.ReadAll(reader)
	}
	body, err := io.ReadAll(io.LimitReader(reader, c.cfg.MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.cfg.MaxBodySize {
		return nil, fmt.Errorf("%w: more than %d bytes", types.ErrBodyTooLarge, c.cfg.MaxBodySize)
	}
	return body, nil
}

// backoff returns base * 2^retry.
func (c *HTTPClient) backoff(retry int) time.Duration {
	if retry > 16 {
		retry = 16
	}
	return c.cfg.BackoffBase * time.Duration(1<<uint(retry))
}

// Close releases idle connections. Fetch fails after Close.
func (c *HTTPClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.client.CloseIdleConnections()
	c.logger.Debug("http client closed")
	return nil
}

// Type returns the fetcher type identifier.
func (c *HTTPClient) Type() string {
	return "http"
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// transientCause names the kind of network failure for logs.
func transientCause(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return "eof"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) {
			return "connection_reset"
		}
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return "connection_refused"
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	return "network"
}

// parseRetryAfter parses the Retry-After header value.
// Supports both integer seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		d := time.Duration(secs) * time.Second
		if d > maxRetryAfter {
			return maxRetryAfter
		}
		if d < 0 {
			return 0
		}
		return d
	}
	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		if d > maxRetryAfter {
			return maxRetryAfter
		}
		return d
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
