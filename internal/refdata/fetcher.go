// Package refdata builds the CFOP reference dataset from the CONFAZ
// publication.
package refdata

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/ppiankov/fiscalia/internal/cache"
	"github.com/ppiankov/fiscalia/internal/logging"
	"github.com/ppiankov/fiscalia/internal/model"
	"github.com/ppiankov/fiscalia/internal/util"
	"github.com/ppiankov/fiscalia/internal/worker"
)

// DefaultURLs is the CONFAZ CFOP table, HTTPS first with HTTP as fallback
var DefaultURLs = []string{
	"https://www.confaz.fazenda.gov.br/legislacao/ajustes/sinief/cfop_cvsn_70_vigente",
	"http://www.confaz.fazenda.gov.br/legislacao/ajustes/sinief/cfop_cvsn_70_vigente",
}

// ErrDisallowed is returned when robots.txt forbids a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

const maxAttempts = 3

// fetchSleepFunc is replaced in tests to skip backoff
var fetchSleepFunc = time.Sleep

// Page is a fetched document decoded to UTF-8
type Page struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
	FromCache   bool
}

// Options are the optional collaborators of a Fetcher
type Options struct {
	Limiter  *worker.Limiter
	Robots   *util.RobotsChecker
	Cache    cache.Cache
	CacheTTL time.Duration
}

// Fetcher fetches HTML pages politely
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	opts       Options
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher from the http configuration section
func NewFetcher(cfg model.HTTPConfig, opts Options) *Fetcher {
	client := util.NewHTTPClient(int(cfg.Timeout/time.Second), cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	if transport, ok := client.Transport.(*http.Transport); ok && cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for hosts with broken chains
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 5_000_000
	}
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}

	return &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		opts:       opts,
		logger:     logging.New("refdata"),
	}
}

// HTTPClient returns the client used for page requests
func (f *Fetcher) HTTPClient() *http.Client {
	return f.httpClient
}

// Fetch retrieves one page, consulting the cache, robots.txt and the rate
// limiter in that order
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	key := cache.CacheKey(rawURL)
	if data, ok := f.opts.Cache.Get(key); ok {
		f.logger.Debug("cache hit", "url", rawURL)
		return &Page{URL: rawURL, HTML: string(data), StatusCode: http.StatusOK, FromCache: true}, nil
	}

	if f.opts.Robots != nil {
		allowed, _, err := f.opts.Robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	if f.opts.Limiter != nil {
		if err := f.opts.Limiter.Pace(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBytes), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if err := f.opts.Cache.Set(key, data, f.opts.CacheTTL); err != nil {
		f.logger.Warn("cache write failed", "url", rawURL, "error", err)
	}

	return &Page{
		URL:         resp.Request.URL.String(),
		HTML:        string(data),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
	}, nil
}

// FetchWithRetry retries transient failures (network errors, 429 and 5xx)
// with exponential backoff, up to three attempts
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Page, error) {
	var lastErr error
	backoff := time.Second

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		page, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || ctx.Err() != nil || attempt == maxAttempts {
			break
		}

		f.logger.Warn("fetch failed, retrying", "url", rawURL, "attempt", attempt, "error", err)
		fetchSleepFunc(backoff)
		backoff *= 2
	}

	return nil, lastErr
}

// FetchFirst returns the first URL in urls that can be fetched
func (f *Fetcher) FetchFirst(ctx context.Context, urls []string) (*Page, error) {
	if len(urls) == 0 {
		return nil, errors.New("no URLs to fetch")
	}

	var errs []error
	for _, u := range urls {
		f.logger.Info("fetching", "url", u)
		page, err := f.FetchWithRetry(ctx, u)
		if err == nil {
			return page, nil
		}
		f.logger.Warn("fetch failed", "url", u, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", u, err))
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("all sources failed: %w", errors.Join(errs...))
}

// isRetryableFetchError reports whether err is worth another attempt
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	if strings.HasPrefix(msg, "fetch: ") {
		return true
	}
	if rest, ok := strings.CutPrefix(msg, "unexpected status: "); ok {
		return strings.HasPrefix(rest, "429") || strings.HasPrefix(rest, "5")
	}
	return false
}
