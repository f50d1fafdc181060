package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lawfinder-au/collector-cli/internal/resilience"
)

const maxBodyBytes = 512 * 1024

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
	FinalURL    string
}

// IsHTML reports whether the response looks like an HTML document.
func (r *Response) IsHTML() bool {
	return strings.Contains(r.ContentType, "text/html") ||
		strings.Contains(r.ContentType, "application/xhtml")
}

// Limiters holds one rate limiter per downstream host. The orchestrator
// constructs a single Limiters value and injects it into every source
// component so all callers share the same per-host budget. Not safe for
// concurrent registration; the pipeline is sequential by design.
type Limiters struct {
	mu       sync.Mutex
	byHost   map[string]*rate.Limiter
	fallback *rate.Limiter
}

// NewLimiters creates a registry with a fallback limit for unknown hosts.
func NewLimiters(fallbackRPS float64) *Limiters {
	return &Limiters{
		byHost:   make(map[string]*rate.Limiter),
		fallback: rate.NewLimiter(rate.Limit(fallbackRPS), 1),
	}
}

// Set registers a requests-per-second budget for a host.
func (l *Limiters) Set(host string, rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byHost[host] = rate.NewLimiter(rate.Limit(rps), 1)
}

// For returns the limiter governing the given URL's host.
func (l *Limiters) For(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return l.fallback
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.byHost[u.Host]; ok {
		return lim
	}
	return l.fallback
}

// Options configures the Client.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxAttempts  int
	MaxRedirects int
}

// Client fetches URLs through per-host rate limiters with retry and
// exponential backoff on transient failures. Non-retryable responses (4xx
// other than 429) surface immediately as PermanentError.
type Client struct {
	http     *http.Client
	opts     Options
	limiters *Limiters
	retry    resilience.RetryConfig
}

// New creates a Client sharing the given limiter registry.
func New(limiters *Limiters, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = 5
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; LawfinderBot/1.0)"
	}

	maxRedirects := opts.MaxRedirects
	hc := &http.Client{
		Timeout: opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return eris.Errorf("fetcher: stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = opts.MaxAttempts

	return &Client{
		http:     hc,
		opts:     opts,
		limiters: limiters,
		retry:    retry,
	}
}

// Get fetches a URL. Each attempt waits on the host's rate limiter first,
// so backoff sleeps never let a caller jump the per-host queue.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("fetcher", rawURL)

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*Response, error) {
		return c.once(ctx, rawURL)
	})
}

func (c *Client) once(ctx context.Context, rawURL string) (*Response, error) {
	if err := c.limiters.For(rawURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, resilience.NewPermanentError(eris.Wrap(err, "fetcher: create request"), 0)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read body %s", rawURL)
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		zap.L().Warn("fetcher: transient status",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
		)
		return nil, resilience.NewTransientError(
			eris.Errorf("fetcher: status %d from %s", resp.StatusCode, rawURL),
			resp.StatusCode,
		)
	}

	if resp.StatusCode >= 400 {
		return nil, resilience.NewPermanentError(
			eris.Errorf("fetcher: status %d from %s", resp.StatusCode, rawURL),
			resp.StatusCode,
		)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL,
	}, nil
}
