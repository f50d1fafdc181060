// Package geocode resolves city names to coordinates via the Google
// Geocoding API, used to bias place searches toward the target city.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/lawfinder-au/collector-cli/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Client geocodes free-text addresses.
type Client interface {
	// Geocode resolves an address. Matched=false (with nil error) means the
	// provider found nothing; callers should skip rather than fail.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output.
type Result struct {
	Latitude  float64
	Longitude float64
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithLimiter sets the rate limiter governing API calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *geocoder) {
		g.limiter = l
	}
}

type geocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a geocoding Client.
func NewClient(apiKey string, opts ...Option) Client {
	g := &geocoder{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	retry := g.retry
	retry.OnRetry = resilience.RetryLogger("geocode", address)

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*Result, error) {
		return g.geocodeOnce(ctx, address)
	})
}

func (g *geocoder) geocodeOnce(ctx context.Context, address string) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limiter wait")
	}

	params := url.Values{}
	params.Set("address", address)
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: create request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: request for %q", address)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read response")
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("geocode: status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewPermanentError(
			eris.Errorf("geocode: status %d: %s", resp.StatusCode, string(body)), resp.StatusCode)
	}

	var gr geocodeResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, eris.Wrap(err, "geocode: unmarshal response")
	}

	// REQUEST_DENIED means a bad key; OVER_QUERY_LIMIT is retryable.
	switch gr.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &Result{Matched: false}, nil
	case "OVER_QUERY_LIMIT":
		return nil, resilience.NewTransientError(eris.New("geocode: over query limit"), 0)
	default:
		return nil, resilience.NewPermanentError(eris.Errorf("geocode: status %s", gr.Status), 0)
	}

	if len(gr.Results) == 0 {
		return &Result{Matched: false}, nil
	}

	loc := gr.Results[0].Geometry.Location
	return &Result{Latitude: loc.Lat, Longitude: loc.Lng, Matched: true}, nil
}
