// Package places is a client for the Google Places API (New) text search,
// covering the fields the directory pipeline consumes.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/lawfinder-au/collector-cli/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// fieldMask lists every place field the pipeline reads. Requesting more
// costs more per call.
var fieldMask = strings.Join([]string{
	"places.id",
	"places.displayName",
	"places.formattedAddress",
	"places.nationalPhoneNumber",
	"places.internationalPhoneNumber",
	"places.websiteUri",
	"places.rating",
	"places.userRatingCount",
	"places.regularOpeningHours",
	"places.location",
	"places.businessStatus",
	"places.googleMapsUri",
	"nextPageToken",
}, ",")

// Client performs Places API text searches.
type Client interface {
	// TextSearch fetches a single result page.
	TextSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error)

	// SearchPages follows nextPageToken up to maxPages. On a page failure
	// past the retry budget it returns the places collected so far along
	// with the error, so callers can keep partial results.
	SearchPages(ctx context.Context, req SearchRequest, maxPages int) ([]Place, error)
}

// SearchRequest parameterises one text search.
type SearchRequest struct {
	Query     string
	Latitude  float64
	Longitude float64
	RadiusM   float64
	PageToken string
}

// SearchResponse is one page of text search results.
type SearchResponse struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"nextPageToken"`
}

// Place is a single result as returned by the API.
type Place struct {
	ID                       string        `json:"id"`
	DisplayName              DisplayName   `json:"displayName"`
	FormattedAddress         string        `json:"formattedAddress"`
	NationalPhoneNumber      string        `json:"nationalPhoneNumber"`
	InternationalPhoneNumber string        `json:"internationalPhoneNumber"`
	WebsiteURI               string        `json:"websiteUri"`
	Rating                   float64       `json:"rating"`
	UserRatingCount          int           `json:"userRatingCount"`
	RegularOpeningHours      *OpeningHours `json:"regularOpeningHours"`
	Location                 *LatLng       `json:"location"`
	BusinessStatus           string        `json:"businessStatus"`
	GoogleMapsURI            string        `json:"googleMapsUri"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// OpeningHours carries the human-readable weekday descriptions.
type OpeningHours struct {
	WeekdayDescriptions []string `json:"weekdayDescriptions"`
}

// LatLng is a geographic point.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLimiter sets the rate limiter governing API calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// WithRetry overrides the retry configuration.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(1, 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchRequest struct {
	TextQuery      string        `json:"textQuery"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
	MaxResultCount int           `json:"maxResultCount"`
	LanguageCode   string        `json:"languageCode"`
	PageToken      string        `json:"pageToken,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

func (c *httpClient) TextSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("places", "text_search")

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*SearchResponse, error) {
		return c.textSearchOnce(ctx, req)
	})
}

func (c *httpClient) textSearchOnce(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "places: rate limiter wait")
	}

	payload := textSearchRequest{
		TextQuery:      req.Query,
		MaxResultCount: 20, // API maximum per page
		LanguageCode:   "en",
		PageToken:      req.PageToken,
	}
	if req.RadiusM > 0 {
		payload.LocationBias = &locationBias{
			Circle: circle{
				Center: LatLng{Latitude: req.Latitude, Longitude: req.Longitude},
				Radius: req.RadiusM,
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, resilience.NewPermanentError(
			eris.Errorf("places: credential rejected (%d): %s", resp.StatusCode, string(respBody)),
			resp.StatusCode,
		)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("places: status %d: %s", resp.StatusCode, string(respBody)),
			resp.StatusCode,
		)
	default:
		return nil, resilience.NewPermanentError(
			eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody)),
			resp.StatusCode,
		)
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, resilience.NewPermanentError(eris.Wrap(err, "places: unmarshal response"), resp.StatusCode)
	}

	return &result, nil
}

func (c *httpClient) SearchPages(ctx context.Context, req SearchRequest, maxPages int) ([]Place, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	var all []Place
	token := ""
	for page := 0; page < maxPages; page++ {
		pageReq := req
		pageReq.PageToken = token

		resp, err := c.TextSearch(ctx, pageReq)
		if err != nil {
			// Keep whatever earlier pages produced.
			return all, eris.Wrapf(err, "places: page %d", page+1)
		}

		all = append(all, resp.Places...)
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}

	return all, nil
}
