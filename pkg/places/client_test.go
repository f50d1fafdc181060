package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawfinder-au/collector-cli/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.InitialBackoff = 1
	cfg.MaxBackoff = 1
	return cfg
}

func page(places []Place, token string) []byte {
	b, _ := json.Marshal(SearchResponse{Places: places, NextPageToken: token})
	return b
}

func TestTextSearchSendsHeadersAndBody(t *testing.T) {
	t.Parallel()

	var gotKey, gotMask string
	var gotBody textSearchRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Goog-Api-Key")
		gotMask = r.Header.Get("X-Goog-FieldMask")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write(page([]Place{{ID: "p1"}}, "")) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("secret-key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	resp, err := c.TextSearch(context.Background(), SearchRequest{
		Query:     "medical negligence lawyer Sydney NSW",
		Latitude:  -33.87,
		Longitude: 151.21,
		RadiusM:   50000,
	})
	require.NoError(t, err)

	assert.Equal(t, "secret-key", gotKey)
	assert.Contains(t, gotMask, "places.id")
	assert.Contains(t, gotMask, "nextPageToken")

	assert.Equal(t, "medical negligence lawyer Sydney NSW", gotBody.TextQuery)
	assert.Equal(t, 20, gotBody.MaxResultCount)
	require.NotNil(t, gotBody.LocationBias)
	assert.InDelta(t, -33.87, gotBody.LocationBias.Circle.Center.Latitude, 0.001)
	assert.Equal(t, 50000.0, gotBody.LocationBias.Circle.Radius)

	require.Len(t, resp.Places, 1)
	assert.Equal(t, "p1", resp.Places[0].ID)
}

func TestTextSearchOmitsBiasWithoutRadius(t *testing.T) {
	t.Parallel()

	var gotBody textSearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write(page(nil, "")) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	_, err := c.TextSearch(context.Background(), SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Nil(t, gotBody.LocationBias)
}

func TestTextSearchRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(page([]Place{{ID: "p1"}}, "")) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	resp, err := c.TextSearch(context.Background(), SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Len(t, resp.Places, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTextSearchBadCredentialsNoRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	_, err := c.TextSearch(context.Background(), SearchRequest{Query: "q"})
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "credential rejected")
}

func TestSearchPagesFollowsTokens(t *testing.T) {
	t.Parallel()

	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req textSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		tokens = append(tokens, req.PageToken)

		switch req.PageToken {
		case "":
			w.Write(page([]Place{{ID: "a"}}, "tok-2")) //nolint:errcheck
		case "tok-2":
			w.Write(page([]Place{{ID: "b"}}, "tok-3")) //nolint:errcheck
		default:
			w.Write(page([]Place{{ID: "c"}}, "")) //nolint:errcheck
		}
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	all, err := c.SearchPages(context.Background(), SearchRequest{Query: "q"}, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "tok-2", "tok-3"}, tokens)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[2].ID)
}

func TestSearchPagesStopsAtMaxPages(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write(page([]Place{{ID: "x"}}, "more")) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	all, err := c.SearchPages(context.Background(), SearchRequest{Query: "q"}, 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchPagesKeepsPartialResultsOnFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write(page([]Place{{ID: "a"}}, "tok-2")) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRetry(fastRetry()))
	all, err := c.SearchPages(context.Background(), SearchRequest{Query: "q"}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")

	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ID)
}
