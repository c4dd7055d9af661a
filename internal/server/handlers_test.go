package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/comparable-finder/internal/finder"
	"github.com/jonathan/comparable-finder/internal/store"
	"github.com/jonathan/comparable-finder/internal/types"
)

// fakeSearcher returns canned results and counts invocations.
type fakeSearcher struct {
	results []types.CandidateCompany
	err     error
	calls   int
}

func (f *fakeSearcher) Find(_ context.Context, _ types.TargetCompany) ([]types.CandidateCompany, error) {
	f.calls++
	return f.results, f.err
}

func goodResults() []types.CandidateCompany {
	return []types.CandidateCompany{
		{Name: "Alpha Corp", Ticker: "AL", Exchange: "NYSE", ProductsSimilarityScore: 8, CustomerSimilarityScore: 7},
		{Name: "Beta Inc", Ticker: "BT", Exchange: "NASDAQ", ProductsSimilarityScore: 9, CustomerSimilarityScore: 9},
		{Name: "Gamma Ltd", Ticker: "GM", Exchange: "LSE", ProductsSimilarityScore: 7, CustomerSimilarityScore: 6},
	}
}

func newTestServer(t *testing.T, searcher Searcher) (*Server, store.Store) {
	t.Helper()
	st := store.NewFileStore(filepath.Join(t.TempDir(), "history.json"))
	srv, err := New(Config{Port: 0, Store: st, Searcher: searcher})
	require.NoError(t, err)
	return srv, st
}

func searchBody() []byte {
	body, _ := json.Marshal(types.TargetCompany{
		Name:                          "Acme Analytics",
		URL:                           "https://acme.example.com",
		BusinessDescription:           "Acme Analytics builds cloud-hosted financial analytics software for mid-market banks and credit unions.",
		PrimaryIndustryClassification: "Financial Software",
	})
	return body
}

func doJSON(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	t.Run("successful search", func(t *testing.T) {
		searcher := &fakeSearcher{results: goodResults()}
		srv, _ := newTestServer(t, searcher)

		rec := doJSON(t, srv.Handler(), http.MethodPost, "/search", searchBody())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.FromCache)
		assert.Equal(t, 3, resp.CompanyCount)
		assert.Len(t, resp.Results, 3)
		assert.NotEmpty(t, resp.CacheKey)
	})

	t.Run("second identical search served from cache", func(t *testing.T) {
		searcher := &fakeSearcher{results: goodResults()}
		srv, _ := newTestServer(t, searcher)

		rec := doJSON(t, srv.Handler(), http.MethodPost, "/search", searchBody())
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, srv.Handler(), http.MethodPost, "/search", searchBody())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.FromCache)
		assert.Equal(t, 1, searcher.calls)
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeSearcher{})
		rec := doJSON(t, srv.Handler(), http.MethodPost, "/search", []byte("{not json"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeSearcher{})
		body, _ := json.Marshal(types.TargetCompany{Name: "X", URL: "not-a-url"})

		rec := doJSON(t, srv.Handler(), http.MethodPost, "/search", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "invalid target company")
	})

	t.Run("form-encoded submission", func(t *testing.T) {
		searcher := &fakeSearcher{results: goodResults()}
		srv, _ := newTestServer(t, searcher)

		form := url.Values{}
		form.Set("name", "Acme Analytics")
		form.Set("url", "https://acme.example.com")
		form.Set("business_description", "Acme Analytics builds cloud-hosted financial analytics software for mid-market banks and credit unions.")
		form.Set("primary_industry_classification", "Financial Software")

		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, searcher.calls)
	})

	t.Run("insufficient results maps to 422", func(t *testing.T) {
		searcher := &fakeSearcher{err: &finder.InsufficientResultsError{Found: 1, Min: 3}}
		srv, _ := newTestServer(t, searcher)

		rec := doJSON(t, srv.Handler(), http.MethodPost, "/search", searchBody())
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("API failure maps to 502", func(t *testing.T) {
		searcher := &fakeSearcher{err: &finder.APICallError{Message: "discovery query failed"}}
		srv, _ := newTestServer(t, searcher)

		rec := doJSON(t, srv.Handler(), http.MethodPost, "/search", searchBody())
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("failed search is not cached", func(t *testing.T) {
		searcher := &fakeSearcher{err: &finder.APICallError{Message: "boom"}}
		srv, _ := newTestServer(t, searcher)

		doJSON(t, srv.Handler(), http.MethodPost, "/search", searchBody())

		searcher.err = nil
		searcher.results = goodResults()
		rec := doJSON(t, srv.Handler(), http.MethodPost, "/search", searchBody())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.FromCache)
		assert.Equal(t, 2, searcher.calls)
	})
}

func TestHistoryEndpoints(t *testing.T) {
	seed := func(t *testing.T) (*Server, string) {
		t.Helper()
		srv, _ := newTestServer(t, &fakeSearcher{results: goodResults()})
		rec := doJSON(t, srv.Handler(), http.MethodPost, "/search", searchBody())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return srv, resp.CacheKey
	}

	t.Run("list returns summaries", func(t *testing.T) {
		srv, key := seed(t)

		rec := doJSON(t, srv.Handler(), http.MethodGet, "/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var summaries []store.Summary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
		require.Len(t, summaries, 1)
		assert.Equal(t, key, summaries[0].CacheKey)
		assert.Equal(t, "Acme Analytics", summaries[0].CompanyName)
		assert.Equal(t, 3, summaries[0].CompanyCount)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeSearcher{})
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("get one entry", func(t *testing.T) {
		srv, key := seed(t)

		rec := doJSON(t, srv.Handler(), http.MethodGet, "/history/"+key, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var entry store.CacheEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
		assert.Equal(t, key, entry.CacheKey)
		assert.Len(t, entry.Results, 3)
	})

	t.Run("get missing entry", func(t *testing.T) {
		srv, _ := seed(t)
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/history/deadbeef", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete entry", func(t *testing.T) {
		srv, key := seed(t)

		rec := doJSON(t, srv.Handler(), http.MethodDelete, "/history/"+key, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, srv.Handler(), http.MethodGet, "/history/"+key, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete missing entry", func(t *testing.T) {
		srv, _ := seed(t)
		rec := doJSON(t, srv.Handler(), http.MethodDelete, "/history/deadbeef", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("clear history", func(t *testing.T) {
		srv, _ := seed(t)

		rec := doJSON(t, srv.Handler(), http.MethodDelete, "/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ClearResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Deleted)

		rec = doJSON(t, srv.Handler(), http.MethodGet, "/history", nil)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	})
}

func TestHandleExport(t *testing.T) {
	seed := func(t *testing.T) (*Server, string) {
		t.Helper()
		srv, _ := newTestServer(t, &fakeSearcher{results: goodResults()})
		rec := doJSON(t, srv.Handler(), http.MethodPost, "/search", searchBody())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return srv, resp.CacheKey
	}

	t.Run("csv is the default format", func(t *testing.T) {
		srv, key := seed(t)

		rec := doJSON(t, srv.Handler(), http.MethodGet, "/history/"+key+"/export", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "comparables_acme_analytics.csv")
		assert.Contains(t, rec.Body.String(), "Alpha Corp")
	})

	t.Run("xlsx format", func(t *testing.T) {
		srv, key := seed(t)

		rec := doJSON(t, srv.Handler(), http.MethodGet, "/history/"+key+"/export?format=xlsx", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "comparables_acme_analytics.xlsx")
		assert.NotEmpty(t, rec.Body.Bytes())
	})

	t.Run("unsupported format", func(t *testing.T) {
		srv, key := seed(t)
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/history/"+key+"/export?format=pdf", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing entry", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeSearcher{})
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/history/deadbeef/export", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSearcher{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSearcher{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestExportFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercases and replaces spaces", input: "Acme Analytics Inc", expected: "acme_analytics_inc"},
		{name: "already clean", input: "acme", expected: "acme"},
		{name: "empty falls back", input: "  ", expected: "results"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exportFileName(tt.input))
		})
	}
}
