package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyword-agent/internal/config"
	"keyword-agent/pkg/research"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/trends/explore", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/trends/api/explore", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(")]}'\n" + `{"widgets":[{"id":"RELATED_QUERIES","token":"tok","request":{"k":1}}]}`))
	})
	mux.HandleFunc("/trends/api/widgetdata/relatedsearches", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(")]}',\n" + `{"default":{"rankedList":[{"rankedKeyword":[
			{"query":"жалюзи на окна","value":40},
			{"query":"жалюзи рулонные","value":100},
			{"query":"жалюзи купить","value":70}
		]}]}}`))
	})
	mux.HandleFunc("/suggest", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["жалюзи", ["жалюзи рулонные","жалюзи вертикальные"]]`))
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"Forecast":{"Impressions":500}}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, baseURL, token string) *config.Config {
	t.Helper()
	cfg, err := config.NewManager().Load("")
	require.NoError(t, err)
	cfg.Trends.BaseURL = baseURL
	cfg.Trends.Timeout = 2 * time.Second
	cfg.Suggest.Endpoint = baseURL + "/suggest"
	cfg.Forecast.Endpoint = baseURL + "/forecast"
	cfg.Forecast.Token = token
	return cfg
}

func TestNew_EndToEnd(t *testing.T) {
	server := upstream(t)
	a, err := New(testConfig(t, server.URL, "test-token"))
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Aggregator.Run(context.Background(), research.Request{Keyword: " жалюзи ", Limit: 2})
	require.NoError(t, err)

	require.Len(t, report.Trends.Items, 2)
	assert.Equal(t, "жалюзи рулонные", report.Trends.Items[0].Text)
	assert.Equal(t, "жалюзи купить", report.Trends.Items[1].Text)
	for _, item := range report.Trends.Items {
		require.NotNil(t, item.MonthlySearches)
		assert.Equal(t, int64(500), *item.MonthlySearches)
	}
	assert.Equal(t, 3, report.Trends.Total)
	assert.Equal(t, []research.SuggestionRecord{{Text: "жалюзи рулонные"}, {Text: "жалюзи вертикальные"}}, report.Suggestions.Items)
	assert.Empty(t, report.Notices)
}

func TestNew_WithoutTokenSkipsEnrichment(t *testing.T) {
	server := upstream(t)
	a, err := New(testConfig(t, server.URL, ""))
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Aggregator.Run(context.Background(), research.Request{Keyword: "жалюзи"})
	require.NoError(t, err)

	require.Len(t, report.Trends.Items, 3)
	for _, item := range report.Trends.Items {
		assert.Nil(t, item.MonthlySearches)
	}
	require.Len(t, report.Warnings(), 1)
	assert.Contains(t, report.Warnings()[0].Message, "no forecast client configured")
}

func TestNew_RejectsBadCatalog(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", "")
	cfg.Regions = append(cfg.Regions, config.RegionConfig{Name: "russia", TrendsGeo: "RU"})

	_, err := New(cfg)
	assert.ErrorContains(t, err, "duplicate region")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", "")
	cfg.Research.ScopeSuggestions = true
	cfg.Forecast.GeoScoped = false
	cfg.Forecast.Workers = 3

	opts := OptionsFromConfig(cfg)
	assert.True(t, opts.Enrich)
	assert.True(t, opts.SortByScore)
	assert.True(t, opts.ScopeSuggestions)
	assert.False(t, opts.GeoScopedVolume)
	assert.Equal(t, 3, opts.EnrichWorkers)
	assert.Equal(t, research.Request{Region: "Russia", Language: "Russian", Months: 6, Limit: 20}, opts.Defaults)
}
