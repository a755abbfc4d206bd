package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"keyword-agent/pkg/logger"
)

type SuggestClientConfig struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
}

// SuggestClient calls the Yandex Suggest endpoint.
type SuggestClient struct {
	config SuggestClientConfig
	conn   *ConnectionManager
	log    *logger.Logger
}

func NewSuggestClient(config SuggestClientConfig, conn *ConnectionManager) *SuggestClient {
	if config.UserAgent == "" {
		config.UserAgent = "keyword-agent/1.0"
	}
	return &SuggestClient{
		config: config,
		conn:   conn,
		log:    logger.GetLogger().WithField("component", "suggest_client"),
	}
}

// FetchSuggestions never returns a nil slice; on failure it returns an empty
// slice and a *SourceError.
func (c *SuggestClient) FetchSuggestions(ctx context.Context, part, lang string, regionID int) ([]string, error) {
	params := url.Values{}
	params.Set("part", part)
	params.Set("lang", lang)
	params.Set("uil", lang)
	params.Set("v", "4")
	params.Set("search_type", "suggest")
	if regionID > 0 {
		params.Set("lr", strconv.Itoa(regionID))
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.Endpoint + "?" + params.Encode())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	if err := c.conn.Do(ctx, req, resp, c.config.Timeout); err != nil {
		return []string{}, transportError(SourceSuggest, part, fmt.Errorf("request failed: %w", err))
	}
	if !isSuccess(resp.StatusCode()) {
		return []string{}, statusError(SourceSuggest, part, resp.StatusCode(), resp.Body())
	}

	suggestions, err := ParseSuggestResponse(resp.Body())
	if err != nil {
		return []string{}, parseError(SourceSuggest, part, err)
	}

	c.log.WithFields(map[string]interface{}{
		"count":       len(suggestions),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Suggestions fetched")
	return suggestions, nil
}

// ParseSuggestResponse extracts the list at index 1 of the response array.
// Entries that are not plain strings are skipped.
func ParseSuggestResponse(body []byte) ([]string, error) {
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}

	var top []json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w (response: %s)", err, truncate(body, 200))
	}
	if len(top) < 2 {
		return nil, fmt.Errorf("response array has %d elements, want at least 2", len(top))
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(top[1], &entries); err != nil {
		return nil, fmt.Errorf("suggestion list is not an array: %w", err)
	}

	suggestions := make([]string, 0, len(entries))
	for _, raw := range entries {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			continue
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, nil
}
