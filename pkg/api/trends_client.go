package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"keyword-agent/pkg/logger"
)

const (
	defaultTrendsUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	MinTimeframeMonths = 1
	MaxTimeframeMonths = 12
)

type TrendsClientConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// TZOffset is sent as the tz parameter (minutes, Moscow = 180).
	TZOffset int
}

// TrendsClient reads the related-queries widget of Google Trends explore.
type TrendsClient struct {
	config TrendsClientConfig
	conn   *ConnectionManager
	log    *logger.Logger
}

func NewTrendsClient(config TrendsClientConfig, conn *ConnectionManager) *TrendsClient {
	if config.UserAgent == "" {
		config.UserAgent = defaultTrendsUserAgent
	}
	return &TrendsClient{
		config: config,
		conn:   conn,
		log:    logger.GetLogger().WithField("component", "trends_client"),
	}
}

// Timeframe renders a trailing window of N months, e.g. "today 6-m".
func Timeframe(months int) string {
	return fmt.Sprintf("today %d-m", months)
}

// FetchRelated returns the "top" related queries in upstream order. A missing
// related-queries widget or an empty table is not an error.
func (c *TrendsClient) FetchRelated(ctx context.Context, seed, geo string, months int, lang string) ([]Candidate, error) {
	if months < MinTimeframeMonths || months > MaxTimeframeMonths {
		return []Candidate{}, validationError(SourceTrends, seed,
			fmt.Errorf("timeframe must be %d-%d months, got %d", MinTimeframeMonths, MaxTimeframeMonths, months))
	}

	start := time.Now()
	cookie := c.fetchCookie(ctx, geo)

	widget, err := c.explore(ctx, seed, geo, Timeframe(months), lang, cookie)
	if err != nil {
		return []Candidate{}, err
	}
	if widget == nil {
		c.log.WithField("geo", geo).Debug("No related queries widget in explore response")
		return []Candidate{}, nil
	}

	candidates, err := c.relatedSearches(ctx, seed, lang, widget, cookie)
	if err != nil {
		return []Candidate{}, err
	}

	c.log.WithFields(map[string]interface{}{
		"geo":         geo,
		"count":       len(candidates),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Related queries fetched")
	return candidates, nil
}

// fetchCookie obtains the NID cookie the explore API expects. Failures are
// ignored; explore may still answer without it.
func (c *TrendsClient) fetchCookie(ctx context.Context, geo string) string {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + "/trends/explore?geo=" + url.QueryEscape(geo))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(c.config.UserAgent)

	if err := c.conn.Do(ctx, req, resp, c.config.Timeout); err != nil {
		c.log.WithError(err).Debug("Cookie bootstrap failed")
		return ""
	}

	var nid string
	resp.Header.VisitAllCookie(func(key, value []byte) {
		if string(key) != "NID" {
			return
		}
		cookie := fasthttp.AcquireCookie()
		defer fasthttp.ReleaseCookie(cookie)
		if err := cookie.ParseBytes(value); err == nil {
			nid = string(cookie.Value())
		}
	})
	return nid
}

func (c *TrendsClient) explore(ctx context.Context, seed, geo, timeframe, lang, cookie string) (*ExploreWidget, error) {
	payload, err := json.Marshal(exploreRequest{
		ComparisonItem: []comparisonItem{{Keyword: seed, Time: timeframe, Geo: geo}},
		Category:       0,
		Property:       "",
	})
	if err != nil {
		return nil, validationError(SourceTrends, seed, fmt.Errorf("failed to encode explore request: %w", err))
	}

	params := c.baseParams(lang)
	params.Set("req", string(payload))

	body, err := c.get(ctx, seed, "/trends/api/explore?"+params.Encode(), cookie)
	if err != nil {
		return nil, err
	}

	widget, err := ParseExploreResponse(body)
	if err != nil {
		return nil, parseError(SourceTrends, seed, err)
	}
	return widget, nil
}

func (c *TrendsClient) relatedSearches(ctx context.Context, seed, lang string, widget *ExploreWidget, cookie string) ([]Candidate, error) {
	params := c.baseParams(lang)
	params.Set("req", string(widget.Request))
	params.Set("token", widget.Token)

	body, err := c.get(ctx, seed, "/trends/api/widgetdata/relatedsearches?"+params.Encode(), cookie)
	if err != nil {
		return nil, err
	}

	candidates, err := ParseRelatedSearches(body)
	if err != nil {
		return nil, parseError(SourceTrends, seed, err)
	}
	return candidates, nil
}

func (c *TrendsClient) baseParams(lang string) url.Values {
	params := url.Values{}
	params.Set("hl", lang)
	params.Set("tz", strconv.Itoa(c.config.TZOffset))
	return params
}

func (c *TrendsClient) get(ctx context.Context, seed, pathAndQuery, cookie string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + pathAndQuery)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(c.config.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if cookie != "" {
		req.Header.SetCookie("NID", cookie)
	}

	if err := c.conn.Do(ctx, req, resp, c.config.Timeout); err != nil {
		return nil, transportError(SourceTrends, seed, fmt.Errorf("request failed: %w", err))
	}
	if !isSuccess(resp.StatusCode()) {
		return nil, statusError(SourceTrends, seed, resp.StatusCode(), resp.Body())
	}
	return copyBody(resp), nil
}
