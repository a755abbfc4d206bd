package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"keyword-agent/pkg/logger"
)

var ErrNoToken = errors.New("forecast token is not configured")

type ForecastClientConfig struct {
	Endpoint       string
	Token          string
	AcceptLanguage string
	Timeout        time.Duration
	// RequestsPerSecond caps outgoing calls; 0 disables the limit.
	RequestsPerSecond float64
}

// ForecastClient asks the Yandex Direct forecast API for impressions of one
// keyword per call.
type ForecastClient struct {
	config  ForecastClientConfig
	conn    *ConnectionManager
	limiter *rate.Limiter
	log     *logger.Logger
}

func NewForecastClient(config ForecastClientConfig, conn *ConnectionManager) *ForecastClient {
	if config.AcceptLanguage == "" {
		config.AcceptLanguage = "ru"
	}
	client := &ForecastClient{
		config: config,
		conn:   conn,
		log:    logger.GetLogger().WithField("component", "forecast_client"),
	}
	if config.RequestsPerSecond > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	return client
}

type selectionCriteria struct {
	GeoID    []int    `json:"GeoID,omitempty"`
	Keywords []string `json:"Keywords"`
}

type forecastRequest struct {
	Method string `json:"method"`
	Params struct {
		SelectionCriteria selectionCriteria `json:"SelectionCriteria"`
	} `json:"params"`
}

// EstimateVolume returns nil plus a *SourceError on any failure. An empty
// geoIDs list sends an unscoped request.
func (c *ForecastClient) EstimateVolume(ctx context.Context, keyword string, geoIDs []int) (*int64, error) {
	if c.config.Token == "" {
		return nil, validationError(SourceForecast, keyword, ErrNoToken)
	}

	var payload forecastRequest
	payload.Method = "Get"
	payload.Params.SelectionCriteria = selectionCriteria{GeoID: geoIDs, Keywords: []string{keyword}}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, validationError(SourceForecast, keyword, fmt.Errorf("failed to encode request: %w", err))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(SourceForecast, keyword, fmt.Errorf("rate limiter: %w", err))
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.Endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept-Language", c.config.AcceptLanguage)
	req.Header.SetContentType("application/json; charset=utf-8")
	req.SetBody(body)

	start := time.Now()
	if err := c.conn.Do(ctx, req, resp, c.config.Timeout); err != nil {
		return nil, transportError(SourceForecast, keyword, fmt.Errorf("request failed: %w", err))
	}
	if !isSuccess(resp.StatusCode()) {
		return nil, statusError(SourceForecast, keyword, resp.StatusCode(), resp.Body())
	}

	impressions, err := ParseForecastResponse(resp.Body())
	if err != nil {
		var apiErr *ForecastAPIError
		if errors.As(err, &apiErr) {
			return nil, transportError(SourceForecast, keyword, err)
		}
		return nil, parseError(SourceForecast, keyword, err)
	}

	c.log.WithFields(map[string]interface{}{
		"impressions": *impressions,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Forecast received")
	return impressions, nil
}
