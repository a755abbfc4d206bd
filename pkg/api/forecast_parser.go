package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ForecastAPIError is the error object the forecast API returns with HTTP 200.
type ForecastAPIError struct {
	Code   int    `json:"error_code"`
	String string `json:"error_string"`
	Detail string `json:"error_detail"`
}

func (e *ForecastAPIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("forecast API error %d: %s (%s)", e.Code, e.String, e.Detail)
	}
	return fmt.Sprintf("forecast API error %d: %s", e.Code, e.String)
}

type forecastResponse struct {
	Result *struct {
		Forecast *struct {
			Impressions *json.Number `json:"Impressions"`
		} `json:"Forecast"`
	} `json:"result"`
	Error *ForecastAPIError `json:"error"`
}

// ParseForecastResponse reads result.Forecast.Impressions. Fractional values
// are rounded; a missing field is an error, never zero.
func ParseForecastResponse(body []byte) (*int64, error) {
	if len(body) == 0 {
		return nil, errors.New("empty forecast response")
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w (response: %s)", err, truncate(body, 200))
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Result == nil || resp.Result.Forecast == nil || resp.Result.Forecast.Impressions == nil {
		return nil, errors.New("response has no result.Forecast.Impressions")
	}

	n := *resp.Result.Forecast.Impressions
	if v, err := n.Int64(); err == nil {
		return &v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("impressions %q is not a number: %w", n, err)
	}
	v := int64(math.Round(f))
	return &v, nil
}
