package api

import (
	"context"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"
)

// FailureClass is a coarse, user-facing reason for an upstream failure.
type FailureClass string

const (
	FailureTimeout        FailureClass = "timeout"
	FailureConnection     FailureClass = "connection"
	FailureRateLimited    FailureClass = "rate_limited"
	FailureAuth           FailureClass = "authorization"
	FailureUpstream       FailureClass = "upstream_error"
	FailureMalformed      FailureClass = "malformed_response"
	FailureInvalidRequest FailureClass = "invalid_request"
	FailureCanceled       FailureClass = "canceled"
	FailureUnknown        FailureClass = "unknown"
)

// Forecast API error codes that say more than "the call failed".
const (
	forecastCodeAuth         = 53
	forecastCodeNoUnits      = 152
	forecastCodeTooManyCalls = 506
)

// ClassifyFailure maps an error returned by one of the clients to a
// FailureClass. A nil error yields "".
func ClassifyFailure(err error) FailureClass {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, fasthttp.ErrTimeout),
		errors.Is(err, fasthttp.ErrDialTimeout):
		return FailureTimeout
	}

	var apiErr *ForecastAPIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case forecastCodeAuth:
			return FailureAuth
		case forecastCodeNoUnits, forecastCodeTooManyCalls:
			return FailureRateLimited
		default:
			return FailureUpstream
		}
	}

	var se *SourceError
	if errors.As(err, &se) {
		switch se.Kind {
		case KindValidation:
			return FailureInvalidRequest
		case KindParse:
			return FailureMalformed
		}
		switch {
		case se.StatusCode == 401 || se.StatusCode == 403:
			return FailureAuth
		case se.StatusCode == 429:
			return FailureRateLimited
		case se.StatusCode != 0:
			return FailureUpstream
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return FailureTimeout
	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "dial"),
		strings.Contains(msg, "dns"),
		strings.Contains(msg, "no such host"):
		return FailureConnection
	}
	if se != nil {
		return FailureConnection
	}
	return FailureUnknown
}
