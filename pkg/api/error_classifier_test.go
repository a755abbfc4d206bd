package api

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected FailureClass
	}{
		{name: "nil error", err: nil, expected: ""},
		{
			name:     "canceled",
			err:      transportError(SourceSuggest, "q", fmt.Errorf("request failed: %w", context.Canceled)),
			expected: FailureCanceled,
		},
		{
			name:     "fasthttp timeout",
			err:      transportError(SourceTrends, "q", fmt.Errorf("request failed: %w", fasthttp.ErrTimeout)),
			expected: FailureTimeout,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			expected: FailureTimeout,
		},
		{
			name:     "HTTP 429",
			err:      statusError(SourceTrends, "q", 429, []byte("Too Many Requests")),
			expected: FailureRateLimited,
		},
		{
			name:     "HTTP 401",
			err:      statusError(SourceForecast, "q", 401, nil),
			expected: FailureAuth,
		},
		{
			name:     "HTTP 403",
			err:      statusError(SourceForecast, "q", 403, nil),
			expected: FailureAuth,
		},
		{
			name:     "HTTP 502",
			err:      statusError(SourceSuggest, "q", 502, nil),
			expected: FailureUpstream,
		},
		{
			name:     "forecast auth error object",
			err:      transportError(SourceForecast, "q", &ForecastAPIError{Code: 53, String: "Authorization error"}),
			expected: FailureAuth,
		},
		{
			name:     "forecast units exhausted",
			err:      transportError(SourceForecast, "q", &ForecastAPIError{Code: 152, String: "Not enough units"}),
			expected: FailureRateLimited,
		},
		{
			name:     "forecast other error object",
			err:      transportError(SourceForecast, "q", &ForecastAPIError{Code: 8000, String: "Invalid request"}),
			expected: FailureUpstream,
		},
		{
			name:     "parse error",
			err:      parseError(SourceSuggest, "q", errors.New("unexpected end of JSON input")),
			expected: FailureMalformed,
		},
		{
			name:     "missing token",
			err:      validationError(SourceForecast, "q", ErrNoToken),
			expected: FailureInvalidRequest,
		},
		{
			name:     "dial failure",
			err:      transportError(SourceSuggest, "q", errors.New("dial tcp 127.0.0.1:1: connect: connection refused")),
			expected: FailureConnection,
		},
		{
			name:     "other transport failure",
			err:      transportError(SourceSuggest, "q", errors.New("EOF")),
			expected: FailureConnection,
		},
		{
			name:     "plain error",
			err:      errors.New("something odd"),
			expected: FailureUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyFailure(tt.err))
		})
	}
}
