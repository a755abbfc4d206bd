package api

import (
	"errors"
	"fmt"
)

// Source names an upstream service in errors and notices.
type Source string

const (
	SourceSuggest  Source = "yandex_suggest"
	SourceTrends   Source = "google_trends"
	SourceForecast Source = "yandex_forecast"
)

// ErrorKind classifies upstream failures. None of them is retried.
type ErrorKind int

const (
	KindTransport  ErrorKind = iota // timeout, connection failure, non-2xx, upstream error object
	KindParse                       // response missing the expected shape
	KindValidation                  // request rejected before any network call
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// SourceError is returned by every client alongside its empty/absent result.
type SourceError struct {
	Source     Source
	Keyword    string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s error for %q (status %d): %v", e.Source, e.Kind, e.Keyword, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s error for %q: %v", e.Source, e.Kind, e.Keyword, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err carries a SourceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *SourceError
	return errors.As(err, &se) && se.Kind == kind
}

func transportError(source Source, keyword string, err error) *SourceError {
	return &SourceError{Source: source, Keyword: keyword, Kind: KindTransport, Err: err}
}

func statusError(source Source, keyword string, status int, body []byte) *SourceError {
	return &SourceError{
		Source:     source,
		Keyword:    keyword,
		Kind:       KindTransport,
		StatusCode: status,
		Err:        fmt.Errorf("unexpected status: %s", truncate(body, 200)),
	}
}

func parseError(source Source, keyword string, err error) *SourceError {
	return &SourceError{Source: source, Keyword: keyword, Kind: KindParse, Err: err}
}

func validationError(source Source, keyword string, err error) *SourceError {
	return &SourceError{Source: source, Keyword: keyword, Kind: KindValidation, Err: err}
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
