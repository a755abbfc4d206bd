package research

import (
	"time"

	"keyword-agent/internal/config"
	"keyword-agent/pkg/api"
)

// KeywordCandidate is a related query with its optional popularity score.
type KeywordCandidate = api.Candidate

// EnrichedKeyword pairs a candidate with its forecast. A nil MonthlySearches
// means the volume is unknown; zero is a real forecast.
type EnrichedKeyword struct {
	Text            string `json:"text"`
	MonthlySearches *int64 `json:"monthly_searches"`
}

// Cells returns the spreadsheet row; an unknown volume is a nil cell.
func (k EnrichedKeyword) Cells() []any {
	if k.MonthlySearches == nil {
		return []any{k.Text, nil}
	}
	return []any{k.Text, *k.MonthlySearches}
}

type SuggestionRecord struct {
	Text string `json:"text"`
}

func (s SuggestionRecord) Cells() []any {
	return []any{s.Text}
}

// ResultSet is the ranked prefix of a source's output. Total counts the items
// before truncation.
type ResultSet[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewResultSet keeps the first limit items, in order. A non-positive limit
// keeps nothing.
func NewResultSet[T any](items []T, limit int) ResultSet[T] {
	total := len(items)
	if limit < 0 {
		limit = 0
	}
	if limit > total {
		limit = total
	}
	kept := make([]T, limit)
	copy(kept, items[:limit])
	return ResultSet[T]{Items: kept, Total: total}
}

func (r ResultSet[T]) Len() int {
	return len(r.Items)
}

func (r ResultSet[T]) Truncated() bool {
	return r.Total > len(r.Items)
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a non-fatal event of a run, surfaced to whoever renders the report.
type Notice struct {
	Level   NoticeLevel      `json:"level"`
	Source  api.Source       `json:"source"`
	Keyword string           `json:"keyword,omitempty"`
	Reason  api.FailureClass `json:"reason,omitempty"`
	Message string           `json:"message"`
}

// Request describes one research run. Empty fields take the aggregator's
// defaults.
type Request struct {
	Keyword  string `json:"keyword" query:"keyword" validate:"required"`
	Region   string `json:"region" query:"region" validate:"required"`
	Language string `json:"language" query:"language" validate:"required"`
	Months   int    `json:"months" query:"months" validate:"min=1,max=12"`
	Limit    int    `json:"limit" query:"limit" validate:"min=1"`
}

type EnrichmentStats struct {
	Enabled   bool          `json:"enabled"`
	Workers   int           `json:"workers"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Report is the outcome of a run. Both result sets are always present and
// may be empty.
type Report struct {
	RunID       string                      `json:"run_id"`
	Request     Request                     `json:"request"`
	Region      config.Region               `json:"region"`
	Language    config.Language             `json:"language"`
	Trends      ResultSet[EnrichedKeyword]  `json:"trends"`
	Suggestions ResultSet[SuggestionRecord] `json:"suggestions"`
	Notices     []Notice                    `json:"notices"`
	Enrichment  EnrichmentStats             `json:"enrichment"`
	StartedAt   time.Time                   `json:"started_at"`
	Duration    time.Duration               `json:"duration"`
}

// Warnings returns the warning-level notices.
func (r *Report) Warnings() []Notice {
	var out []Notice
	for _, n := range r.Notices {
		if n.Level == NoticeWarning {
			out = append(out, n)
		}
	}
	return out
}
