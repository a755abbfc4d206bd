package api

import "context"

// Candidate is a related query from the trends "top" table. Score is the
// relative popularity (0-100) when the upstream reports one.
type Candidate struct {
	Query string   `json:"query"`
	Score *float64 `json:"score,omitempty"`
}

// SuggestionFetcher returns autocomplete strings for a partial keyword.
// regionID 0 means no geography scoping.
type SuggestionFetcher interface {
	FetchSuggestions(ctx context.Context, part, lang string, regionID int) ([]string, error)
}

// RelatedFetcher returns the related-queries "top" table in upstream order.
type RelatedFetcher interface {
	FetchRelated(ctx context.Context, seed, geo string, months int, lang string) ([]Candidate, error)
}

// VolumeEstimator returns a monthly impressions estimate, or nil when unknown.
type VolumeEstimator interface {
	EstimateVolume(ctx context.Context, keyword string, geoIDs []int) (*int64, error)
}
