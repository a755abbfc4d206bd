package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const relatedQueriesWidgetID = "RELATED_QUERIES"

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Time    string `json:"time"`
	Geo     string `json:"geo"`
}

type exploreRequest struct {
	ComparisonItem []comparisonItem `json:"comparisonItem"`
	Category       int              `json:"category"`
	Property       string           `json:"property"`
}

// ExploreWidget is one entry of the explore response; Request is passed back verbatim.
type ExploreWidget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

type exploreResponse struct {
	Widgets []ExploreWidget `json:"widgets"`
}

type rankedKeyword struct {
	Query string   `json:"query"`
	Value *float64 `json:"value"`
}

type relatedSearchesResponse struct {
	Default struct {
		RankedList []struct {
			RankedKeyword []rankedKeyword `json:"rankedKeyword"`
		} `json:"rankedList"`
	} `json:"default"`
}

// stripXSSIPrefix drops the ")]}'" guard Google prepends to JSON bodies.
func stripXSSIPrefix(body []byte) []byte {
	if i := bytes.IndexAny(body, "{["); i > 0 {
		return body[i:]
	}
	return body
}

// ParseExploreResponse returns the related-queries widget, or nil when the
// explore response has none.
func ParseExploreResponse(body []byte) (*ExploreWidget, error) {
	body = stripXSSIPrefix(body)
	if len(body) == 0 {
		return nil, errors.New("empty explore response")
	}

	var resp exploreResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode explore response: %w", err)
	}

	for i := range resp.Widgets {
		w := resp.Widgets[i]
		if !strings.HasPrefix(w.ID, relatedQueriesWidgetID) {
			continue
		}
		if w.Token == "" || len(w.Request) == 0 {
			return nil, fmt.Errorf("widget %s has no token or request", w.ID)
		}
		return &w, nil
	}
	return nil, nil
}

// ParseRelatedSearches extracts rankedList[0] (the "top" table). A missing
// or empty table yields an empty slice.
func ParseRelatedSearches(body []byte) ([]Candidate, error) {
	body = stripXSSIPrefix(body)
	if len(body) == 0 {
		return nil, errors.New("empty related searches response")
	}

	var resp relatedSearchesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode related searches: %w", err)
	}

	candidates := []Candidate{}
	if len(resp.Default.RankedList) == 0 {
		return candidates, nil
	}
	for _, kw := range resp.Default.RankedList[0].RankedKeyword {
		if kw.Query == "" {
			continue
		}
		candidates = append(candidates, Candidate{Query: kw.Query, Score: kw.Value})
	}
	return candidates, nil
}

// SortByScore orders candidates by score, highest first, in place. The sort
// is stable and unscored candidates go after scored ones.
func SortByScore(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Score, candidates[j].Score
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}
