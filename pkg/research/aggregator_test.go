package research

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyword-agent/internal/config"
	"keyword-agent/pkg/api"
)

type fakeTrends struct {
	mu         sync.Mutex
	candidates []api.Candidate
	err        error
	calls      []string
}

func (f *fakeTrends) FetchRelated(ctx context.Context, seed, geo string, months int, lang string) ([]api.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s|%s|%d|%s", seed, geo, months, lang))
	if f.err != nil {
		return []api.Candidate{}, f.err
	}
	return append([]api.Candidate(nil), f.candidates...), nil
}

type fakeSuggest struct {
	mu          sync.Mutex
	suggestions []string
	err         error
	calls       []string
}

func (f *fakeSuggest) FetchSuggestions(ctx context.Context, part, lang string, regionID int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s|%s|%d", part, lang, regionID))
	if f.err != nil {
		return []string{}, f.err
	}
	return append([]string(nil), f.suggestions...), nil
}

type fakeVolume struct {
	mu     sync.Mutex
	values map[string]int64
	fail   map[string]bool
	jitter bool
	calls  []string
	geoIDs [][]int
}

func (f *fakeVolume) EstimateVolume(ctx context.Context, keyword string, geoIDs []int) (*int64, error) {
	if f.jitter {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, keyword)
	f.geoIDs = append(f.geoIDs, geoIDs)
	if f.fail[keyword] {
		return nil, &api.SourceError{Source: api.SourceForecast, Keyword: keyword, Kind: api.KindTransport, StatusCode: 500, Err: errors.New("unexpected status")}
	}
	v, ok := f.values[keyword]
	if !ok {
		v = int64(len([]rune(keyword)))
	}
	return &v, nil
}

func (f *fakeVolume) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func score(v float64) *float64 { return &v }

func testCatalog(t *testing.T) *config.Catalog {
	t.Helper()
	catalog, err := config.NewCatalog(config.DefaultRegions(), config.DefaultLanguages())
	require.NoError(t, err)
	return catalog
}

func texts(items []EnrichedKeyword) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
	}
	return out
}

func TestRun_RejectsBlankKeywordWithoutNetwork(t *testing.T) {
	trends, suggest, volume := &fakeTrends{}, &fakeSuggest{}, &fakeVolume{}
	agg := NewAggregator(testCatalog(t), trends, suggest, volume, DefaultOptions())

	for _, kw := range []string{"", "   ", "\t\n", " "} {
		report, err := agg.Run(context.Background(), Request{Keyword: kw})
		assert.Nil(t, report)
		assert.ErrorIs(t, err, ErrEmptyKeyword, "keyword %q", kw)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "keyword", ve.Field)
	}

	assert.Empty(t, trends.calls)
	assert.Empty(t, suggest.calls)
	assert.Zero(t, volume.callCount())
}

func TestRun_RejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{name: "months above window", req: Request{Keyword: "q", Months: 13}, field: "months"},
		{name: "negative months", req: Request{Keyword: "q", Months: -1}, field: "months"},
		{name: "limit above max", req: Request{Keyword: "q", Limit: 51}, field: "limit"},
		{name: "negative limit", req: Request{Keyword: "q", Limit: -5}, field: "limit"},
		{name: "unknown region", req: Request{Keyword: "q", Region: "Atlantis"}, field: "region"},
		{name: "unknown language", req: Request{Keyword: "q", Language: "Klingon"}, field: "language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trends, suggest := &fakeTrends{}, &fakeSuggest{}
			agg := NewAggregator(testCatalog(t), trends, suggest, &fakeVolume{}, DefaultOptions())

			_, err := agg.Run(context.Background(), tt.req)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Empty(t, trends.calls)
			assert.Empty(t, suggest.calls)
		})
	}
}

func TestRun_TopTenOfFifteenHighestFirst(t *testing.T) {
	candidates := make([]api.Candidate, 15)
	for i := range candidates {
		// scores 10, 80, 30, ... scrambled but unique
		candidates[i] = api.Candidate{
			Query: fmt.Sprintf("жалюзи %02d", i),
			Score: score(float64((i*7)%15+1) * 10),
		}
	}
	trends := &fakeTrends{candidates: candidates}
	suggest := &fakeSuggest{}
	volume := &fakeVolume{}
	agg := NewAggregator(testCatalog(t), trends, suggest, volume, DefaultOptions())

	report, err := agg.Run(context.Background(), Request{
		Keyword: "жалюзи",
		Region:  "Russia",
		Months:  6,
		Limit:   10,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"жалюзи|RU|6|ru"}, trends.calls)
	require.Len(t, report.Trends.Items, 10)
	assert.Equal(t, 15, report.Trends.Total)
	assert.True(t, report.Trends.Truncated())

	var prev float64 = 1e9
	byText := map[string]float64{}
	for _, c := range candidates {
		byText[c.Query] = *c.Score
	}
	for _, item := range report.Trends.Items {
		s := byText[item.Text]
		assert.LessOrEqual(t, s, prev)
		prev = s
	}
	assert.Equal(t, float64(150), byText[report.Trends.Items[0].Text])
	assert.Equal(t, float64(60), byText[report.Trends.Items[9].Text])

	assert.Equal(t, 10, volume.callCount(), "only kept candidates are enriched")
	for _, ids := range volume.geoIDs {
		assert.Equal(t, []int{225}, ids)
	}
	for _, item := range report.Trends.Items {
		require.NotNil(t, item.MonthlySearches)
	}
	assert.Equal(t, EnrichmentStats{Enabled: true, Workers: 1, Attempted: 10, Succeeded: 10, Duration: report.Enrichment.Duration}, report.Enrichment)
}

func TestRun_StableOrderForTiesAndUnscored(t *testing.T) {
	trends := &fakeTrends{candidates: []api.Candidate{
		{Query: "a", Score: score(50)},
		{Query: "b"},
		{Query: "c", Score: score(100)},
		{Query: "d", Score: score(50)},
		{Query: "e"},
	}}
	opts := DefaultOptions()
	opts.Enrich = false
	agg := NewAggregator(testCatalog(t), trends, &fakeSuggest{}, &fakeVolume{}, opts)

	report, err := agg.Run(context.Background(), Request{Keyword: "q"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "d", "b", "e"}, texts(report.Trends.Items))

	opts.SortByScore = false
	agg = NewAggregator(testCatalog(t), trends, &fakeSuggest{}, &fakeVolume{}, opts)
	report, err = agg.Run(context.Background(), Request{Keyword: "q"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, texts(report.Trends.Items))
}

func TestRun_EnrichmentFailureKeepsGoing(t *testing.T) {
	trends := &fakeTrends{candidates: []api.Candidate{
		{Query: "first", Score: score(3)},
		{Query: "broken", Score: score(2)},
		{Query: "zero", Score: score(1)},
	}}
	volume := &fakeVolume{
		values: map[string]int64{"first": 1200, "zero": 0},
		fail:   map[string]bool{"broken": true},
	}
	agg := NewAggregator(testCatalog(t), trends, &fakeSuggest{suggestions: []string{"x"}}, volume, DefaultOptions())

	report, err := agg.Run(context.Background(), Request{Keyword: "q"})
	require.NoError(t, err)

	items := report.Trends.Items
	require.Len(t, items, 3)
	require.NotNil(t, items[0].MonthlySearches)
	assert.Equal(t, int64(1200), *items[0].MonthlySearches)
	assert.Nil(t, items[1].MonthlySearches, "failed estimate stays unknown")
	require.NotNil(t, items[2].MonthlySearches, "zero is a real value")
	assert.Equal(t, int64(0), *items[2].MonthlySearches)

	assert.Equal(t, []string{"first", "broken", "zero"}, volume.calls)
	assert.Equal(t, 1, report.Enrichment.Failed)
	assert.Equal(t, 2, report.Enrichment.Succeeded)

	warnings := report.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, api.SourceForecast, warnings[0].Source)
	assert.Equal(t, "broken", warnings[0].Keyword)
	assert.Equal(t, api.FailureUpstream, warnings[0].Reason)
}

func TestRun_ParallelEnrichmentKeepsRank(t *testing.T) {
	candidates := make([]api.Candidate, 12)
	for i := range candidates {
		candidates[i] = api.Candidate{Query: fmt.Sprintf("kw-%02d", i), Score: score(float64(100 - i))}
	}
	values := map[string]int64{}
	for i, c := range candidates {
		values[c.Query] = int64(i * 100)
	}
	volume := &fakeVolume{values: values, jitter: true}
	opts := DefaultOptions()
	opts.EnrichWorkers = 4
	agg := NewAggregator(testCatalog(t), &fakeTrends{candidates: candidates}, &fakeSuggest{}, volume, opts)

	report, err := agg.Run(context.Background(), Request{Keyword: "q", Limit: 12})
	require.NoError(t, err)

	for i, item := range report.Trends.Items {
		assert.Equal(t, candidates[i].Query, item.Text)
		require.NotNil(t, item.MonthlySearches)
		assert.Equal(t, int64(i*100), *item.MonthlySearches)
	}
	assert.Equal(t, 4, report.Enrichment.Workers)
}

func TestRun_EnrichmentSwitches(t *testing.T) {
	candidates := []api.Candidate{{Query: "a", Score: score(1)}}

	t.Run("disabled", func(t *testing.T) {
		volume := &fakeVolume{}
		opts := DefaultOptions()
		opts.Enrich = false
		agg := NewAggregator(testCatalog(t), &fakeTrends{candidates: candidates}, &fakeSuggest{}, volume, opts)

		report, err := agg.Run(context.Background(), Request{Keyword: "q"})
		require.NoError(t, err)
		assert.Zero(t, volume.callCount())
		assert.Nil(t, report.Trends.Items[0].MonthlySearches)
		assert.False(t, report.Enrichment.Enabled)
		assert.Empty(t, report.Warnings())
	})

	t.Run("no estimator", func(t *testing.T) {
		agg := NewAggregator(testCatalog(t), &fakeTrends{candidates: candidates}, &fakeSuggest{}, nil, DefaultOptions())

		report, err := agg.Run(context.Background(), Request{Keyword: "q"})
		require.NoError(t, err)
		assert.Nil(t, report.Trends.Items[0].MonthlySearches)
		require.Len(t, report.Warnings(), 1)
		assert.Contains(t, report.Warnings()[0].Message, "no forecast client configured")
	})

	t.Run("unscoped volume", func(t *testing.T) {
		volume := &fakeVolume{}
		opts := DefaultOptions()
		opts.GeoScopedVolume = false
		agg := NewAggregator(testCatalog(t), &fakeTrends{candidates: candidates}, &fakeSuggest{}, volume, opts)

		_, err := agg.Run(context.Background(), Request{Keyword: "q", Region: "Germany"})
		require.NoError(t, err)
		require.Len(t, volume.geoIDs, 1)
		assert.Nil(t, volume.geoIDs[0])
	})
}

func TestRun_Suggestions(t *testing.T) {
	suggest := &fakeSuggest{suggestions: []string{"жалюзи рулонные", "жалюзи вертикальные"}}
	agg := NewAggregator(testCatalog(t), &fakeTrends{}, suggest, &fakeVolume{}, DefaultOptions())

	report, err := agg.Run(context.Background(), Request{Keyword: "жалюзи", Language: "russian"})
	require.NoError(t, err)

	assert.Equal(t, []SuggestionRecord{{Text: "жалюзи рулонные"}, {Text: "жалюзи вертикальные"}}, report.Suggestions.Items)
	assert.Equal(t, []string{"жалюзи|ru|0"}, suggest.calls)
	assert.Equal(t, "Russian", report.Request.Language)

	t.Run("scoped and truncated", func(t *testing.T) {
		many := make([]string, 30)
		for i := range many {
			many[i] = fmt.Sprintf("s%02d", i)
		}
		suggest := &fakeSuggest{suggestions: many}
		opts := DefaultOptions()
		opts.ScopeSuggestions = true
		agg := NewAggregator(testCatalog(t), &fakeTrends{}, suggest, &fakeVolume{}, opts)

		report, err := agg.Run(context.Background(), Request{Keyword: "q", Region: "Kazakhstan", Language: "Kazakh", Limit: 5})
		require.NoError(t, err)
		assert.Equal(t, []string{"q|kk|193"}, suggest.calls)
		assert.Equal(t, []SuggestionRecord{{"s00"}, {"s01"}, {"s02"}, {"s03"}, {"s04"}}, report.Suggestions.Items)
		assert.Equal(t, 30, report.Suggestions.Total)
	})
}

func TestRun_SourceFailureDoesNotBlockOtherSource(t *testing.T) {
	trendsErr := &api.SourceError{Source: api.SourceTrends, Keyword: "q", Kind: api.KindTransport, StatusCode: 429, Err: errors.New("too many requests")}
	trends := &fakeTrends{err: trendsErr}
	suggest := &fakeSuggest{suggestions: []string{"q one"}}
	agg := NewAggregator(testCatalog(t), trends, suggest, &fakeVolume{}, DefaultOptions())

	report, err := agg.Run(context.Background(), Request{Keyword: "q"})
	require.NoError(t, err)

	assert.Empty(t, report.Trends.Items)
	assert.NotNil(t, report.Trends.Items)
	assert.Equal(t, []SuggestionRecord{{Text: "q one"}}, report.Suggestions.Items)

	warnings := report.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, api.SourceTrends, warnings[0].Source)
	assert.Equal(t, "q", warnings[0].Keyword)
	assert.Equal(t, api.FailureRateLimited, warnings[0].Reason)
}

func TestRun_EmptyResultsAreInformational(t *testing.T) {
	agg := NewAggregator(testCatalog(t), &fakeTrends{}, &fakeSuggest{}, &fakeVolume{}, DefaultOptions())

	report, err := agg.Run(context.Background(), Request{Keyword: "q"})
	require.NoError(t, err)

	assert.Empty(t, report.Warnings())
	require.Len(t, report.Notices, 2)
	for _, n := range report.Notices {
		assert.Equal(t, NoticeInfo, n.Level)
	}
	assert.Equal(t, api.SourceTrends, report.Notices[0].Source)
	assert.Equal(t, api.SourceSuggest, report.Notices[1].Source)
}

func TestRun_NormalizesKeywordAndAppliesDefaults(t *testing.T) {
	trends := &fakeTrends{}
	agg := NewAggregator(testCatalog(t), trends, &fakeSuggest{}, &fakeVolume{}, DefaultOptions())

	report, err := agg.Run(context.Background(), Request{Keyword: "  cafe\u0301  "})
	require.NoError(t, err)

	assert.Equal(t, "caf\u00e9", report.Request.Keyword)
	assert.Equal(t, []string{"caf\u00e9|RU|6|ru"}, trends.calls)
	assert.Equal(t, 20, report.Request.Limit)
	assert.NotEmpty(t, report.RunID)
}

func TestRun_CanceledContext(t *testing.T) {
	trends := &fakeTrends{}
	agg := NewAggregator(testCatalog(t), trends, &fakeSuggest{}, &fakeVolume{}, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.Run(ctx, Request{Keyword: "q"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, trends.calls)
}

func TestNewResultSet(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}

	for limit := 0; limit <= 7; limit++ {
		rs := NewResultSet(items, limit)
		want := limit
		if want > len(items) {
			want = len(items)
		}
		assert.Len(t, rs.Items, want)
		assert.Equal(t, items[:want], rs.Items)
		assert.Equal(t, 5, rs.Total)
	}

	rs := NewResultSet([]int(nil), 10)
	assert.NotNil(t, rs.Items)
	assert.Zero(t, rs.Total)
}
