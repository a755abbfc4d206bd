package research

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"keyword-agent/internal/config"
	"keyword-agent/pkg/api"
	"keyword-agent/pkg/logger"
	"keyword-agent/pkg/worker"
)

// Catalog resolves display names to upstream codes.
type Catalog interface {
	Region(name string) (config.Region, bool)
	Language(name string) (config.Language, bool)
}

// Options switch the optional steps of a run and carry the request defaults.
type Options struct {
	Enrich           bool
	SortByScore      bool
	ScopeSuggestions bool
	// GeoScopedVolume sends the region's forecast ids with each volume call.
	GeoScopedVolume bool
	EnrichWorkers   int
	MaxLimit        int
	Defaults        Request
}

// DefaultOptions matches the shipped configuration defaults.
func DefaultOptions() Options {
	return Options{
		Enrich:          true,
		SortByScore:     true,
		GeoScopedVolume: true,
		EnrichWorkers:   1,
		MaxLimit:        50,
		Defaults: Request{
			Region:   "Russia",
			Language: "Russian",
			Months:   6,
			Limit:    20,
		},
	}
}

// Aggregator runs the trends and suggestions flows for a seed keyword. It
// holds no per-run state and is safe for concurrent use.
type Aggregator struct {
	catalog  Catalog
	trends   api.RelatedFetcher
	suggest  api.SuggestionFetcher
	volume   api.VolumeEstimator
	opts     Options
	validate *validator.Validate
	log      *logger.Logger
}

// NewAggregator wires the clients. volume may be nil, in which case
// enrichment is reported as skipped.
func NewAggregator(catalog Catalog, trends api.RelatedFetcher, suggest api.SuggestionFetcher, volume api.VolumeEstimator, opts Options) *Aggregator {
	if opts.EnrichWorkers < 1 {
		opts.EnrichWorkers = 1
	}
	if opts.MaxLimit < 1 {
		opts.MaxLimit = DefaultOptions().MaxLimit
	}
	return &Aggregator{
		catalog:  catalog,
		trends:   trends,
		suggest:  suggest,
		volume:   volume,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      logger.GetLogger().WithField("component", "aggregator"),
	}
}

// Run validates req and collects both result sets. Only request validation
// fails the run; upstream failures become notices and empty results.
func (a *Aggregator) Run(ctx context.Context, req Request) (*Report, error) {
	started := time.Now()

	req, region, lang, err := a.prepare(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Request:   req,
		Region:    region,
		Language:  lang,
		Notices:   []Notice{},
		StartedAt: started,
	}
	log := a.log.WithFields(map[string]interface{}{
		"run_id":  report.RunID,
		"keyword": req.Keyword,
		"region":  region.Name,
	})
	log.Info("Research started")

	a.collectTrends(ctx, log, report)
	a.collectSuggestions(ctx, log, report)

	report.Duration = time.Since(started)
	log.WithFields(map[string]interface{}{
		"trends":      report.Trends.Len(),
		"suggestions": report.Suggestions.Len(),
		"warnings":    len(report.Warnings()),
		"duration_ms": report.Duration.Milliseconds(),
	}).Info("Research finished")
	return report, nil
}

// prepare normalizes the keyword, applies defaults and resolves the lookups.
func (a *Aggregator) prepare(req Request) (Request, config.Region, config.Language, error) {
	req.Keyword = NormalizeKeyword(req.Keyword)
	if req.Keyword == "" {
		return req, config.Region{}, config.Language{}, &ValidationError{Field: "keyword", Err: ErrEmptyKeyword}
	}

	d := a.opts.Defaults
	if strings.TrimSpace(req.Region) == "" {
		req.Region = d.Region
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = d.Language
	}
	if req.Months == 0 {
		req.Months = d.Months
	}
	if req.Limit == 0 {
		req.Limit = d.Limit
	}

	if err := a.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return req, config.Region{}, config.Language{}, invalid(strings.ToLower(fe.Field()), "value %v failed %q", fe.Value(), fe.Tag())
		}
		return req, config.Region{}, config.Language{}, &ValidationError{Field: "request", Err: err}
	}
	if req.Limit > a.opts.MaxLimit {
		return req, config.Region{}, config.Language{}, invalid("limit", "%d exceeds maximum %d", req.Limit, a.opts.MaxLimit)
	}

	region, ok := a.catalog.Region(req.Region)
	if !ok {
		return req, config.Region{}, config.Language{}, invalid("region", "unknown region %q", req.Region)
	}
	lang, ok := a.catalog.Language(req.Language)
	if !ok {
		return req, config.Region{}, config.Language{}, invalid("language", "unknown language %q", req.Language)
	}
	req.Region, req.Language = region.Name, lang.Name
	return req, region, lang, nil
}

func (a *Aggregator) collectTrends(ctx context.Context, log *logger.Logger, report *Report) {
	req := report.Request

	candidates, err := a.trends.FetchRelated(ctx, req.Keyword, report.Region.TrendsGeo, req.Months, report.Language.Code)
	if err != nil {
		log.WithError(err).Warn("Related queries unavailable")
		report.addFailure(api.SourceTrends, req.Keyword, err)
	}

	ranked := append([]KeywordCandidate(nil), candidates...)
	if a.opts.SortByScore {
		api.SortByScore(ranked)
	}

	kept := NewResultSet(ranked, req.Limit)
	enriched, stats := a.enrich(ctx, log, report, kept.Items)
	report.Trends = ResultSet[EnrichedKeyword]{Items: enriched, Total: kept.Total}
	report.Enrichment = stats

	if err == nil && kept.Total == 0 {
		report.addInfo(api.SourceTrends, req.Keyword, "no related queries found")
	}
}

// enrich attaches volume estimates to candidates in rank order. A failed
// estimate leaves a nil volume and never stops the remaining keywords.
func (a *Aggregator) enrich(ctx context.Context, log *logger.Logger, report *Report, candidates []KeywordCandidate) ([]EnrichedKeyword, EnrichmentStats) {
	out := make([]EnrichedKeyword, len(candidates))
	for i, c := range candidates {
		out[i] = EnrichedKeyword{Text: c.Query}
	}

	stats := EnrichmentStats{Enabled: a.opts.Enrich && a.volume != nil}
	if !a.opts.Enrich || len(candidates) == 0 {
		return out, stats
	}
	if a.volume == nil {
		report.addWarning(api.SourceForecast, "", "volume enrichment skipped: no forecast client configured")
		return out, stats
	}

	var geoIDs []int
	if a.opts.GeoScopedVolume {
		geoIDs = report.Region.ForecastGeoIDs
	}

	progress := logger.NewProgressReporter(log, len(candidates), "Volume enrichment")
	volumes, errs, metrics := worker.MapOrdered(ctx, worker.PoolConfig{Workers: a.opts.EnrichWorkers}, candidates,
		func(ctx context.Context, _ int, c KeywordCandidate) (*int64, error) {
			v, err := a.volume.EstimateVolume(ctx, c.Query, geoIDs)
			progress.Done(err != nil)
			return v, err
		})

	stats.Workers = a.opts.EnrichWorkers
	stats.Attempted = len(candidates)
	stats.Duration = metrics.Uptime
	for i, err := range errs {
		if err != nil {
			stats.Failed++
			log.WithError(err).WithField("candidate", candidates[i].Query).Warn("Volume estimate failed")
			report.addFailure(api.SourceForecast, candidates[i].Query, err)
			continue
		}
		out[i].MonthlySearches = volumes[i]
		stats.Succeeded++
	}
	return out, stats
}

func (a *Aggregator) collectSuggestions(ctx context.Context, log *logger.Logger, report *Report) {
	req := report.Request

	regionID := 0
	if a.opts.ScopeSuggestions && len(report.Region.ForecastGeoIDs) > 0 {
		regionID = report.Region.ForecastGeoIDs[0]
	}

	suggestions, err := a.suggest.FetchSuggestions(ctx, req.Keyword, report.Language.Code, regionID)
	if err != nil {
		log.WithError(err).Warn("Suggestions unavailable")
		report.addFailure(api.SourceSuggest, req.Keyword, err)
	}

	records := make([]SuggestionRecord, len(suggestions))
	for i, s := range suggestions {
		records[i] = SuggestionRecord{Text: s}
	}
	report.Suggestions = NewResultSet(records, req.Limit)

	if err == nil && len(records) == 0 {
		report.addInfo(api.SourceSuggest, req.Keyword, "no suggestions found")
	}
}

// NormalizeKeyword trims surrounding whitespace and composes the text to NFC
// so equivalent spellings query upstreams identically.
func NormalizeKeyword(keyword string) string {
	return norm.NFC.String(strings.TrimSpace(keyword))
}

func (r *Report) addInfo(source api.Source, keyword, message string) {
	r.Notices = append(r.Notices, Notice{Level: NoticeInfo, Source: source, Keyword: keyword, Message: message})
}

func (r *Report) addWarning(source api.Source, keyword, message string) {
	r.Notices = append(r.Notices, Notice{Level: NoticeWarning, Source: source, Keyword: keyword, Message: message})
}

func (r *Report) addFailure(source api.Source, keyword string, err error) {
	var se *api.SourceError
	if errors.As(err, &se) {
		source = se.Source
	}
	r.Notices = append(r.Notices, Notice{
		Level:   NoticeWarning,
		Source:  source,
		Keyword: keyword,
		Reason:  api.ClassifyFailure(err),
		Message: err.Error(),
	})
}
