// Package app wires configuration into the clients and the aggregator.
package app

import (
	"fmt"

	"keyword-agent/internal/config"
	"keyword-agent/pkg/api"
	"keyword-agent/pkg/logger"
	"keyword-agent/pkg/research"
)

type App struct {
	Config     *config.Config
	Catalog    *config.Catalog
	Aggregator *research.Aggregator

	conn *api.ConnectionManager
}

// New builds the client stack from cfg. Without a forecast token the
// aggregator gets no volume estimator and reports enrichment as skipped.
func New(cfg *config.Config) (*App, error) {
	catalog, err := config.NewCatalog(cfg.Regions, cfg.Languages)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	conn := api.NewConnectionManager(api.DefaultConnectionConfig())

	trends := api.NewTrendsClient(api.TrendsClientConfig{
		BaseURL:  cfg.Trends.BaseURL,
		Timeout:  cfg.Trends.Timeout,
		TZOffset: cfg.Trends.TZOffset,
	}, conn)

	suggest := api.NewSuggestClient(api.SuggestClientConfig{
		Endpoint:  cfg.Suggest.Endpoint,
		UserAgent: cfg.Suggest.UserAgent,
		Timeout:   cfg.Suggest.Timeout,
	}, conn)

	sec := logger.GetSecurityLogger()
	var volume api.VolumeEstimator
	if cfg.Forecast.Token != "" {
		volume = api.NewForecastClient(api.ForecastClientConfig{
			Endpoint:          cfg.Forecast.Endpoint,
			Token:             cfg.Forecast.Token,
			AcceptLanguage:    cfg.Forecast.AcceptLanguage,
			Timeout:           cfg.Forecast.Timeout,
			RequestsPerSecond: cfg.Forecast.RequestsPerSecond,
		}, conn)
	}
	sec.SafeInfo("Forecast client configured", map[string]interface{}{
		"forecast_endpoint": cfg.Forecast.Endpoint,
		"forecast_token":    cfg.Forecast.Token,
		"enabled":           volume != nil && cfg.Research.Enrich,
	})

	agg := research.NewAggregator(catalog, trends, suggest, volume, OptionsFromConfig(cfg))

	return &App{
		Config:     cfg,
		Catalog:    catalog,
		Aggregator: agg,
		conn:       conn,
	}, nil
}

// OptionsFromConfig maps the research and forecast sections onto aggregator
// options.
func OptionsFromConfig(cfg *config.Config) research.Options {
	return research.Options{
		Enrich:           cfg.Research.Enrich,
		SortByScore:      cfg.Research.SortByScore,
		ScopeSuggestions: cfg.Research.ScopeSuggestions,
		GeoScopedVolume:  cfg.Forecast.GeoScoped,
		EnrichWorkers:    cfg.Forecast.Workers,
		MaxLimit:         cfg.Research.MaxLimit,
		Defaults: research.Request{
			Region:   cfg.Research.DefaultRegion,
			Language: cfg.Research.DefaultLanguage,
			Months:   cfg.Research.DefaultMonths,
			Limit:    cfg.Research.DefaultLimit,
		},
	}
}

// Close releases pooled upstream connections.
func (a *App) Close() {
	a.conn.Close()
}
