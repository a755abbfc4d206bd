package config

import (
	"time"

	"keyword-agent/pkg/logger"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Suggest   SuggestConfig    `mapstructure:"suggest"`
	Trends    TrendsConfig     `mapstructure:"trends"`
	Forecast  ForecastConfig   `mapstructure:"forecast"`
	Research  ResearchConfig   `mapstructure:"research"`
	Regions   []RegionConfig   `mapstructure:"regions" validate:"required,min=1,dive"`
	Languages []LanguageConfig `mapstructure:"languages" validate:"required,min=1,dive"`
	Logger    logger.Config    `mapstructure:"logger"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

type SuggestConfig struct {
	Endpoint  string        `mapstructure:"endpoint" validate:"required,url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type TrendsConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// TZOffset is minutes from UTC the way Google Trends expects it (180 for Moscow).
	TZOffset int `mapstructure:"tz_offset"`
}

type ForecastConfig struct {
	Endpoint          string        `mapstructure:"endpoint" validate:"required,url"`
	Token             string        `mapstructure:"token"`
	AcceptLanguage    string        `mapstructure:"accept_language"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	GeoScoped         bool          `mapstructure:"geo_scoped"`
	Workers           int           `mapstructure:"workers" validate:"min=1,max=16"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"min=0"`
}

// ResearchConfig holds the variant switches and input defaults of a run.
type ResearchConfig struct {
	Enrich           bool   `mapstructure:"enrich"`
	SortByScore      bool   `mapstructure:"sort_by_score"`
	ScopeSuggestions bool   `mapstructure:"scope_suggestions"`
	DefaultRegion    string `mapstructure:"default_region" validate:"required"`
	DefaultLanguage  string `mapstructure:"default_language" validate:"required"`
	DefaultMonths    int    `mapstructure:"default_months" validate:"min=1,max=12"`
	DefaultLimit     int    `mapstructure:"default_limit" validate:"min=1,max=50"`
	MaxLimit         int    `mapstructure:"max_limit" validate:"min=1,max=50"`
}

type RegionConfig struct {
	Name           string `mapstructure:"name" validate:"required"`
	TrendsGeo      string `mapstructure:"trends_geo" validate:"required,len=2"`
	ForecastGeoIDs []int  `mapstructure:"forecast_geo_ids"`
}

type LanguageConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Code string `mapstructure:"code" validate:"required,langtag"`
}

// DefaultRegions mirrors the lookup table the tool has always shipped with.
func DefaultRegions() []RegionConfig {
	return []RegionConfig{
		{Name: "Russia", TrendsGeo: "RU", ForecastGeoIDs: []int{225}},
		{Name: "Ukraine", TrendsGeo: "UA", ForecastGeoIDs: []int{143}},
		{Name: "Kazakhstan", TrendsGeo: "KZ", ForecastGeoIDs: []int{193}},
		{Name: "Belarus", TrendsGeo: "BY", ForecastGeoIDs: []int{149}},
		{Name: "United States", TrendsGeo: "US", ForecastGeoIDs: []int{187}},
		{Name: "Germany", TrendsGeo: "DE", ForecastGeoIDs: []int{77}},
		{Name: "France", TrendsGeo: "FR", ForecastGeoIDs: []int{83}},
	}
}

func DefaultLanguages() []LanguageConfig {
	return []LanguageConfig{
		{Name: "Russian", Code: "ru"},
		{Name: "English", Code: "en"},
		{Name: "Ukrainian", Code: "uk"},
		{Name: "Kazakh", Code: "kk"},
	}
}
