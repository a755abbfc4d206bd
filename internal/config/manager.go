package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "KEYWORD_AGENT"

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}

type manager struct {
	mu     sync.RWMutex
	config *Config
	viper  *viper.Viper
}

func NewManager() Manager {
	return &manager{}
}

// Load reads an optional YAML file, overlays KEYWORD_AGENT_* environment
// variables and validates the result. An empty path means defaults + env only.
func (m *manager) Load(configPath string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := viper.New()
	if err := m.setupViper(v, configPath); err != nil {
		return nil, fmt.Errorf("failed to setup viper: %w", err)
	}
	m.viper = v

	config, err := m.read(configPath != "")
	if err != nil {
		return nil, err
	}
	m.config = config
	return config, nil
}

func (m *manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.viper == nil {
		return fmt.Errorf("config not loaded")
	}

	config, err := m.read(m.viper.ConfigFileUsed() != "")
	if err != nil {
		return err
	}
	m.config = config
	return nil
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) read(hasFile bool) (*Config, error) {
	if hasFile {
		if err := m.viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var config Config
	if err := m.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Regions) == 0 {
		config.Regions = DefaultRegions()
	}
	if len(config.Languages) == 0 {
		config.Languages = DefaultLanguages()
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func (m *manager) setupViper(v *viper.Viper, configPath string) error {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// token stays out of config files in practice; accept the historical name too
	if err := v.BindEnv("forecast.token", EnvPrefix+"_FORECAST_TOKEN", "YANDEX_OAUTH_TOKEN"); err != nil {
		return fmt.Errorf("failed to bind forecast token environment variable: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("suggest.endpoint", "https://suggest.yandex.net/suggest-ya.cgi")
	v.SetDefault("suggest.user_agent", "keyword-agent/1.0")
	v.SetDefault("suggest.timeout", 15*time.Second)

	v.SetDefault("trends.base_url", "https://trends.google.com")
	v.SetDefault("trends.timeout", 20*time.Second)
	v.SetDefault("trends.tz_offset", 180)

	v.SetDefault("forecast.endpoint", "https://api.direct.yandex.com/json/v5/forecasts")
	v.SetDefault("forecast.accept_language", "ru")
	v.SetDefault("forecast.timeout", 20*time.Second)
	v.SetDefault("forecast.geo_scoped", true)
	v.SetDefault("forecast.workers", 1)
	v.SetDefault("forecast.requests_per_second", 0.0)

	v.SetDefault("research.enrich", true)
	v.SetDefault("research.sort_by_score", true)
	v.SetDefault("research.scope_suggestions", false)
	v.SetDefault("research.default_region", "Russia")
	v.SetDefault("research.default_language", "Russian")
	v.SetDefault("research.default_months", 6)
	v.SetDefault("research.default_limit", 20)
	v.SetDefault("research.max_limit", 50)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stderr")
}
