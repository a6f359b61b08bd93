package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`

	SentryEnabled    bool `toml:"sentry_enabled"`
	HoneycombEnabled bool `toml:"honeycomb_enabled"`

	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort int    `toml:"prometheus_metrics_port"`

	// training log source
	SpreadsheetID   string `toml:"spreadsheet_id" env:"TRAINLOG_SPREADSHEET_ID"`
	CredentialsPath string `toml:"-" env:"GOOGLE_SHEETS_CREDENTIALS"`
	SheetCSVURL     string `toml:"sheet_csv_url" env:"TRAINLOG_CSV_URL"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
	RefreshSchedule string `toml:"refresh_schedule"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// CacheTTL is the source cache expiry as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// Load reads the TOML config for the given environment and then applies
// env var overrides on top of it.
func Load(ctx context.Context, env, path string) (*Config, error) {
	var tomlConf Toml
	if _, err := toml.DecodeFile(path, &tomlConf); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	conf, err := tomlConf.Get(env)
	if err != nil {
		return nil, err
	}
	if conf == nil {
		return nil, fmt.Errorf("config for env %s is empty", env)
	}

	if err := envconfig.Process(ctx, conf); err != nil {
		return nil, fmt.Errorf("process env overrides: %w", err)
	}

	if conf.CacheTTLMinutes <= 0 {
		conf.CacheTTLMinutes = 15
	}

	return conf, nil
}
