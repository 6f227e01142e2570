// Package config loads the application configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file, then environment variables (a .env file is read first when present).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fintrade/internal/feature/prices/adapters/alphavantage"
	"fintrade/internal/feature/prices/domain/entity"
	"fintrade/internal/platform/db"
	"fintrade/internal/platform/logging"
	"fintrade/internal/platform/objectstore"
	"fintrade/internal/platform/redis"
)

const (
	QuotaMemory = "memory"
	QuotaRedis  = "redis"

	LoaderGorm = "gorm"
	LoaderPgx  = "pgx"

	// defaultHistoryDays is used when no history floor is configured.
	// It matches the span of a compact Alpha Vantage response.
	defaultHistoryDays = 100
)

// Config is the full application configuration.
type Config struct {
	Pipeline     Pipeline            `yaml:"pipeline"`
	AlphaVantage alphavantage.Config `yaml:"alphavantage"`
	DB           db.Config           `yaml:"db"`
	Redis        redis.Config        `yaml:"redis"`
	S3           objectstore.Config  `yaml:"s3"`
	Server       Server              `yaml:"server"`
	JWT          JWT                 `yaml:"jwt"`
	Log          logging.Config      `yaml:"log"`
}

// Pipeline holds the ingestion settings.
type Pipeline struct {
	Symbols           []string      `yaml:"symbols"` // empty: active instruments from the catalog
	DailyQuota        int           `yaml:"daily_quota"`
	QuotaBackend      string        `yaml:"quota_backend"`
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	Concurrency       int           `yaml:"concurrency"`
	HistoryFloor      string        `yaml:"history_floor"` // YYYY-MM-DD
	Timezone          string        `yaml:"timezone"`
	CallsPerMinute    int           `yaml:"calls_per_minute"`
	RunTimeout        time.Duration `yaml:"run_timeout"`
	Loader            string        `yaml:"loader"`
	Schedule          string        `yaml:"schedule"` // cron expression, empty disables
	WatermarkCacheTTL time.Duration `yaml:"watermark_cache_ttl"`
}

// Server holds the HTTP trigger settings.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// JWT holds the service token settings.
type JWT struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			DailyQuota:        25,
			QuotaBackend:      QuotaMemory,
			MaxAttempts:       3,
			BaseDelay:         4 * time.Second,
			MaxDelay:          60 * time.Second,
			Concurrency:       2,
			Timezone:          "UTC",
			CallsPerMinute:    5,
			RunTimeout:        30 * time.Minute,
			Loader:            LoaderGorm,
			WatermarkCacheTTL: time.Hour,
		},
		AlphaVantage: alphavantage.Config{
			BaseURL: alphavantage.DefaultBaseURL,
			Timeout: alphavantage.DefaultTimeout,
		},
		DB: db.Config{
			Driver:         db.DriverPostgres,
			User:           "fintrade",
			Name:           "fintrade",
			Host:           "localhost",
			Port:           "5432",
			Schema:         "raw",
			ConnectTimeout: 60 * time.Second,
			AutoMigrate:    true,
		},
		S3: objectstore.Config{
			Bucket:       "fintrade-raw",
			Region:       "us-east-1",
			CreateBucket: true,
		},
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		JWT: JWT{TokenTTL: 24 * time.Hour},
		Log: logging.Config{Level: "info", Format: "json", Output: "stdout"},
	}
}

// Load reads envFile (ignored when missing), the YAML file at path (skipped
// when path is empty) and the environment, then validates the result.
func Load(path, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("cannot read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("cannot parse YAML: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	var errs []error
	p := c.Pipeline
	if p.DailyQuota < 0 {
		errs = append(errs, errors.New("pipeline.daily_quota must not be negative"))
	}
	if p.MaxAttempts < 1 {
		errs = append(errs, errors.New("pipeline.max_attempts must be at least 1"))
	}
	if p.BaseDelay <= 0 || p.MaxDelay < p.BaseDelay {
		errs = append(errs, errors.New("pipeline.base_delay must be positive and not exceed max_delay"))
	}
	if p.Concurrency < 1 {
		errs = append(errs, errors.New("pipeline.concurrency must be at least 1"))
	}
	if p.QuotaBackend != QuotaMemory && p.QuotaBackend != QuotaRedis {
		errs = append(errs, fmt.Errorf("pipeline.quota_backend %q is not one of memory, redis", p.QuotaBackend))
	}
	if p.QuotaBackend == QuotaRedis && !c.Redis.Enabled() {
		errs = append(errs, errors.New("pipeline.quota_backend redis requires redis.addr"))
	}
	if p.Loader != LoaderGorm && p.Loader != LoaderPgx {
		errs = append(errs, fmt.Errorf("pipeline.loader %q is not one of gorm, pgx", p.Loader))
	}
	if p.Loader == LoaderPgx && c.DB.Driver != db.DriverPostgres {
		errs = append(errs, errors.New("pipeline.loader pgx requires the postgres driver"))
	}
	if _, err := p.Location(); err != nil {
		errs = append(errs, err)
	}
	if p.HistoryFloor != "" {
		if _, err := entity.ParseDay(p.HistoryFloor); err != nil {
			errs = append(errs, fmt.Errorf("pipeline.history_floor: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RequireAPIKey reports a missing Alpha Vantage key. Only commands that call
// the API need one.
func (c Config) RequireAPIKey() error {
	if strings.TrimSpace(c.AlphaVantage.APIKey) == "" {
		return errors.New("alphavantage.api_key (ALPHA_VANTAGE_API_KEY) is required")
	}
	return nil
}

// RequireJWTSecret reports a missing signing secret.
func (c Config) RequireJWTSecret() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret (JWT_SECRET) is required")
	}
	return nil
}

// Location returns the zone in which the run date is evaluated.
func (p Pipeline) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("pipeline.timezone: %w", err)
	}
	return loc, nil
}

// Floor returns the configured history floor, or defaultHistoryDays before now.
func (p Pipeline) Floor(now time.Time) time.Time {
	if p.HistoryFloor != "" {
		if d, err := entity.ParseDay(p.HistoryFloor); err == nil {
			return d
		}
	}
	return entity.Day(now).AddDate(0, 0, -defaultHistoryDays)
}
