package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overrides cfg with any of the supported environment variables.
func applyEnv(cfg *Config) error {
	e := &envReader{}

	// pipeline
	if v, ok := lookup("FINTRADE_SYMBOLS"); ok {
		cfg.Pipeline.Symbols = splitList(v)
	}
	e.setInt("FINTRADE_DAILY_QUOTA", &cfg.Pipeline.DailyQuota)
	e.setString("FINTRADE_QUOTA_BACKEND", &cfg.Pipeline.QuotaBackend)
	e.setInt("FINTRADE_MAX_ATTEMPTS", &cfg.Pipeline.MaxAttempts)
	e.setDuration("FINTRADE_BASE_DELAY", &cfg.Pipeline.BaseDelay)
	e.setDuration("FINTRADE_MAX_DELAY", &cfg.Pipeline.MaxDelay)
	e.setInt("FINTRADE_CONCURRENCY", &cfg.Pipeline.Concurrency)
	e.setString("FINTRADE_HISTORY_FLOOR", &cfg.Pipeline.HistoryFloor)
	e.setString("FINTRADE_TIMEZONE", &cfg.Pipeline.Timezone)
	e.setInt("FINTRADE_CALLS_PER_MINUTE", &cfg.Pipeline.CallsPerMinute)
	e.setDuration("FINTRADE_RUN_TIMEOUT", &cfg.Pipeline.RunTimeout)
	e.setString("FINTRADE_LOADER", &cfg.Pipeline.Loader)
	e.setString("FINTRADE_SCHEDULE", &cfg.Pipeline.Schedule)

	// upstream
	e.setString("ALPHA_VANTAGE_API_KEY", &cfg.AlphaVantage.APIKey)
	e.setString("ALPHA_VANTAGE_BASE_URL", &cfg.AlphaVantage.BaseURL)
	e.setDuration("ALPHA_VANTAGE_TIMEOUT", &cfg.AlphaVantage.Timeout)

	// warehouse
	e.setString("FINTRADE_DB_CONN", &cfg.DB.DSN)
	e.setString("DB_DRIVER", &cfg.DB.Driver)
	e.setString("DB_USER", &cfg.DB.User)
	e.setString("DB_PASSWORD", &cfg.DB.Password)
	e.setString("DB_NAME", &cfg.DB.Name)
	e.setString("DB_HOST", &cfg.DB.Host)
	e.setString("DB_PORT", &cfg.DB.Port)
	e.setString("DB_SSLMODE", &cfg.DB.SSLMode)
	e.setString("DB_SCHEMA", &cfg.DB.Schema)
	e.setString("DB_PATH", &cfg.DB.Path)
	e.setBool("RUN_MIGRATIONS", &cfg.DB.AutoMigrate)

	// redis: REDIS_ADDR wins over the host/port pair
	e.setString("REDIS_ADDR", &cfg.Redis.Addr)
	if _, ok := lookup("REDIS_ADDR"); !ok {
		host, hok := lookup("REDIS_HOST")
		port, pok := lookup("REDIS_PORT")
		if hok {
			if !pok {
				port = "6379"
			}
			cfg.Redis.Addr = host + ":" + port
		}
	}
	e.setString("REDIS_PASSWORD", &cfg.Redis.Password)

	// archive
	e.setString("S3_BUCKET", &cfg.S3.Bucket)
	e.setString("AWS_REGION", &cfg.S3.Region)
	if _, ok := lookup("AWS_REGION"); !ok {
		e.setString("AWS_DEFAULT_REGION", &cfg.S3.Region)
	}
	if v, ok := lookup("AWS_ENDPOINT_URL"); ok {
		cfg.S3.Endpoint = v
		// LocalStack and MinIO serve buckets by path
		cfg.S3.PathStyle = true
	}
	e.setBool("S3_PATH_STYLE", &cfg.S3.PathStyle)
	e.setString("AWS_ACCESS_KEY_ID", &cfg.S3.AccessKeyID)
	e.setString("AWS_SECRET_ACCESS_KEY", &cfg.S3.SecretAccessKey)
	e.setBool("S3_CREATE_BUCKET", &cfg.S3.CreateBucket)

	// http
	e.setString("SERVER_ADDR", &cfg.Server.Addr)
	if _, ok := lookup("SERVER_ADDR"); !ok {
		if port, ok := lookup("PORT"); ok {
			cfg.Server.Addr = ":" + port
		}
	}
	e.setString("JWT_SECRET", &cfg.JWT.Secret)
	e.setDuration("JWT_TOKEN_TTL", &cfg.JWT.TokenTTL)

	// logging
	e.setString("LOG_LEVEL", &cfg.Log.Level)
	e.setString("LOG_FORMAT", &cfg.Log.Format)
	e.setString("LOG_OUTPUT", &cfg.Log.Output)

	return errors.Join(e.errs...)
}

type envReader struct {
	errs []error
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) setInt(key string, dst *int) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) setDuration(key string, dst *time.Duration) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

func (e *envReader) setBool(key string, dst *bool) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

// lookup treats a variable set to an empty string as unset.
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
