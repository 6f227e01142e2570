package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	instrumententity "fintrade/internal/feature/instruments/domain/entity"
	pricesadapters "fintrade/internal/feature/prices/adapters"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	retryInterval = 3 * time.Second
)

// Config はウェアハウス接続設定です。
type Config struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"` // 個別フィールドより優先
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	SSLMode  string `yaml:"sslmode"`
	// Schema はpostgresのsearch_pathの先頭に置かれ、Migrateで作成されます。
	Schema         string        `yaml:"schema"`
	Path           string        `yaml:"path"` // sqliteファイル、":memory:"も可
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	AutoMigrate    bool          `yaml:"auto_migrate"`
}

// BuildDSN はgormとpgxの両方で使えるpostgres接続URLを生成します。
//
// 設定:
//   - DSN: 設定されている場合はそのまま返す
//   - sslmode: 未設定の場合はdisable
//   - search_path: Schemaが設定されている場合は "<Schema>,public"
func BuildDSN(cfg Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	q := url.Values{}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	q.Set("sslmode", sslmode)
	if cfg.Schema != "" {
		q.Set("search_path", cfg.Schema+",public")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// ConnectWithRetry はtimeoutまでopenerによる接続を繰り返し試行します。
//
// 注意:
//   - 起動直後はDBコンテナの準備ができていないことが多いため、retryInterval間隔で再試行する
//   - タイムアウト時は最後のエラーをラップして返す
func ConnectWithRetry(dsn string, timeout time.Duration, opener func(string) (*gorm.DB, error)) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("db connect failed, retrying", "error", err, "retry_in", retryInterval)
		time.Sleep(retryInterval)
	}
}

// Open は設定されたドライバでウェアハウスに接続し、AutoMigrateが有効ならマイグレーションを実行します。
func Open(cfg Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = "fintrade.db"
		}
		db, err = gorm.Open(sqlite.Open(path), gcfg)
	case DriverPostgres, "":
		timeout := cfg.ConnectTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		db, err = ConnectWithRetry(BuildDSN(cfg), timeout, func(dsn string) (*gorm.DB, error) {
			return gorm.Open(postgres.Open(dsn), gcfg)
		})
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := Migrate(db, cfg.Schema); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate はウェアハウスのテーブルを作成します。
func Migrate(db *gorm.DB, schema string) error {
	if schema != "" && db.Dialector.Name() == DriverPostgres {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", schema)).Error; err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
	}
	if err := db.AutoMigrate(
		&pricesadapters.PriceModel{},
		&pricesadapters.WatermarkModel{},
		&pricesadapters.RunOutcomeModel{},
		&instrumententity.Instrument{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Ping はDBが応答するかを確認します。
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close は内部のコネクションプールを解放します。
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// OpenPool は一括ロード用のpgxプールを作成します。
//
// 設定:
//   - 接続先: BuildDSNで生成したgormと同じ接続設定
//   - MaxConns: maxConnsが正の場合のみ上書き
//
// 注意:
//   - PINGに失敗した場合はプールを閉じてエラーを返す
func OpenPool(ctx context.Context, cfg Config, maxConns int32) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if maxConns > 0 {
		pcfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pool: %w", err)
	}
	return pool, nil
}
