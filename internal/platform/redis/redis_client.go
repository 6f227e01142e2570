package redis

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Config はRedis接続設定です。Addrが空の場合Redisは無効になります。
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled はRedisサーバーが設定されているかを返します。
func (c Config) Enabled() bool {
	return c.Addr != ""
}

// NewRedisClient はRedisクライアントを作成し、疎通確認を行います。
//
// 処理の流れ:
//   - cfgのAddr/Password/DBでクライアントを作成
//   - PINGで接続を確認
//   - 失敗時はクライアントを閉じてエラーを返す
//
// 注意:
//   - 呼び出し側はエラー時にRedisなしで起動を続けるか判断する（共有クォータ利用時は必須）
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Redis connection failed", "address", cfg.Addr, "error", err)
		_ = rdb.Close()
		return nil, err
	}

	slog.Info("Redis connection successful", "address", cfg.Addr)
	return rdb, nil
}
