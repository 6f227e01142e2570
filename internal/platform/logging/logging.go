// Package logging はプロセス全体で使うslogロガーを構成します。
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config はログのレベル、形式、出力先の設定です。
// Outputには"stdout"、"stderr"、またはlumberjackでローテーションされるファイルパスを指定します。
type Config struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// New はcfgからロガーを作成します。
//
// 設定:
//   - Level: debug / info / warn / error（デフォルトはinfo）
//   - Format: json または text（デフォルトはjson）
//   - Output: stdout / stderr / ファイルパス
//   - MaxSizeMB: ファイル出力時のローテーションサイズ（デフォルト100MB）
//
// 注意:
//   - 戻り値のio.Closerはファイル出力時にログファイルを閉じる。終了時に必ず呼ぶこと
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(orDefault(cfg.Level, "info"))); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch out := strings.TrimSpace(cfg.Output); out {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		lj := &lumberjack.Logger{
			Filename:   out,
			MaxSize:    orDefaultInt(cfg.MaxSizeMB, 100),
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w, closer = lj, lj
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(orDefault(cfg.Format, "json")) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	return slog.New(h), closer, nil
}

// Setup はロガーを作成し、slogのデフォルトとして設定します。
func Setup(cfg Config) (io.Closer, error) {
	logger, closer, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultInt(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
