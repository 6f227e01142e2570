// Package ratelimiter は上流APIへの呼び出し間隔を調整します。
package ratelimiter

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter はinterval当たりlimit回までの呼び出しを均等な間隔で許可します。
// 複数goroutineから安全に利用できます。
type RateLimiter struct {
	limiter *rate.Limiter
	limit   int
}

// NewRateLimiter はinterval当たりlimit回のリミッターを作成します。
// limitが0以下の場合は制限しません。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	if limit <= 0 || interval <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	every := rate.Every(interval / time.Duration(limit))
	return &RateLimiter{limiter: rate.NewLimiter(every, 1), limit: limit}
}

// Wait は次の呼び出しが可能になるか、ctxが終了するまで待機します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	r := rl.limiter.Reserve()
	if !r.OK() {
		return rl.limiter.Wait(ctx)
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	slog.Debug("rate limit reached, waiting", "limit_per_interval", rl.limit, "delay", delay)

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}
