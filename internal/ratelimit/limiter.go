// Package ratelimit 以限流器名稱與客戶端 IP 為鍵做固定窗口計數
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Result 是一次計數的結果
type Result struct {
	Allowed    bool
	Count      int
	Limit      int
	ResetAt    time.Time
	RetryAfter int // 秒，只在 Allowed 為 false 時有意義
}

// Store 遞增 key 目前窗口的計數，上一個窗口過期時以 1 開始新窗口
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// Limiter 對 Store 產生的計數套用上限
type Limiter struct {
	store Store
	now   func() time.Time
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Allow 為 (name, clientIP) 計一次請求，被拒絕的請求同樣會遞增計數
func (l *Limiter) Allow(ctx context.Context, name, clientIP string, max int, window time.Duration) (*Result, error) {
	count, resetAt, err := l.store.Increment(ctx, Key(name, clientIP), window)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Allowed: count <= max,
		Count:   count,
		Limit:   max,
		ResetAt: resetAt,
	}
	if !result.Allowed {
		result.RetryAfter = retryAfter(resetAt.Sub(l.now()))
	}
	return result, nil
}

// Key 組出 bucket 的鍵
func Key(name, clientIP string) string {
	return name + ":" + clientIP
}

// retryAfter 把剩餘窗口無條件進位到秒，最少 1 秒
func retryAfter(remaining time.Duration) int {
	seconds := int(math.Ceil(remaining.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
