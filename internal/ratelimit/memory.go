package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultHighWater 是開始清理過期 bucket 的鍵數門檻
const DefaultHighWater = 5000

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore 把 bucket 存在行程記憶體，鍵數超過 high-water 後才回收過期的 bucket
type MemoryStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	highWater int
	now       func() time.Time
}

// NewMemoryStore 創建記憶體 store，highWater 不為正數時使用 DefaultHighWater
func NewMemoryStore(highWater int) *MemoryStore {
	if highWater <= 0 {
		highWater = DefaultHighWater
	}
	return &MemoryStore{
		buckets:   make(map[string]*bucket),
		highWater: highWater,
		now:       time.Now,
	}
}

func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.buckets) > s.highWater {
		s.sweep(now)
	}

	b, ok := s.buckets[key]
	if !ok || !b.resetAt.After(now) {
		b = &bucket{resetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++

	return b.count, b.resetAt, nil
}

// Len 回傳目前追蹤的鍵數
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *MemoryStore) sweep(now time.Time) {
	for key, b := range s.buckets {
		if !b.resetAt.After(now) {
			delete(s.buckets, key)
		}
	}
}
