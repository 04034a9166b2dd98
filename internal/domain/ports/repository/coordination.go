package repository

import (
	"context"
	"time"
)

// Locker guards a short critical section across processes.
type Locker interface {
	// TryLock returns an unlock func, or ok=false when someone else holds key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// RateLimiter counts hits per key in a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Deduplicator remembers keys for ttl. FirstSeen is true only for the first
// caller that records key.
type Deduplicator interface {
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
