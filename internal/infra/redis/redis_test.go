//go:build !integration

package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// memClient is an in-memory RedisClient. Expiry is recorded, not enforced.
type memClient struct {
	mu      sync.Mutex
	data    map[string]string
	expires map[string]time.Duration

	SetNXFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	IncrFunc  func(ctx context.Context, key string) (int64, error)
}

var _ RedisClient = (*memClient)(nil)

func newMemClient() *memClient {
	return &memClient{data: map[string]string{}, expires: map[string]time.Duration{}}
}

func (m *memClient) Ping(context.Context) error { return nil }

func (m *memClient) Set(_ context.Context, key string, value interface{}, exp time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.expires[key] = exp
	return nil
}

func (m *memClient) SetNX(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, exp)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	m.expires[key] = exp
	return true, nil
}

func (m *memClient) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memClient) Incr(ctx context.Context, key string) (int64, error) {
	if m.IncrFunc != nil {
		return m.IncrFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	fmt.Sscan(m.data[key], &n)
	n++
	m.data[key] = fmt.Sprint(n)
	return n, nil
}

func (m *memClient) Expire(_ context.Context, key string, exp time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = exp
	return nil
}

func (m *memClient) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Eval understands only the compare-and-delete unlock script.
func (m *memClient) Eval(_ context.Context, _ string, keys []string, args ...interface{}) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[keys[0]] == fmt.Sprint(args[0]) {
		delete(m.data, keys[0])
		return int64(1), nil
	}
	return int64(0), nil
}

func (m *memClient) Close() error { return nil }

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("second caller is refused until unlock", func(t *testing.T) {
		// Arrange
		cli := newMemClient()
		l := NewLocker(cli)
		l.wait = time.Millisecond

		// Act
		unlock, ok, err := l.TryLock(ctx, "lock:bind:instance:1", time.Second)
		_, ok2, err2 := l.TryLock(ctx, "lock:bind:instance:1", time.Second)

		// Assert
		if err != nil || !ok {
			t.Fatalf("first TryLock: ok=%v err=%v", ok, err)
		}
		if err2 != nil || ok2 {
			t.Fatalf("second TryLock: ok=%v err=%v", ok2, err2)
		}
		unlock()
		if _, ok3, _ := l.TryLock(ctx, "lock:bind:instance:1", time.Second); !ok3 {
			t.Error("lock should be free after unlock")
		}
	})

	t.Run("unlock does not release a lock taken over by someone else", func(t *testing.T) {
		cli := newMemClient()
		l := NewLocker(cli)
		unlock, _, _ := l.TryLock(ctx, "k", time.Second)

		// simulate expiry and takeover
		_ = cli.Set(ctx, "k", "other-token", time.Second)
		unlock()

		if v, _ := cli.Get(ctx, "k"); v != "other-token" {
			t.Errorf("foreign lock was released, value=%q", v)
		}
	})

	t.Run("store errors are returned", func(t *testing.T) {
		cli := newMemClient()
		cli.SetNXFunc = func(context.Context, string, interface{}, time.Duration) (bool, error) {
			return false, errors.New("connection refused")
		}
		l := NewLocker(cli)
		l.wait = time.Millisecond

		if _, _, err := l.TryLock(ctx, "k", time.Second); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	cli := newMemClient()
	rl := NewRateLimiter(cli)

	for i := 1; i <= 3; i++ {
		ok, err := rl.Allow(ctx, "ratelimit:cmd:1", 2, time.Minute)
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if want := i <= 2; ok != want {
			t.Errorf("hit %d: allowed=%v, want %v", i, ok, want)
		}
	}
	if cli.expires["ratelimit:cmd:1"] != time.Minute {
		t.Errorf("window not applied: %v", cli.expires["ratelimit:cmd:1"])
	}

	cli.IncrFunc = func(context.Context, string) (int64, error) { return 0, errors.New("down") }
	if _, err := rl.Allow(ctx, "x", 1, time.Minute); err == nil {
		t.Error("expected error")
	}
}

func TestDeduplicator(t *testing.T) {
	ctx := context.Background()
	d := NewDeduplicator(newMemClient())

	first, err := d.FirstSeen(ctx, "dedup:1:incomingMessageReceived:M1:", time.Hour)
	if err != nil || !first {
		t.Fatalf("first: %v %v", first, err)
	}
	again, _ := d.FirstSeen(ctx, "dedup:1:incomingMessageReceived:M1:", time.Hour)
	if again {
		t.Error("second sighting reported as first")
	}
}

func TestIsMiss(t *testing.T) {
	if !IsMiss(redis.Nil) || IsMiss(errors.New("other")) {
		t.Error("IsMiss mismatch")
	}
}
