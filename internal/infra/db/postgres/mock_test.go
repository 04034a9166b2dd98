//go:build !integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	red "whatsapp-telegram-bridge/internal/infra/redis"

	"github.com/go-redis/redis/v8"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerAccountRepo mocks the store the decorator wraps. Unset funcs
// return ErrNotFound for reads and nil for writes.
type mockInnerAccountRepo struct {
	mu    sync.Mutex
	calls []string

	SaveFunc             func(ctx context.Context, tx repository.Tx, a *model.Account) error
	FindByChannelIDFunc  func(ctx context.Context, tx repository.Tx, channelID string) (*model.Account, error)
	FindByInstanceIDFunc func(ctx context.Context, tx repository.Tx, instanceID int64) (*model.Account, error)
	ClearInstanceFunc    func(ctx context.Context, tx repository.Tx, instanceID int64) error
}

var _ repository.AccountRepository = (*mockInnerAccountRepo)(nil)

func (m *mockInnerAccountRepo) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockInnerAccountRepo) count(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *mockInnerAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	m.record("Save")
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, a)
	}
	return nil
}
func (m *mockInnerAccountRepo) FindByChannelID(ctx context.Context, tx repository.Tx, channelID string) (*model.Account, error) {
	m.record("FindByChannelID")
	if m.FindByChannelIDFunc != nil {
		return m.FindByChannelIDFunc(ctx, tx, channelID)
	}
	return nil, domain.ErrNotFound
}
func (m *mockInnerAccountRepo) FindByInstanceID(ctx context.Context, tx repository.Tx, instanceID int64) (*model.Account, error) {
	m.record("FindByInstanceID")
	if m.FindByInstanceIDFunc != nil {
		return m.FindByInstanceIDFunc(ctx, tx, instanceID)
	}
	return nil, domain.ErrNotFound
}
func (m *mockInnerAccountRepo) BindInstance(ctx context.Context, tx repository.Tx, channelID string, b model.Binding) error {
	m.record("BindInstance")
	return nil
}
func (m *mockInnerAccountRepo) ClearBinding(ctx context.Context, tx repository.Tx, channelID string) error {
	m.record("ClearBinding")
	return nil
}
func (m *mockInnerAccountRepo) ClearInstance(ctx context.Context, tx repository.Tx, instanceID int64) error {
	m.record("ClearInstance")
	if m.ClearInstanceFunc != nil {
		return m.ClearInstanceFunc(ctx, tx, instanceID)
	}
	return nil
}
func (m *mockInnerAccountRepo) UpdateNotifications(ctx context.Context, tx repository.Tx, channelID string, p model.NotificationPrefs) error {
	m.record("UpdateNotifications")
	return nil
}
func (m *mockInnerAccountRepo) SetRedirectTarget(ctx context.Context, tx repository.Tx, channelID, target string) error {
	m.record("SetRedirectTarget")
	return nil
}
func (m *mockInnerAccountRepo) SetPartnerToken(ctx context.Context, tx repository.Tx, channelID, token string) error {
	m.record("SetPartnerToken")
	return nil
}
func (m *mockInnerAccountRepo) SetLocale(ctx context.Context, tx repository.Tx, channelID string, l model.Locale) error {
	m.record("SetLocale")
	return nil
}

// mockRedisClient is a map-backed stand-in for our Redis client wrapper.
// GetFunc overrides the map lookup when set.
type mockRedisClient struct {
	mu      sync.Mutex
	data    map[string]string
	deleted []string

	GetFunc func(ctx context.Context, key string) (string, error)
}

var _ red.RedisClient = &mockRedisClient{}

func newMockRedis() *mockRedisClient {
	return &mockRedisClient{data: map[string]string{}}
}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	return nil
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	_, exists := m.data[key]
	m.mu.Unlock()
	if exists {
		return false, nil
	}
	return true, m.Set(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}
func (m *mockRedisClient) wasDeleted(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.deleted {
		if k == key {
			return true
		}
	}
	return false
}
func (m *mockRedisClient) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}
func (m *mockRedisClient) Ping(ctx context.Context) error {
	return nil
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return 1, nil
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, d time.Duration) error {
	return nil
}
func (m *mockRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return int64(0), nil
}
func (m *mockRedisClient) Close() error { return nil }
