//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/adapter"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	"whatsapp-telegram-bridge/internal/infra/i18n"
)

// =============================
// Repositories
// =============================

// ---- In-memory AccountRepository ----

type MockAccountRepo struct {
	mu         sync.Mutex
	byChannel  map[string]*model.Account
	byInstance map[int64]string

	FindByInstanceIDFunc func(ctx context.Context, tx repository.Tx, instanceID int64) (*model.Account, error)
	BindInstanceFunc     func(ctx context.Context, tx repository.Tx, channelID string, b model.Binding) error
	SaveFunc             func(ctx context.Context, tx repository.Tx, a *model.Account) error
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func NewMockAccountRepo() *MockAccountRepo {
	return &MockAccountRepo{
		byChannel:  make(map[string]*model.Account),
		byInstance: make(map[int64]string),
	}
}

func cloneAccount(a *model.Account) *model.Account {
	cp := *a
	if a.Binding != nil {
		b := *a.Binding
		cp.Binding = &b
	}
	return &cp
}

// seed stores a copy of a, indexing its binding.
func (m *MockAccountRepo) seed(a *model.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byChannel[a.ChannelID] = cloneAccount(a)
	if a.Binding != nil {
		m.byInstance[a.Binding.InstanceID] = a.ChannelID
	}
}

func (m *MockAccountRepo) get(channelID string) *model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byChannel[channelID]
	if !ok {
		return nil
	}
	return cloneAccount(a)
}

func (m *MockAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, a)
	}
	m.seed(a)
	return nil
}

func (m *MockAccountRepo) FindByChannelID(_ context.Context, _ repository.Tx, channelID string) (*model.Account, error) {
	if a := m.get(channelID); a != nil {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccountRepo) FindByInstanceID(ctx context.Context, tx repository.Tx, instanceID int64) (*model.Account, error) {
	if m.FindByInstanceIDFunc != nil {
		return m.FindByInstanceIDFunc(ctx, tx, instanceID)
	}
	m.mu.Lock()
	ch, ok := m.byInstance[instanceID]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.FindByChannelID(ctx, tx, ch)
}

func (m *MockAccountRepo) BindInstance(ctx context.Context, tx repository.Tx, channelID string, b model.Binding) error {
	if m.BindInstanceFunc != nil {
		return m.BindInstanceFunc(ctx, tx, channelID, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byChannel[channelID]
	if !ok {
		return domain.ErrNotFound
	}
	if owner, taken := m.byInstance[b.InstanceID]; taken && owner != channelID {
		return &domain.ConflictError{InstanceID: b.InstanceID}
	}
	if a.Binding != nil {
		delete(m.byInstance, a.Binding.InstanceID)
	}
	bb := b
	a.Binding = &bb
	m.byInstance[b.InstanceID] = channelID
	return nil
}

func (m *MockAccountRepo) ClearBinding(_ context.Context, _ repository.Tx, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byChannel[channelID]
	if !ok {
		return domain.ErrNotFound
	}
	if a.Binding != nil {
		delete(m.byInstance, a.Binding.InstanceID)
		a.Binding = nil
	}
	return nil
}

func (m *MockAccountRepo) ClearInstance(_ context.Context, _ repository.Tx, instanceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.byInstance[instanceID]; ok {
		m.byChannel[ch].Binding = nil
		delete(m.byInstance, instanceID)
	}
	return nil
}

func (m *MockAccountRepo) update(channelID string, fn func(a *model.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byChannel[channelID]
	if !ok {
		return domain.ErrNotFound
	}
	fn(a)
	return nil
}

func (m *MockAccountRepo) UpdateNotifications(_ context.Context, _ repository.Tx, channelID string, p model.NotificationPrefs) error {
	return m.update(channelID, func(a *model.Account) { a.Notifications = p })
}

func (m *MockAccountRepo) SetRedirectTarget(_ context.Context, _ repository.Tx, channelID, target string) error {
	return m.update(channelID, func(a *model.Account) { a.RedirectTarget = target })
}

func (m *MockAccountRepo) SetPartnerToken(_ context.Context, _ repository.Tx, channelID, token string) error {
	return m.update(channelID, func(a *model.Account) { a.PartnerToken = token })
}

func (m *MockAccountRepo) SetLocale(_ context.Context, _ repository.Tx, channelID string, l model.Locale) error {
	return m.update(channelID, func(a *model.Account) { a.Locale = l })
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	// By default, execute the function immediately with NoTX.
	return fn(ctx, repository.NoTX)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	Calls int

	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (func(), bool, error)
}

var _ repository.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker { return &MockLocker{held: make(map[string]bool)} }

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return nil, false, nil
	}
	m.held[key] = true
	return func() {
		m.mu.Lock()
		delete(m.held, key)
		m.mu.Unlock()
	}, true, nil
}

// ---- Mock RateLimiter ----

type MockLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var _ repository.RateLimiter = (*MockLimiter)(nil)

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, nil
}

// ---- In-memory Deduplicator ----

type MockDedup struct {
	mu   sync.Mutex
	seen map[string]bool

	FirstSeenFunc func(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

var _ repository.Deduplicator = (*MockDedup)(nil)

func NewMockDedup() *MockDedup { return &MockDedup{seen: make(map[string]bool)} }

func (m *MockDedup) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.FirstSeenFunc != nil {
		return m.FirstSeenFunc(ctx, key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

// =============================
// Adapters
// =============================

// ---- Mock BotTransport ----

type MockBotTransport struct {
	mu   sync.Mutex
	Sent []model.OutboundMessage

	SendFunc func(ctx context.Context, msg model.OutboundMessage) error
}

var _ adapter.BotTransport = (*MockBotTransport)(nil)

func (m *MockBotTransport) Send(ctx context.Context, msg model.OutboundMessage) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return nil
}

func (m *MockBotTransport) SetWebhook(context.Context, string) error { return nil }

func (m *MockBotTransport) GetWebhookInfo(context.Context) (adapter.WebhookInfo, error) {
	return adapter.WebhookInfo{}, nil
}

func (m *MockBotTransport) DeleteWebhook(context.Context, bool) error { return nil }

func (m *MockBotTransport) sent() []model.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.OutboundMessage(nil), m.Sent...)
}

// ---- Mock GatewayClient ----

type MockGateway struct {
	mu       sync.Mutex
	Settings []adapter.InstanceSettings

	GetStateFunc    func(ctx context.Context, b model.Binding) (string, error)
	GetSettingsFunc func(ctx context.Context, b model.Binding) (adapter.InstanceSettings, error)
	SetSettingsFunc func(ctx context.Context, b model.Binding, s adapter.InstanceSettings) error
	SendMessageFunc func(ctx context.Context, b model.Binding, chatID, message string) (string, error)
}

var _ adapter.GatewayClient = (*MockGateway)(nil)

func (m *MockGateway) GetState(ctx context.Context, b model.Binding) (string, error) {
	if m.GetStateFunc != nil {
		return m.GetStateFunc(ctx, b)
	}
	return "authorized", nil
}

func (m *MockGateway) GetSettings(ctx context.Context, b model.Binding) (adapter.InstanceSettings, error) {
	if m.GetSettingsFunc != nil {
		return m.GetSettingsFunc(ctx, b)
	}
	return adapter.InstanceSettings{Wid: "79001234567@c.us", IncomingWebhook: "yes", OutgoingWebhook: "no", StateWebhook: "yes"}, nil
}

func (m *MockGateway) SetSettings(ctx context.Context, b model.Binding, s adapter.InstanceSettings) error {
	if m.SetSettingsFunc != nil {
		return m.SetSettingsFunc(ctx, b, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Settings = append(m.Settings, s)
	return nil
}

func (m *MockGateway) SendMessage(ctx context.Context, b model.Binding, chatID, message string) (string, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, b, chatID, message)
	}
	return "BAE5F4886F6F2D05", nil
}

// ---- Mock PartnerClient ----

type MockPartner struct {
	CreateInstanceFunc        func(ctx context.Context, token string) (adapter.CreatedInstance, error)
	GetInstancesFunc          func(ctx context.Context, token string) ([]adapter.PartnerInstance, error)
	DeleteInstanceAccountFunc func(ctx context.Context, token string, id int64) error
}

var _ adapter.PartnerClient = (*MockPartner)(nil)

func (m *MockPartner) CreateInstance(ctx context.Context, token string) (adapter.CreatedInstance, error) {
	if m.CreateInstanceFunc != nil {
		return m.CreateInstanceFunc(ctx, token)
	}
	return adapter.CreatedInstance{IDInstance: 1101000001, APITokenInstance: "new-token"}, nil
}

func (m *MockPartner) GetInstances(ctx context.Context, token string) ([]adapter.PartnerInstance, error) {
	if m.GetInstancesFunc != nil {
		return m.GetInstancesFunc(ctx, token)
	}
	return nil, nil
}

func (m *MockPartner) DeleteInstanceAccount(ctx context.Context, token string, id int64) error {
	if m.DeleteInstanceAccountFunc != nil {
		return m.DeleteInstanceAccountFunc(ctx, token, id)
	}
	return nil
}

// ---- Static webhook token issuer ----

type staticIssuer string

func (s staticIssuer) Issue(int64) (string, error) { return string(s), nil }

// =============================
// Helpers
// =============================

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newTestCatalog(t *testing.T) *i18n.Catalog {
	t.Helper()
	cat, err := i18n.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

// boundAccount returns a stored account with the given instance binding.
func boundAccount(channelID string, instanceID int64) *model.Account {
	a, _ := model.NewAccount(channelID, "alice", "Alice")
	if instanceID > 0 {
		a.Binding = &model.Binding{InstanceID: instanceID, Token: "tok"}
	}
	return a
}
