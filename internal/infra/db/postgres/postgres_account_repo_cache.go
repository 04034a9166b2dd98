package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	"whatsapp-telegram-bridge/internal/infra/metrics"
	red "whatsapp-telegram-bridge/internal/infra/redis"
)

var _ repository.AccountRepository = (*accountRepoCacheDecorator)(nil)

const defaultAccountCacheTTL = 10 * time.Minute

// accountRepoCacheDecorator keeps two keys in Redis: the account JSON under
// its channel id, and the owning channel id under the instance id. Reads
// inside a transaction always go to the store.
type accountRepoCacheDecorator struct {
	inner repository.AccountRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewAccountRepoCacheDecorator(inner repository.AccountRepository, cache red.RedisClient, ttl time.Duration) repository.AccountRepository {
	if ttl <= 0 {
		ttl = defaultAccountCacheTTL
	}
	return &accountRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func channelKey(channelID string) string { return "account:channel:" + channelID }
func instanceKey(id int64) string        { return fmt.Sprintf("account:instance:%d", id) }

func (d *accountRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	_ = d.cache.Del(ctx, channelKey(a.ChannelID))
	return d.inner.Save(ctx, tx, a)
}

func (d *accountRepoCacheDecorator) FindByChannelID(ctx context.Context, tx repository.Tx, channelID string) (*model.Account, error) {
	if tx != nil {
		return d.inner.FindByChannelID(ctx, tx, channelID)
	}
	if val, err := d.cache.Get(ctx, channelKey(channelID)); err == nil {
		var a model.Account
		if json.Unmarshal([]byte(val), &a) == nil {
			metrics.IncAccountCacheLookup("channel", "hit")
			return &a, nil
		}
	}

	metrics.IncAccountCacheLookup("channel", "miss")
	a, err := d.inner.FindByChannelID(ctx, tx, channelID)
	if err != nil {
		return nil, err
	}
	d.store(ctx, a)
	return a, nil
}

// FindByInstanceID resolves the owner through the cached mapping and checks
// that the cached account still holds that instance before trusting it.
func (d *accountRepoCacheDecorator) FindByInstanceID(ctx context.Context, tx repository.Tx, instanceID int64) (*model.Account, error) {
	if tx != nil {
		return d.inner.FindByInstanceID(ctx, tx, instanceID)
	}
	if ch, err := d.cache.Get(ctx, instanceKey(instanceID)); err == nil && ch != "" {
		a, err := d.FindByChannelID(ctx, tx, ch)
		if err == nil && a.IsBound() && a.Binding.InstanceID == instanceID {
			metrics.IncAccountCacheLookup("instance", "hit")
			return a, nil
		}
		metrics.IncAccountCacheLookup("instance", "stale")
		_ = d.cache.Del(ctx, instanceKey(instanceID))
	} else {
		metrics.IncAccountCacheLookup("instance", "miss")
	}

	a, err := d.inner.FindByInstanceID(ctx, tx, instanceID)
	if err != nil {
		return nil, err
	}
	d.store(ctx, a)
	return a, nil
}

func (d *accountRepoCacheDecorator) store(ctx context.Context, a *model.Account) {
	if a == nil {
		return
	}
	bytes, err := json.Marshal(a)
	if err != nil {
		return
	}
	_ = d.cache.Set(ctx, channelKey(a.ChannelID), bytes, d.ttl)
	if a.IsBound() {
		_ = d.cache.Set(ctx, instanceKey(a.Binding.InstanceID), a.ChannelID, d.ttl)
	}
}

func (d *accountRepoCacheDecorator) BindInstance(ctx context.Context, tx repository.Tx, channelID string, b model.Binding) error {
	_ = d.cache.Del(ctx, channelKey(channelID), instanceKey(b.InstanceID))
	return d.inner.BindInstance(ctx, tx, channelID, b)
}

func (d *accountRepoCacheDecorator) ClearBinding(ctx context.Context, tx repository.Tx, channelID string) error {
	_ = d.cache.Del(ctx, channelKey(channelID))
	return d.inner.ClearBinding(ctx, tx, channelID)
}

func (d *accountRepoCacheDecorator) ClearInstance(ctx context.Context, tx repository.Tx, instanceID int64) error {
	keys := []string{instanceKey(instanceID)}
	if ch, err := d.cache.Get(ctx, instanceKey(instanceID)); err == nil && ch != "" {
		keys = append(keys, channelKey(ch))
	} else if owner, err := d.inner.FindByInstanceID(ctx, tx, instanceID); err == nil {
		keys = append(keys, channelKey(owner.ChannelID))
	}
	_ = d.cache.Del(ctx, keys...)
	return d.inner.ClearInstance(ctx, tx, instanceID)
}

func (d *accountRepoCacheDecorator) UpdateNotifications(ctx context.Context, tx repository.Tx, channelID string, p model.NotificationPrefs) error {
	_ = d.cache.Del(ctx, channelKey(channelID))
	return d.inner.UpdateNotifications(ctx, tx, channelID, p)
}

func (d *accountRepoCacheDecorator) SetRedirectTarget(ctx context.Context, tx repository.Tx, channelID, target string) error {
	_ = d.cache.Del(ctx, channelKey(channelID))
	return d.inner.SetRedirectTarget(ctx, tx, channelID, target)
}

func (d *accountRepoCacheDecorator) SetPartnerToken(ctx context.Context, tx repository.Tx, channelID, token string) error {
	_ = d.cache.Del(ctx, channelKey(channelID))
	return d.inner.SetPartnerToken(ctx, tx, channelID, token)
}

func (d *accountRepoCacheDecorator) SetLocale(ctx context.Context, tx repository.Tx, channelID string, l model.Locale) error {
	_ = d.cache.Del(ctx, channelKey(channelID))
	return d.inner.SetLocale(ctx, tx, channelID, l)
}
