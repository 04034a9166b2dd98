//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
)

func boundAccount() *model.Account {
	return &model.Account{
		ID:            "acc-1",
		ChannelID:     "1001",
		UserName:      "alice",
		FirstName:     "Alice",
		Locale:        model.LocaleEN,
		Binding:       &model.Binding{InstanceID: 1101000001, Token: "tok"},
		Notifications: model.DefaultNotificationPrefs(),
	}
}

func TestAccountRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()

	t.Run("FindByChannelID fills both keys on miss", func(t *testing.T) {
		// Arrange
		cache := newMockRedis()
		inner := &mockInnerAccountRepo{
			FindByChannelIDFunc: func(ctx context.Context, tx repository.Tx, channelID string) (*model.Account, error) {
				return boundAccount(), nil
			},
		}
		d := NewAccountRepoCacheDecorator(inner, cache, 0)

		// Act
		got, err := d.FindByChannelID(ctx, nil, "1001")

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Binding == nil || got.Binding.InstanceID != 1101000001 {
			t.Fatalf("unexpected account %+v", got)
		}
		if !cache.has("account:channel:1001") || !cache.has("account:instance:1101000001") {
			t.Error("cache was not warmed for both keys")
		}
	})

	t.Run("FindByChannelID serves a hit without touching the store", func(t *testing.T) {
		// Arrange
		cache := newMockRedis()
		raw, _ := json.Marshal(boundAccount())
		cache.data["account:channel:1001"] = string(raw)
		inner := &mockInnerAccountRepo{}
		d := NewAccountRepoCacheDecorator(inner, cache, 0)

		// Act
		got, err := d.FindByChannelID(ctx, nil, "1001")

		// Assert
		if err != nil || got.UserName != "alice" {
			t.Fatalf("got %+v, %v", got, err)
		}
		if n := inner.count("FindByChannelID"); n != 0 {
			t.Errorf("inner called %d times on a hit", n)
		}
	})

	t.Run("FindByInstanceID follows the mapping", func(t *testing.T) {
		// Arrange
		cache := newMockRedis()
		raw, _ := json.Marshal(boundAccount())
		cache.data["account:channel:1001"] = string(raw)
		cache.data["account:instance:1101000001"] = "1001"
		inner := &mockInnerAccountRepo{}
		d := NewAccountRepoCacheDecorator(inner, cache, 0)

		// Act
		got, err := d.FindByInstanceID(ctx, nil, 1101000001)

		// Assert
		if err != nil || got.ChannelID != "1001" {
			t.Fatalf("got %+v, %v", got, err)
		}
		if inner.count("FindByInstanceID") != 0 {
			t.Error("store should not be queried when the mapping is fresh")
		}
	})

	t.Run("stale mapping falls through to the store", func(t *testing.T) {
		// Arrange
		cache := newMockRedis()
		unbound := boundAccount()
		unbound.Binding = nil
		raw, _ := json.Marshal(unbound)
		cache.data["account:channel:1001"] = string(raw)
		cache.data["account:instance:1101000001"] = "1001"
		inner := &mockInnerAccountRepo{}
		d := NewAccountRepoCacheDecorator(inner, cache, 0)

		// Act
		_, err := d.FindByInstanceID(ctx, nil, 1101000001)

		// Assert
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if inner.count("FindByInstanceID") != 1 {
			t.Error("store should be consulted once")
		}
		if cache.has("account:instance:1101000001") {
			t.Error("stale mapping should be dropped")
		}
	})

	t.Run("reads inside a transaction bypass the cache", func(t *testing.T) {
		// Arrange
		cache := newMockRedis()
		raw, _ := json.Marshal(boundAccount())
		cache.data["account:channel:1001"] = string(raw)
		inner := &mockInnerAccountRepo{}
		d := NewAccountRepoCacheDecorator(inner, cache, 0)

		// Act
		_, err := d.FindByChannelID(ctx, struct{}{}, "1001")

		// Assert
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected store result, got %v", err)
		}
		if inner.count("FindByChannelID") != 1 {
			t.Error("store should be queried inside a transaction")
		}
	})

	t.Run("writes invalidate the channel key", func(t *testing.T) {
		cache := newMockRedis()
		inner := &mockInnerAccountRepo{}
		d := NewAccountRepoCacheDecorator(inner, cache, 0)

		_ = d.Save(ctx, nil, boundAccount())
		_ = d.SetLocale(ctx, nil, "1002", model.LocaleRU)
		_ = d.SetRedirectTarget(ctx, nil, "1003", "@ops")
		_ = d.BindInstance(ctx, nil, "1004", model.Binding{InstanceID: 7, Token: "t"})

		for _, k := range []string{
			"account:channel:1001", "account:channel:1002", "account:channel:1003",
			"account:channel:1004", "account:instance:7",
		} {
			if !cache.wasDeleted(k) {
				t.Errorf("key %s was not invalidated", k)
			}
		}
	})

	t.Run("ClearInstance resolves the owner to invalidate its channel", func(t *testing.T) {
		// Arrange
		cache := newMockRedis()
		inner := &mockInnerAccountRepo{
			FindByInstanceIDFunc: func(ctx context.Context, tx repository.Tx, instanceID int64) (*model.Account, error) {
				return boundAccount(), nil
			},
		}
		d := NewAccountRepoCacheDecorator(inner, cache, 0)

		// Act
		err := d.ClearInstance(ctx, nil, 1101000001)

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !cache.wasDeleted("account:channel:1001") || !cache.wasDeleted("account:instance:1101000001") {
			t.Error("both keys should be invalidated")
		}
		if inner.count("ClearInstance") != 1 {
			t.Error("inner ClearInstance not called")
		}
	})
}
