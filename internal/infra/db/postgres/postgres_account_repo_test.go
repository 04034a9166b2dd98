//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v4"

	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	"whatsapp-telegram-bridge/internal/infra/security"
)

func TestAccountRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	cipher, err := security.NewAESCipher("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewAESCipher: %v", err)
	}
	repo := NewAccountRepo(testPool, cipher)
	ctx := context.Background()

	t.Run("should perform full lifecycle", func(t *testing.T) {
		cleanup(t)

		// 1. Create
		acc, err := model.NewAccount("1001", "alice", "Alice")
		if err != nil {
			t.Fatalf("model.NewAccount() failed: %v", err)
		}
		if err := repo.Save(ctx, nil, acc); err != nil {
			t.Fatalf("Failed to save account: %v", err)
		}

		// 2. Read back
		found, err := repo.FindByChannelID(ctx, nil, "1001")
		if err != nil {
			t.Fatalf("FindByChannelID: %v", err)
		}
		if found.ID != acc.ID || found.Locale != model.LocaleEN || found.IsBound() {
			t.Errorf("unexpected account %+v", found)
		}

		// 3. Bind and look up by instance
		if err := repo.BindInstance(ctx, nil, "1001", model.Binding{InstanceID: 1101000001, Token: "secret"}); err != nil {
			t.Fatalf("BindInstance: %v", err)
		}
		byInstance, err := repo.FindByInstanceID(ctx, nil, 1101000001)
		if err != nil {
			t.Fatalf("FindByInstanceID: %v", err)
		}
		if byInstance.ChannelID != "1001" || byInstance.Binding.Token != "secret" {
			t.Errorf("unexpected binding %+v", byInstance.Binding)
		}

		// 4. Token is sealed at rest
		var raw string
		if err := testPool.QueryRow(ctx, `SELECT instance_token FROM accounts WHERE channel_id='1001'`).Scan(&raw); err != nil {
			t.Fatalf("raw select: %v", err)
		}
		if raw == "secret" {
			t.Error("instance token stored in plaintext")
		}

		// 5. Settings
		if err := repo.UpdateNotifications(ctx, nil, "1001", model.NotificationPrefs{Incoming: true}); err != nil {
			t.Fatalf("UpdateNotifications: %v", err)
		}
		if err := repo.SetRedirectTarget(ctx, nil, "1001", "@ops"); err != nil {
			t.Fatalf("SetRedirectTarget: %v", err)
		}
		if err := repo.SetPartnerToken(ctx, nil, "1001", "ptok"); err != nil {
			t.Fatalf("SetPartnerToken: %v", err)
		}
		if err := repo.SetLocale(ctx, nil, "1001", model.LocaleRU); err != nil {
			t.Fatalf("SetLocale: %v", err)
		}
		found, _ = repo.FindByChannelID(ctx, nil, "1001")
		if found.Notifications.Outgoing || found.RedirectTarget != "@ops" || found.PartnerToken != "ptok" || found.Locale != model.LocaleRU {
			t.Errorf("settings not persisted: %+v", found)
		}

		// 6. Save keeps binding and settings
		found.UserName = "alice2"
		if err := repo.Save(ctx, nil, found); err != nil {
			t.Fatalf("Save update: %v", err)
		}
		found, _ = repo.FindByChannelID(ctx, nil, "1001")
		if found.UserName != "alice2" || !found.IsBound() {
			t.Errorf("profile update lost state: %+v", found)
		}

		// 7. Clear
		if err := repo.SetRedirectTarget(ctx, nil, "1001", ""); err != nil {
			t.Fatalf("reset redirect: %v", err)
		}
		if err := repo.ClearBinding(ctx, nil, "1001"); err != nil {
			t.Fatalf("ClearBinding: %v", err)
		}
		found, _ = repo.FindByChannelID(ctx, nil, "1001")
		if found.IsBound() || found.RedirectTarget != "" {
			t.Errorf("expected cleared account, got %+v", found)
		}
	})

	t.Run("instance belongs to one account", func(t *testing.T) {
		cleanup(t)
		for _, ch := range []string{"1", "2"} {
			a, _ := model.NewAccount(ch, "", "")
			if err := repo.Save(ctx, nil, a); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}
		if err := repo.BindInstance(ctx, nil, "1", model.Binding{InstanceID: 42, Token: "t"}); err != nil {
			t.Fatalf("first bind: %v", err)
		}

		err := repo.BindInstance(ctx, nil, "2", model.Binding{InstanceID: 42, Token: "t"})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}

		if err := repo.ClearInstance(ctx, nil, 42); err != nil {
			t.Fatalf("ClearInstance: %v", err)
		}
		if err := repo.BindInstance(ctx, nil, "2", model.Binding{InstanceID: 42, Token: "t"}); err != nil {
			t.Fatalf("bind after release: %v", err)
		}
	})

	t.Run("missing rows map to ErrNotFound", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByChannelID(ctx, nil, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("FindByChannelID: %v", err)
		}
		if _, err := repo.FindByInstanceID(ctx, nil, 9); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("FindByInstanceID: %v", err)
		}
		if err := repo.SetLocale(ctx, nil, "nope", model.LocaleRU); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("SetLocale: %v", err)
		}
		if err := repo.ClearInstance(ctx, nil, 9); err != nil {
			t.Errorf("ClearInstance on unknown id: %v", err)
		}
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		cleanup(t)
		tm := NewTxManager(testPool)
		boom := errors.New("boom")

		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			a, _ := model.NewAccount("77", "", "")
			if err := repo.Save(ctx, tx, a); err != nil {
				return err
			}
			return boom
		})

		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if _, err := repo.FindByChannelID(ctx, nil, "77"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("row should not survive rollback: %v", err)
		}
	})
}
