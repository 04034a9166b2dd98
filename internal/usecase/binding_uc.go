package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	"whatsapp-telegram-bridge/internal/infra/logging"
	"whatsapp-telegram-bridge/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ BindingUseCase = (*bindingUC)(nil)

// BindingUseCase resolves accounts from either side of the bridge and owns
// the instance binding.
type BindingUseCase interface {
	// ResolveByChannel and ResolveByInstance return domain.ErrNotFound when absent.
	ResolveByChannel(ctx context.Context, channelID string) (*model.Account, error)
	ResolveByInstance(ctx context.Context, instanceID int64) (*model.Account, error)
	// RegisterOrFetch creates the account on first contact and refreshes names otherwise.
	RegisterOrFetch(ctx context.Context, channelID, userName, firstName string) (*model.Account, bool, error)
	// Bind fails with *domain.ConflictError if another account holds the instance.
	Bind(ctx context.Context, channelID string, b model.Binding) (*model.Account, error)
	Unbind(ctx context.Context, channelID string) error
	// ReleaseInstance drops any binding to instanceID regardless of owner.
	ReleaseInstance(ctx context.Context, instanceID int64) error
}

const bindLockTTL = 10 * time.Second

type bindingUC struct {
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	locker   repository.Locker // optional
	log      *zerolog.Logger
}

func NewBindingUseCase(accounts repository.AccountRepository, tm repository.TransactionManager, locker repository.Locker, logger *zerolog.Logger) *bindingUC {
	return &bindingUC{
		accounts: accounts,
		tm:       tm,
		locker:   locker,
		log:      logger,
	}
}

func (u *bindingUC) ResolveByChannel(ctx context.Context, channelID string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "BindingUC.ResolveByChannel")()
	return u.accounts.FindByChannelID(ctx, repository.NoTX, channelID)
}

func (u *bindingUC) ResolveByInstance(ctx context.Context, instanceID int64) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "BindingUC.ResolveByInstance")()
	if instanceID <= 0 {
		return nil, domain.ErrNotFound
	}
	return u.accounts.FindByInstanceID(ctx, repository.NoTX, instanceID)
}

func (u *bindingUC) RegisterOrFetch(ctx context.Context, channelID, userName, firstName string) (*model.Account, bool, error) {
	defer logging.TraceDuration(u.log, "BindingUC.RegisterOrFetch")()

	var (
		acc     *model.Account
		created bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.accounts.FindByChannelID(ctx, tx, channelID)
		switch {
		case err == nil:
			changed := false
			if userName != "" && existing.UserName != userName {
				existing.UserName, changed = userName, true
			}
			if firstName != "" && existing.FirstName != firstName {
				existing.FirstName, changed = firstName, true
			}
			if changed {
				existing.Touch()
				if err := u.accounts.Save(ctx, tx, existing); err != nil {
					return err
				}
			}
			acc = existing
			return nil
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		na, err := model.NewAccount(channelID, userName, firstName)
		if err != nil {
			return err
		}
		if err := u.accounts.Save(ctx, tx, na); err != nil {
			return err
		}
		acc, created = na, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		metrics.IncAccountsCreated()
		u.log.Info().Str("channel_id", channelID).Msg("account created")
	}
	return acc, created, nil
}

func (u *bindingUC) Bind(ctx context.Context, channelID string, b model.Binding) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "BindingUC.Bind")()

	if b.InstanceID <= 0 || b.Token == "" {
		return nil, &domain.ValidationError{Field: "binding", Reason: "instance id and token are required"}
	}

	if u.locker != nil {
		unlock, ok, err := u.locker.TryLock(ctx, fmt.Sprintf("lock:bind:instance:%d", b.InstanceID), bindLockTTL)
		if err != nil {
			// the unique index still guards the invariant
			u.log.Warn().Err(err).Int64("instance_id", b.InstanceID).Msg("bind lock unavailable")
		} else if !ok {
			return nil, &domain.ConflictError{InstanceID: b.InstanceID}
		} else {
			defer unlock()
		}
	}

	var acc *model.Account
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		owner, err := u.accounts.FindByInstanceID(ctx, tx, b.InstanceID)
		switch {
		case err == nil && owner.ChannelID != channelID:
			return &domain.ConflictError{InstanceID: b.InstanceID}
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}

		if err := u.accounts.BindInstance(ctx, tx, channelID, b); err != nil {
			return err
		}
		acc, err = u.accounts.FindByChannelID(ctx, tx, channelID)
		return err
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("channel_id", channelID).Int64("instance_id", b.InstanceID).Msg("instance bound")
	return acc, nil
}

func (u *bindingUC) Unbind(ctx context.Context, channelID string) error {
	defer logging.TraceDuration(u.log, "BindingUC.Unbind")()
	return u.accounts.ClearBinding(ctx, repository.NoTX, channelID)
}

func (u *bindingUC) ReleaseInstance(ctx context.Context, instanceID int64) error {
	defer logging.TraceDuration(u.log, "BindingUC.ReleaseInstance")()
	return u.accounts.ClearInstance(ctx, repository.NoTX, instanceID)
}
