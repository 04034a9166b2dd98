package usecase

import (
	"context"

	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	"whatsapp-telegram-bridge/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ PreferencesUseCase = (*preferencesUC)(nil)

// PreferencesUseCase mutates single-row account settings. Concurrent writes
// are last-write-wins.
type PreferencesUseCase interface {
	SetNotifications(ctx context.Context, channelID string, p model.NotificationPrefs) error
	SetRedirectTarget(ctx context.Context, channelID, target string) error
	ResetRedirectTarget(ctx context.Context, channelID string) error
	SetPartnerToken(ctx context.Context, channelID, token string) error
	SetLocale(ctx context.Context, channelID string, l model.Locale) error
}

type preferencesUC struct {
	accounts repository.AccountRepository
	log      *zerolog.Logger
}

func NewPreferencesUseCase(accounts repository.AccountRepository, logger *zerolog.Logger) *preferencesUC {
	return &preferencesUC{accounts: accounts, log: logger}
}

func (u *preferencesUC) SetNotifications(ctx context.Context, channelID string, p model.NotificationPrefs) error {
	defer logging.TraceDuration(u.log, "PreferencesUC.SetNotifications")()
	return u.accounts.UpdateNotifications(ctx, repository.NoTX, channelID, p)
}

func (u *preferencesUC) SetRedirectTarget(ctx context.Context, channelID, target string) error {
	defer logging.TraceDuration(u.log, "PreferencesUC.SetRedirectTarget")()
	if target == "" {
		return &domain.ValidationError{Field: "target", Reason: "empty"}
	}
	return u.accounts.SetRedirectTarget(ctx, repository.NoTX, channelID, target)
}

func (u *preferencesUC) ResetRedirectTarget(ctx context.Context, channelID string) error {
	defer logging.TraceDuration(u.log, "PreferencesUC.ResetRedirectTarget")()
	return u.accounts.SetRedirectTarget(ctx, repository.NoTX, channelID, "")
}

func (u *preferencesUC) SetPartnerToken(ctx context.Context, channelID, token string) error {
	defer logging.TraceDuration(u.log, "PreferencesUC.SetPartnerToken")()
	if token == "" {
		return &domain.ValidationError{Field: "partner_token", Reason: "empty"}
	}
	return u.accounts.SetPartnerToken(ctx, repository.NoTX, channelID, token)
}

func (u *preferencesUC) SetLocale(ctx context.Context, channelID string, l model.Locale) error {
	defer logging.TraceDuration(u.log, "PreferencesUC.SetLocale")()
	if _, ok := model.ParseLocale(string(l)); !ok {
		return &domain.ValidationError{Field: "locale", Reason: "unsupported"}
	}
	return u.accounts.SetLocale(ctx, repository.NoTX, channelID, l)
}
