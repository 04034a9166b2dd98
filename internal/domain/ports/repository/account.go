package repository

import (
	"context"

	"whatsapp-telegram-bridge/internal/domain/model"
)

// AccountRepository persists one row per bot-platform user.
// Lookups return domain.ErrNotFound when no row matches. BindInstance
// returns *domain.ConflictError when the instance is bound to another row.
type AccountRepository interface {
	// Save inserts a new account or refreshes the profile fields (names and
	// timestamps) of an existing one.
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByChannelID(ctx context.Context, tx Tx, channelID string) (*model.Account, error)
	FindByInstanceID(ctx context.Context, tx Tx, instanceID int64) (*model.Account, error)

	BindInstance(ctx context.Context, tx Tx, channelID string, b model.Binding) error
	ClearBinding(ctx context.Context, tx Tx, channelID string) error
	// ClearInstance drops whichever binding points at instanceID; no-op when none.
	ClearInstance(ctx context.Context, tx Tx, instanceID int64) error

	UpdateNotifications(ctx context.Context, tx Tx, channelID string, p model.NotificationPrefs) error
	SetRedirectTarget(ctx context.Context, tx Tx, channelID, target string) error
	SetPartnerToken(ctx context.Context, tx Tx, channelID, token string) error
	SetLocale(ctx context.Context, tx Tx, channelID string, l model.Locale) error
}
