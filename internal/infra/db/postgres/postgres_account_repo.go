package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	"whatsapp-telegram-bridge/internal/infra/security"
)

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

type PostgresAccountRepo struct {
	pool   *pgxpool.Pool
	cipher security.TokenCipher
}

func NewAccountRepo(pool *pgxpool.Pool, cipher security.TokenCipher) *PostgresAccountRepo {
	if cipher == nil {
		cipher = security.PlainCipher{}
	}
	return &PostgresAccountRepo{pool: pool, cipher: cipher}
}

const accountColumns = `
id, channel_id, user_name, first_name, locale,
instance_id, instance_token,
notify_incoming, notify_outgoing, notify_state,
redirect_target, partner_token, created_at, updated_at`

// Save inserts a new account or refreshes the profile fields of an existing
// one. Binding and settings are only changed through their setters.
func (r *PostgresAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (` + accountColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULLIF($11,''),NULLIF($12,''),$13,$14)
ON CONFLICT (channel_id) DO UPDATE SET
  user_name=EXCLUDED.user_name, first_name=EXCLUDED.first_name, updated_at=EXCLUDED.updated_at;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	var (
		instanceID *int64
		token      *string
	)
	if a.Binding != nil {
		sealed, err := r.cipher.Seal(a.Binding.Token)
		if err != nil {
			return err
		}
		instanceID, token = &a.Binding.InstanceID, &sealed
	}
	partner, err := r.cipher.Seal(a.PartnerToken)
	if err != nil {
		return err
	}

	_, err = ex.Exec(ctx, q,
		a.ID, a.ChannelID, a.UserName, a.FirstName, string(a.Locale),
		instanceID, token,
		a.Notifications.Incoming, a.Notifications.Outgoing, a.Notifications.State,
		a.RedirectTarget, partner, a.CreatedAt, a.UpdatedAt,
	)
	if isPgCode(err, pgUniqueViolation) && instanceID != nil {
		return &domain.ConflictError{InstanceID: *instanceID}
	}
	return err
}

func (r *PostgresAccountRepo) FindByChannelID(ctx context.Context, tx repository.Tx, channelID string) (*model.Account, error) {
	return r.findOne(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE channel_id=$1;`, channelID)
}

func (r *PostgresAccountRepo) FindByInstanceID(ctx context.Context, tx repository.Tx, instanceID int64) (*model.Account, error) {
	return r.findOne(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE instance_id=$1;`, instanceID)
}

func (r *PostgresAccountRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Account, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var (
		a          model.Account
		locale     string
		instanceID *int64
		token      *string
		redirect   *string
		partner    *string
	)
	err = ex.QueryRow(ctx, q, arg).Scan(
		&a.ID, &a.ChannelID, &a.UserName, &a.FirstName, &locale,
		&instanceID, &token,
		&a.Notifications.Incoming, &a.Notifications.Outgoing, &a.Notifications.State,
		&redirect, &partner, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	a.Locale = model.Locale(locale)
	if instanceID != nil {
		b := model.Binding{InstanceID: *instanceID}
		if token != nil {
			if b.Token, err = r.cipher.Open(*token); err != nil {
				return nil, fmt.Errorf("open instance token: %w", err)
			}
		}
		a.Binding = &b
	}
	if redirect != nil {
		a.RedirectTarget = *redirect
	}
	if partner != nil {
		if a.PartnerToken, err = r.cipher.Open(*partner); err != nil {
			return nil, fmt.Errorf("open partner token: %w", err)
		}
	}
	return &a, nil
}

func (r *PostgresAccountRepo) BindInstance(ctx context.Context, tx repository.Tx, channelID string, b model.Binding) error {
	sealed, err := r.cipher.Seal(b.Token)
	if err != nil {
		return err
	}
	err = r.execOne(ctx, tx, `
UPDATE accounts SET instance_id=$2, instance_token=$3, updated_at=now() WHERE channel_id=$1;`,
		channelID, b.InstanceID, sealed)
	if isPgCode(err, pgUniqueViolation) {
		return &domain.ConflictError{InstanceID: b.InstanceID}
	}
	return err
}

func (r *PostgresAccountRepo) ClearBinding(ctx context.Context, tx repository.Tx, channelID string) error {
	return r.execOne(ctx, tx, `
UPDATE accounts SET instance_id=NULL, instance_token=NULL, updated_at=now() WHERE channel_id=$1;`, channelID)
}

func (r *PostgresAccountRepo) ClearInstance(ctx context.Context, tx repository.Tx, instanceID int64) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
UPDATE accounts SET instance_id=NULL, instance_token=NULL, updated_at=now() WHERE instance_id=$1;`, instanceID)
	return err
}

func (r *PostgresAccountRepo) UpdateNotifications(ctx context.Context, tx repository.Tx, channelID string, p model.NotificationPrefs) error {
	return r.execOne(ctx, tx, `
UPDATE accounts SET notify_incoming=$2, notify_outgoing=$3, notify_state=$4, updated_at=now() WHERE channel_id=$1;`,
		channelID, p.Incoming, p.Outgoing, p.State)
}

func (r *PostgresAccountRepo) SetRedirectTarget(ctx context.Context, tx repository.Tx, channelID, target string) error {
	return r.execOne(ctx, tx, `
UPDATE accounts SET redirect_target=NULLIF($2,''), updated_at=now() WHERE channel_id=$1;`, channelID, target)
}

func (r *PostgresAccountRepo) SetPartnerToken(ctx context.Context, tx repository.Tx, channelID, token string) error {
	sealed, err := r.cipher.Seal(token)
	if err != nil {
		return err
	}
	return r.execOne(ctx, tx, `
UPDATE accounts SET partner_token=NULLIF($2,''), updated_at=now() WHERE channel_id=$1;`, channelID, sealed)
}

func (r *PostgresAccountRepo) SetLocale(ctx context.Context, tx repository.Tx, channelID string, l model.Locale) error {
	return r.execOne(ctx, tx, `
UPDATE accounts SET locale=$2, updated_at=now() WHERE channel_id=$1;`, channelID, string(l))
}

// execOne runs a single-row update and maps zero affected rows to ErrNotFound.
func (r *PostgresAccountRepo) execOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
