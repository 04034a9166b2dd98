package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	"whatsapp-telegram-bridge/internal/infra/security"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

// AccountRepo is the single-file store for small deployments. Timestamps are
// kept as RFC 3339 text.
type AccountRepo struct {
	db     *sql.DB
	cipher security.TokenCipher
}

func NewAccountRepo(db *sql.DB, cipher security.TokenCipher) *AccountRepo {
	if cipher == nil {
		cipher = security.PlainCipher{}
	}
	return &AccountRepo{db: db, cipher: cipher}
}

const accountColumns = `
id, channel_id, user_name, first_name, locale,
instance_id, instance_token,
notify_incoming, notify_outgoing, notify_state,
redirect_target, partner_token, created_at, updated_at`

func now() string { return formatTime(time.Now()) }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (r *AccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (` + accountColumns + `)
VALUES (?,?,?,?,?,?,?,?,?,?,NULLIF(?,''),NULLIF(?,''),?,?)
ON CONFLICT (channel_id) DO UPDATE SET
  user_name=excluded.user_name, first_name=excluded.first_name, updated_at=excluded.updated_at;`

	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	var (
		instanceID sql.NullInt64
		token      sql.NullString
	)
	if a.Binding != nil {
		sealed, err := r.cipher.Seal(a.Binding.Token)
		if err != nil {
			return err
		}
		instanceID = sql.NullInt64{Int64: a.Binding.InstanceID, Valid: true}
		token = sql.NullString{String: sealed, Valid: true}
	}
	partner, err := r.cipher.Seal(a.PartnerToken)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, q,
		a.ID, a.ChannelID, a.UserName, a.FirstName, string(a.Locale),
		instanceID, token,
		a.Notifications.Incoming, a.Notifications.Outgoing, a.Notifications.State,
		a.RedirectTarget, partner, formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if isUniqueViolation(err) && instanceID.Valid {
		return &domain.ConflictError{InstanceID: instanceID.Int64}
	}
	return err
}

func (r *AccountRepo) FindByChannelID(ctx context.Context, tx repository.Tx, channelID string) (*model.Account, error) {
	return r.findOne(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE channel_id=?;`, channelID)
}

func (r *AccountRepo) FindByInstanceID(ctx context.Context, tx repository.Tx, instanceID int64) (*model.Account, error) {
	return r.findOne(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE instance_id=?;`, instanceID)
}

func (r *AccountRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Account, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	var (
		a          model.Account
		locale     string
		instanceID sql.NullInt64
		token      sql.NullString
		redirect   sql.NullString
		partner    sql.NullString
		created    string
		updated    string
	)
	err = ex.QueryRowContext(ctx, q, arg).Scan(
		&a.ID, &a.ChannelID, &a.UserName, &a.FirstName, &locale,
		&instanceID, &token,
		&a.Notifications.Incoming, &a.Notifications.Outgoing, &a.Notifications.State,
		&redirect, &partner, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	a.Locale = model.Locale(locale)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	if instanceID.Valid {
		b := model.Binding{InstanceID: instanceID.Int64}
		if token.Valid {
			if b.Token, err = r.cipher.Open(token.String); err != nil {
				return nil, fmt.Errorf("open instance token: %w", err)
			}
		}
		a.Binding = &b
	}
	a.RedirectTarget = redirect.String
	if partner.Valid {
		if a.PartnerToken, err = r.cipher.Open(partner.String); err != nil {
			return nil, fmt.Errorf("open partner token: %w", err)
		}
	}
	return &a, nil
}

func (r *AccountRepo) BindInstance(ctx context.Context, tx repository.Tx, channelID string, b model.Binding) error {
	sealed, err := r.cipher.Seal(b.Token)
	if err != nil {
		return err
	}
	err = r.execOne(ctx, tx, `
UPDATE accounts SET instance_id=?, instance_token=?, updated_at=? WHERE channel_id=?;`,
		b.InstanceID, sealed, now(), channelID)
	if isUniqueViolation(err) {
		return &domain.ConflictError{InstanceID: b.InstanceID}
	}
	return err
}

func (r *AccountRepo) ClearBinding(ctx context.Context, tx repository.Tx, channelID string) error {
	return r.execOne(ctx, tx, `
UPDATE accounts SET instance_id=NULL, instance_token=NULL, updated_at=? WHERE channel_id=?;`, now(), channelID)
}

func (r *AccountRepo) ClearInstance(ctx context.Context, tx repository.Tx, instanceID int64) error {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
UPDATE accounts SET instance_id=NULL, instance_token=NULL, updated_at=? WHERE instance_id=?;`, now(), instanceID)
	return err
}

func (r *AccountRepo) UpdateNotifications(ctx context.Context, tx repository.Tx, channelID string, p model.NotificationPrefs) error {
	return r.execOne(ctx, tx, `
UPDATE accounts SET notify_incoming=?, notify_outgoing=?, notify_state=?, updated_at=? WHERE channel_id=?;`,
		p.Incoming, p.Outgoing, p.State, now(), channelID)
}

func (r *AccountRepo) SetRedirectTarget(ctx context.Context, tx repository.Tx, channelID, target string) error {
	return r.execOne(ctx, tx, `
UPDATE accounts SET redirect_target=NULLIF(?,''), updated_at=? WHERE channel_id=?;`, target, now(), channelID)
}

func (r *AccountRepo) SetPartnerToken(ctx context.Context, tx repository.Tx, channelID, token string) error {
	sealed, err := r.cipher.Seal(token)
	if err != nil {
		return err
	}
	return r.execOne(ctx, tx, `
UPDATE accounts SET partner_token=NULLIF(?,''), updated_at=? WHERE channel_id=?;`, sealed, now(), channelID)
}

func (r *AccountRepo) SetLocale(ctx context.Context, tx repository.Tx, channelID string, l model.Locale) error {
	return r.execOne(ctx, tx, `
UPDATE accounts SET locale=?, updated_at=? WHERE channel_id=?;`, string(l), now(), channelID)
}

func (r *AccountRepo) execOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) error {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
