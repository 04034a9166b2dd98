package model

import (
	"strings"
	"time"

	"whatsapp-telegram-bridge/internal/domain"

	"github.com/google/uuid"
)

// Binding links an account to one gateway instance.
type Binding struct {
	InstanceID int64
	Token      string
}

// NotificationPrefs controls which gateway event families are forwarded.
type NotificationPrefs struct {
	Incoming bool
	Outgoing bool
	State    bool
}

func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{Incoming: true, Outgoing: true, State: true}
}

// Account is the per-user aggregate. The store is its only owner.
type Account struct {
	ID             string
	ChannelID      string
	UserName       string
	FirstName      string
	Locale         Locale
	Binding        *Binding
	Notifications  NotificationPrefs
	RedirectTarget string
	PartnerToken   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewAccount(channelID, userName, firstName string) (*Account, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, &domain.ValidationError{Field: "channel_id", Reason: "empty"}
	}
	if userName == "" {
		userName = "no_name_user_" + channelID
	}
	if firstName == "" {
		firstName = "no_first_name_user_" + channelID
	}
	now := time.Now()
	return &Account{
		ID:            uuid.NewString(),
		ChannelID:     channelID,
		UserName:      userName,
		FirstName:     firstName,
		Locale:        LocaleEN,
		Notifications: DefaultNotificationPrefs(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (a *Account) IsZero() bool  { return a == nil || a.ID == "" }
func (a *Account) IsBound() bool { return a != nil && a.Binding != nil && a.Binding.InstanceID != 0 }
func (a *Account) Touch()        { a.UpdatedAt = time.Now() }

// Destination is the redirect target when one is configured, else the
// account's own channel.
func (a *Account) Destination() string {
	if t := strings.TrimSpace(a.RedirectTarget); t != "" {
		return t
	}
	return a.ChannelID
}

// InstanceID returns 0 for unbound accounts.
func (a *Account) InstanceID() int64 {
	if !a.IsBound() {
		return 0
	}
	return a.Binding.InstanceID
}
