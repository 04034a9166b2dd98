package usecase

import "whatsapp-telegram-bridge/internal/domain/model"

// IsAllowed reports whether the account wants events of kind forwarded.
// Kinds outside incoming/outgoing/state are never forwarded.
func IsAllowed(a *model.Account, kind model.EventKind) bool {
	if a == nil {
		return false
	}
	switch kind {
	case model.EventIncoming:
		return a.Notifications.Incoming
	case model.EventOutgoingStatus:
		return a.Notifications.Outgoing
	case model.EventInstanceState:
		return a.Notifications.State
	default:
		return false
	}
}
