package model

import "strings"

// MaskChatID hides all but the last four digits of a WhatsApp chat id so
// phone numbers stay out of logs. The @c.us / @g.us suffix is kept.
//
//	79001234567@c.us -> *******4567@c.us
func MaskChatID(chatID string) string {
	local, suffix := chatID, ""
	if i := strings.IndexByte(chatID, '@'); i >= 0 {
		local, suffix = chatID[:i], chatID[i:]
	}
	if len(local) <= 4 {
		return local + suffix
	}
	return strings.Repeat("*", len(local)-4) + local[len(local)-4:] + suffix
}
