package model

import "strings"

// BotUpdate is the part of a bot-platform webhook the bridge acts on.
type BotUpdate struct {
	ChannelID string
	UserName  string
	FirstName string
	Text      string
}

func (u BotUpdate) IsCommand() bool {
	return strings.HasPrefix(strings.TrimSpace(u.Text), "/")
}

// Command splits the text into a normalized token and its arguments. The
// token is lowercased and any @botname suffix is removed.
func (u BotUpdate) Command() (string, []string) {
	fields := strings.Fields(u.Text)
	if len(fields) == 0 {
		return "", nil
	}
	token := strings.ToLower(fields[0])
	if i := strings.IndexByte(token, '@'); i > 0 {
		token = token[:i]
	}
	return token, fields[1:]
}
