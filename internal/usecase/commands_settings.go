package usecase

import (
	"context"
	"html"
	"regexp"
	"strings"

	"whatsapp-telegram-bridge/internal/domain/model"
)

// chatTargetPattern accepts a numeric chat id or an @username.
var chatTargetPattern = regexp.MustCompile(`^-?\d+$|^@[A-Za-z0-9_]+$`)

func meCommand(_ context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	a, l := c.Account, c.Account.Locale

	forwarding := d.Catalog.T(l, "me_forward_self")
	if t := strings.TrimSpace(a.RedirectTarget); t != "" {
		forwarding = d.Catalog.T(l, "me_forward_chat", html.EscapeString(t))
	}
	msg := htmlText(d, l, "me_text",
		html.EscapeString(a.ChannelID),
		html.EscapeString(orNotSpecified(d, l, a.UserName)),
		html.EscapeString(orNotSpecified(d, l, a.FirstName)),
		forwarding,
	)
	return reply(msg, "me_shown")
}

func notificationsCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	a, l := c.Account, c.Account.Locale

	if len(c.Args) == 0 {
		msg := htmlText(d, l, "notifications_settings",
			onOff(d, l, a.Notifications.Incoming),
			onOff(d, l, a.Notifications.Outgoing),
			onOff(d, l, a.Notifications.State),
		)
		return reply(msg, "settings_shown")
	}
	if len(c.Args) != 2 {
		return reply(text(d, l, "invalid_format"), "invalid_format")
	}

	// both "/notifications on incoming" and "/notifications all off" are accepted
	action, kind := strings.ToLower(c.Args[0]), strings.ToLower(c.Args[1])
	if !isToggle(action) {
		action, kind = kind, action
	}
	if !isToggle(action) {
		return reply(text(d, l, "invalid_action"), "invalid_action")
	}
	on := action == "on"

	prefs := a.Notifications
	var typeKey string
	switch kind {
	case "incoming":
		prefs.Incoming, typeKey = on, "notify_type_incoming"
	case "outgoing":
		prefs.Outgoing, typeKey = on, "notify_type_outgoing"
	case "state", "status":
		prefs.State, typeKey = on, "notify_type_state"
	case "all":
		prefs = model.NotificationPrefs{Incoming: on, Outgoing: on, State: on}
		typeKey = "notify_type_all"
	default:
		return reply(text(d, l, "unknown_type"), "unknown_type")
	}

	if err := d.Prefs.SetNotifications(ctx, a.ChannelID, prefs); err != nil {
		return failed(text(d, l, "error_occurred"), err)
	}
	msg := htmlText(d, l, "notifications_toggled", d.Catalog.T(l, typeKey), onOff(d, l, on))
	return reply(msg, "notifications_"+action+"_"+kind)
}

func isToggle(s string) bool { return s == "on" || s == "off" }

func languageCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	l := c.Account.Locale
	if len(c.Args) == 0 {
		return reply(htmlText(d, l, "language_current", string(l)), "current_language_shown")
	}

	next, ok := model.ParseLocale(strings.ToLower(c.Args[0]))
	if !ok || next == model.LocaleKZ {
		return reply(htmlText(d, l, "invalid_language"), "invalid_language")
	}
	if err := d.Prefs.SetLocale(ctx, c.Account.ChannelID, next); err != nil {
		return failed(text(d, l, "error_occurred"), err)
	}
	// confirmed in the newly selected language
	return reply(text(d, next, "language_changed"), "language_changed")
}

func setChatCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	a, l := c.Account, c.Account.Locale
	if len(c.Args) == 0 {
		return reply(text(d, l, "setchat_usage"), "invalid_format")
	}

	target := strings.TrimSpace(c.Args[0])
	if !chatTargetPattern.MatchString(target) {
		return reply(text(d, l, "setchat_invalid"), "invalid_chat_id")
	}
	if target == a.ChannelID {
		return reply(text(d, l, "setchat_self"), "self_redirect")
	}

	// a target the bot cannot post to is never stored
	if _, err := d.Router.Deliver(ctx, target, model.Single(text(d, l, "setchat_greeting"))); err != nil {
		d.Log.Warn().Err(err).Str("target", target).Msg("forwarding target unreachable")
		return reply(htmlText(d, l, "setchat_unreachable", html.EscapeString(target)), "target_unreachable")
	}

	if err := d.Prefs.SetRedirectTarget(ctx, a.ChannelID, target); err != nil {
		return failed(text(d, l, "error_occurred"), err)
	}
	return reply(htmlText(d, l, "setchat_done", html.EscapeString(target)), "target_set")
}

func resetChatCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	l := c.Account.Locale
	if err := d.Prefs.ResetRedirectTarget(ctx, c.Account.ChannelID); err != nil {
		return failed(text(d, l, "error_occurred"), err)
	}
	return reply(htmlText(d, l, "resetchat_done"), "target_reset")
}
