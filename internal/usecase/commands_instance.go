package usecase

import (
	"context"
	"errors"
	"html"
	"strconv"
	"strings"
	"time"

	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/adapter"
	"whatsapp-telegram-bridge/internal/infra/logging"
)

const (
	settingYes        = "yes"
	webhookPathHint   = "<bridge-url>/webhook/whatsapp"
	partnerDateLayout = "2006-01-02 15:04"
)

func instanceCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	l := c.Account.Locale
	if len(c.Args) != 2 {
		return reply(text(d, l, "instance_format"), "invalid_format")
	}
	id, err := strconv.ParseInt(c.Args[0], 10, 64)
	if err != nil || id <= 0 || c.Args[1] == "" {
		return reply(text(d, l, "instance_format"), "invalid_format")
	}
	b := model.Binding{InstanceID: id, Token: c.Args[1]}

	// credentials are checked against the gateway before anything is stored
	if _, err := d.Gateway.GetSettings(ctx, b); err != nil {
		d.Log.Warn().Err(err).Int64("instance_id", id).Str("token", logging.Redact(b.Token, d.Dev)).Msg("instance credentials rejected")
		return failed(text(d, l, "error_occurred"), err)
	}

	if _, err := d.Bindings.Bind(ctx, c.Account.ChannelID, b); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return reply(text(d, l, "instance_already_linked"), "instance_already_linked")
		}
		return failed(text(d, l, "error_occurred"), err)
	}

	webhookNote := d.Catalog.T(l, "webhook_auto_set")
	if err := configureInstanceWebhook(ctx, d, b); err != nil {
		d.Log.Warn().Err(err).Int64("instance_id", id).Msg("automatic webhook setup failed")
		hint := d.WebhookURL
		if hint == "" {
			hint = webhookPathHint
		}
		webhookNote = d.Catalog.T(l, "webhook_manual_required", hint)
	}

	msg := strings.Join([]string{
		d.Catalog.T(l, "instance_linked"),
		webhookNote,
		d.Catalog.T(l, "instance_footer"),
	}, "\n\n")
	return reply(model.NewTextMessage(msg), "instance_created")
}

func configureInstanceWebhook(ctx context.Context, d *CommandDeps, b model.Binding) error {
	if d.WebhookURL == "" {
		return &domain.ValidationError{Field: "webhook_url", Reason: "not configured"}
	}
	s := adapter.InstanceSettings{
		WebhookURL:      d.WebhookURL,
		IncomingWebhook: settingYes,
		OutgoingWebhook: settingYes,
		StateWebhook:    settingYes,
	}
	if d.Tokens != nil {
		tok, err := d.Tokens.Issue(b.InstanceID)
		if err != nil {
			return err
		}
		s.WebhookURLToken = tok
	}
	return d.Gateway.SetSettings(ctx, b, s)
}

func resetInstanceCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	l := c.Account.Locale
	if err := d.Bindings.Unbind(ctx, c.Account.ChannelID); err != nil {
		return failed(text(d, l, "error_occurred"), err)
	}
	return reply(text(d, l, "instance_reset"), "instance_reset")
}

func statusCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	l := c.Account.Locale
	if !c.Account.IsBound() {
		return reply(text(d, l, "status_no_instance"), "no_instance")
	}
	b := *c.Account.Binding

	state, err := d.Gateway.GetState(ctx, b)
	if err != nil {
		return failed(text(d, l, "error_checking_status"), err)
	}
	s, err := d.Gateway.GetSettings(ctx, b)
	if err != nil {
		return failed(text(d, l, "error_checking_status"), err)
	}

	phone := strings.TrimSuffix(s.Wid, "@c.us")
	if phone == "" {
		phone = d.Catalog.T(l, "not_specified")
	}
	msg := text(d, l, "status_text",
		b.InstanceID,
		state,
		phone,
		onOff(d, l, s.IncomingWebhook == settingYes),
		onOff(d, l, s.OutgoingWebhook == settingYes),
		onOff(d, l, s.StateWebhook == settingYes),
	)
	return reply(msg, "status_checked")
}

func replyCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	l := c.Account.Locale
	if !c.Account.IsBound() {
		msg := d.Catalog.T(l, "no_instance") + " " + d.Catalog.T(l, "use_help")
		return reply(model.NewTextMessage(msg), "no_instance")
	}

	phone, message := splitFirstField(c.Rest)
	digits := onlyDigits(phone)
	if digits == "" || message == "" {
		return reply(htmlText(d, l, "reply_format"), "invalid_format")
	}
	chatID := digits + "@c.us"

	id, err := d.Gateway.SendMessage(ctx, *c.Account.Binding, chatID, message)
	if err != nil {
		return failed(text(d, l, "error_sending_message"), err)
	}
	return reply(text(d, l, "reply_sent", chatID, message, id), "message_sent")
}

func setPartnerTokenCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	l := c.Account.Locale
	if len(c.Args) == 0 {
		return reply(htmlText(d, l, "missing_token"), "missing_token")
	}
	if err := d.Prefs.SetPartnerToken(ctx, c.Account.ChannelID, c.Args[0]); err != nil {
		return failed(text(d, l, "error_occurred"), err)
	}
	d.Log.Info().Str("channel_id", c.Account.ChannelID).Str("partner_token", logging.Redact(c.Args[0], d.Dev)).Msg("partner token stored")
	return reply(text(d, l, "partner_token_saved"), "partner_token_saved")
}

func createInstanceCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	l := c.Account.Locale
	if c.Account.PartnerToken == "" {
		return reply(htmlText(d, l, "no_partner_token"), "no_partner_token")
	}
	inst, err := d.Partner.CreateInstance(ctx, c.Account.PartnerToken)
	if err != nil {
		return failed(partnerErrorText(d, l, err, "error_creating_instance"), err)
	}
	return reply(text(d, l, "partner_created", inst.IDInstance, inst.APITokenInstance), "instance_created")
}

func getInstancesCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	l := c.Account.Locale
	if c.Account.PartnerToken == "" {
		return reply(htmlText(d, l, "no_partner_token"), "no_partner_token")
	}
	list, err := d.Partner.GetInstances(ctx, c.Account.PartnerToken)
	if err != nil {
		return failed(partnerErrorText(d, l, err, "error_getting_instances"), err)
	}
	if len(list) == 0 {
		return reply(text(d, l, "no_instances"), "no_instances")
	}

	var (
		items   []string
		deleted int
	)
	for _, inst := range list {
		if inst.IsDeleted {
			deleted++
			continue
		}
		items = append(items, formatPartnerInstance(d, l, inst))
	}
	if len(items) == 0 {
		return reply(text(d, l, "no_active_instances"), "no_active_instances")
	}

	parts := append([]string{d.Catalog.T(l, "instances_header")}, items...)
	if deleted > 0 {
		parts = append(parts, d.Catalog.T(l, "instances_deleted_count", deleted))
	}
	return reply(model.NewHTMLMessage(strings.Join(parts, "\n\n")), "instances_listed")
}

func formatPartnerInstance(d *CommandDeps, l model.Locale, inst adapter.PartnerInstance) string {
	status := d.Catalog.T(l, "instance_active")
	if inst.IsExpired {
		status = d.Catalog.T(l, "instance_expired")
	}
	return d.Catalog.T(l, "instance_item",
		inst.IDInstance,
		html.EscapeString(orNotSpecified(d, l, inst.Name)),
		html.EscapeString(orNotSpecified(d, l, inst.TypeAccount)),
		html.EscapeString(orNotSpecified(d, l, inst.Tariff)),
		formatPartnerDate(d, l, inst.TimeCreated),
		formatPartnerDate(d, l, inst.ExpirationDate),
		status,
	)
}

func deleteInstanceCommand(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	l := c.Account.Locale
	if len(c.Args) == 0 {
		return reply(text(d, l, "missing_instance_id"), "missing_instance_id")
	}
	id, err := strconv.ParseInt(c.Args[0], 10, 64)
	if err != nil || id <= 0 {
		return reply(text(d, l, "invalid_instance_id"), "invalid_instance_id")
	}
	if c.Account.PartnerToken == "" {
		return reply(htmlText(d, l, "no_partner_token"), "no_partner_token")
	}

	if err := d.Partner.DeleteInstanceAccount(ctx, c.Account.PartnerToken, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return reply(text(d, l, "partner_instance_not_found", id), "instance_not_found")
		}
		return failed(partnerErrorText(d, l, err, "error_deleting_instance"), err)
	}

	// the instance no longer exists upstream, so no account may keep it
	if err := d.Bindings.ReleaseInstance(ctx, id); err != nil {
		d.Log.Error().Err(err).Int64("instance_id", id).Msg("failed to release deleted instance")
	}
	return reply(text(d, l, "partner_deleted", id), "instance_deleted")
}

// partnerErrorText maps partner API failures to a user-facing message.
func partnerErrorText(d *CommandDeps, l model.Locale, err error, fallbackKey string) model.OutboundMessage {
	if errors.Is(err, domain.ErrUnauthorized) {
		return text(d, l, "unauthorized")
	}
	var te *domain.TransportError
	if errors.As(err, &te) && te.Unreachable() {
		return text(d, l, "network_error")
	}
	return text(d, l, fallbackKey)
}

func formatPartnerDate(d *CommandDeps, l model.Locale, t time.Time) string {
	if t.IsZero() {
		return d.Catalog.T(l, "not_specified")
	}
	return t.Format(partnerDateLayout)
}

func orNotSpecified(d *CommandDeps, l model.Locale, s string) string {
	if strings.TrimSpace(s) == "" {
		return d.Catalog.T(l, "not_specified")
	}
	return s
}

func splitFirstField(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, isSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
