package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"whatsapp-telegram-bridge/internal/config"
	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/adapter"
)

var _ adapter.BotTransport = (*RealBotTransport)(nil)

// sender is the slice of *tgbotapi.BotAPI the transport uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RealBotTransport sends through the bot HTTP API with tgbotapi.
type RealBotTransport struct {
	bot     sender
	timeout time.Duration
	log     *zerolog.Logger
}

// NewRealBotTransport authenticates the token with getMe before returning.
func NewRealBotTransport(cfg *config.BotConfig, logger *zerolog.Logger) (*RealBotTransport, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	client := &http.Client{Timeout: cfg.SendTimeout + 5*time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, mapError("getMe", err)
	}
	l := logger.With().Str("component", "BotTransport").Logger()
	l.Info().Str("bot", bot.Self.UserName).Msg("bot authorized")
	return newTransport(bot, cfg.SendTimeout, &l), nil
}

func newTransport(bot sender, timeout time.Duration, logger *zerolog.Logger) *RealBotTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RealBotTransport{bot: bot, timeout: timeout, log: logger}
}

func (t *RealBotTransport) Send(ctx context.Context, msg model.OutboundMessage) error {
	c, err := buildChattable(msg)
	if err != nil {
		return err
	}
	return t.call(ctx, "send_"+string(msg.Kind), func() error {
		_, err := t.bot.Send(c)
		return err
	})
}

func (t *RealBotTransport) SetWebhook(ctx context.Context, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return &domain.ValidationError{Field: "url", Reason: err.Error()}
	}
	return t.call(ctx, "setWebhook", func() error {
		_, err := t.bot.Request(wh)
		return err
	})
}

func (t *RealBotTransport) GetWebhookInfo(ctx context.Context) (adapter.WebhookInfo, error) {
	var info tgbotapi.WebhookInfo
	err := t.call(ctx, "getWebhookInfo", func() error {
		var err error
		info, err = t.bot.GetWebhookInfo()
		return err
	})
	if err != nil {
		return adapter.WebhookInfo{}, err
	}
	out := adapter.WebhookInfo{
		URL:                  info.URL,
		PendingUpdateCount:   info.PendingUpdateCount,
		LastErrorMessage:     info.LastErrorMessage,
		MaxConnections:       info.MaxConnections,
		HasCustomCertificate: info.HasCustomCertificate,
	}
	if info.LastErrorDate > 0 {
		out.LastErrorDate = time.Unix(int64(info.LastErrorDate), 0)
	}
	return out, nil
}

func (t *RealBotTransport) DeleteWebhook(ctx context.Context, dropPending bool) error {
	return t.call(ctx, "deleteWebhook", func() error {
		_, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending})
		return err
	})
}

// call runs fn with the transport timeout. tgbotapi has no context support,
// so an abandoned call finishes in the background and its result is dropped.
func (t *RealBotTransport) call(ctx context.Context, op string, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if err != nil {
			return mapError(op, err)
		}
		return nil
	case <-ctx.Done():
		return &domain.TransportError{Kind: domain.TransportTimedOut, Op: op, Err: ctx.Err()}
	}
}

// mapError turns API rejections into TransportRejected and everything else
// (DNS, TLS, resets) into TransportUnreachable.
func mapError(op string, err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &domain.TransportError{Kind: domain.TransportRejected, Op: op, StatusCode: apiErr.Code, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TransportError{Kind: domain.TransportTimedOut, Op: op, Err: err}
	}
	return &domain.TransportError{Kind: domain.TransportUnreachable, Op: op, Err: err}
}

// baseChat addresses either a numeric chat id or an @username.
func baseChat(target string) (tgbotapi.BaseChat, error) {
	target = strings.TrimSpace(target)
	if strings.HasPrefix(target, "@") && len(target) > 1 {
		return tgbotapi.BaseChat{ChannelUsername: target}, nil
	}
	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return tgbotapi.BaseChat{}, &domain.ValidationError{Field: "chat_id", Reason: fmt.Sprintf("%q is neither a numeric id nor @username", target)}
	}
	return tgbotapi.BaseChat{ChatID: id}, nil
}

func baseFile(chat tgbotapi.BaseChat, url string) tgbotapi.BaseFile {
	return tgbotapi.BaseFile{BaseChat: chat, File: tgbotapi.FileURL(url)}
}

// buildChattable maps one outbound message onto the matching tgbotapi config.
func buildChattable(m model.OutboundMessage) (tgbotapi.Chattable, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	chat, err := baseChat(m.ChatID)
	if err != nil {
		return nil, err
	}

	switch m.Kind {
	case model.OutText:
		return tgbotapi.MessageConfig{
			BaseChat:              chat,
			Text:                  m.Text,
			ParseMode:             m.ParseMode,
			DisableWebPagePreview: m.DisableWebPagePreview,
		}, nil
	case model.OutPhoto:
		return tgbotapi.PhotoConfig{BaseFile: baseFile(chat, m.MediaURL), Caption: m.Caption}, nil
	case model.OutVideo:
		return tgbotapi.VideoConfig{BaseFile: baseFile(chat, m.MediaURL), Caption: m.Caption}, nil
	case model.OutAudio:
		return tgbotapi.AudioConfig{BaseFile: baseFile(chat, m.MediaURL), Caption: m.Caption}, nil
	case model.OutDocument:
		return tgbotapi.DocumentConfig{BaseFile: baseFile(chat, m.MediaURL), Caption: m.Caption}, nil
	case model.OutLocation:
		return tgbotapi.LocationConfig{BaseChat: chat, Latitude: m.Latitude, Longitude: m.Longitude}, nil
	case model.OutContact:
		return tgbotapi.ContactConfig{BaseChat: chat, PhoneNumber: m.PhoneNumber, FirstName: m.FirstName}, nil
	case model.OutPoll:
		return tgbotapi.SendPollConfig{
			BaseChat:    chat,
			Question:    m.Question,
			Options:     append([]string(nil), m.Options...),
			IsAnonymous: true,
		}, nil
	}
	return nil, fmt.Errorf("%w: kind %q", domain.ErrUnsupportedContent, m.Kind)
}
