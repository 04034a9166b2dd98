package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/adapter"
)

var _ adapter.BotTransport = (*NoopBotTransport)(nil)

// NoopBotTransport logs outbound messages instead of sending them. Used for
// dry runs and local development.
type NoopBotTransport struct {
	log *zerolog.Logger

	mu      sync.Mutex
	webhook string
}

func NewNoopBotTransport(logger *zerolog.Logger) *NoopBotTransport {
	l := logger.With().Str("component", "NoopBotTransport").Logger()
	return &NoopBotTransport{log: &l}
}

func (b *NoopBotTransport) Send(ctx context.Context, msg model.OutboundMessage) error {
	// keeps call timing roughly realistic and respects ctx
	select {
	case <-time.After(20 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	if _, err := buildChattable(msg); err != nil {
		return err
	}
	b.log.Info().
		Str("chat_id", msg.ChatID).
		Str("kind", string(msg.Kind)).
		Str("text", msg.Text).
		Str("media_url", msg.MediaURL).
		Msg("noop send")
	return nil
}

func (b *NoopBotTransport) SetWebhook(ctx context.Context, url string) error {
	b.mu.Lock()
	b.webhook = url
	b.mu.Unlock()
	b.log.Info().Str("url", url).Msg("noop setWebhook")
	return nil
}

func (b *NoopBotTransport) GetWebhookInfo(ctx context.Context) (adapter.WebhookInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return adapter.WebhookInfo{URL: b.webhook}, nil
}

func (b *NoopBotTransport) DeleteWebhook(ctx context.Context, dropPending bool) error {
	b.mu.Lock()
	b.webhook = ""
	b.mu.Unlock()
	b.log.Info().Bool("drop_pending", dropPending).Msg("noop deleteWebhook")
	return nil
}
