package sched

import (
	"context"
	"time"

	"whatsapp-telegram-bridge/internal/domain/ports/adapter"
	"whatsapp-telegram-bridge/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// WebhookWatchdog periodically checks the bot webhook registration and
// restores it when the platform reports a different URL.
type WebhookWatchdog struct {
	interval  time.Duration
	transport adapter.BotTransport
	expected  string
	log       *zerolog.Logger
}

func NewWebhookWatchdog(interval time.Duration, transport adapter.BotTransport, expectedURL string, logger *zerolog.Logger) *WebhookWatchdog {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	wdLog := logger.With().Str("component", "WebhookWatchdog").Logger()
	return &WebhookWatchdog{
		interval:  interval,
		transport: transport,
		expected:  expectedURL,
		log:       &wdLog,
	}
}

func (w *WebhookWatchdog) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting webhook watchdog")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping webhook watchdog")
			return ctx.Err()
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *WebhookWatchdog) check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	info, err := w.transport.GetWebhookInfo(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("getWebhookInfo failed")
		return
	}
	metrics.SetWebhookPending(info.PendingUpdateCount)

	if info.LastErrorMessage != "" {
		w.log.Warn().
			Str("last_error_message", info.LastErrorMessage).
			Time("last_error_date", info.LastErrorDate).
			Int("pending", info.PendingUpdateCount).
			Msg("webhook reports delivery errors")
	}

	if w.expected == "" || info.URL == w.expected {
		return
	}
	w.log.Warn().Str("current", info.URL).Str("expected", w.expected).Msg("webhook url drifted, re-registering")
	if err := w.transport.SetWebhook(ctx, w.expected); err != nil {
		w.log.Error().Err(err).Msg("re-register webhook failed")
		return
	}
	w.log.Info().Msg("webhook re-registered")
}
