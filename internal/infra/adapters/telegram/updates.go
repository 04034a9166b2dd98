package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/infra/worker"
)

// ToBotUpdate keeps the fields the bridge acts on. Edited messages and
// channel posts are treated like plain messages. The second result is false
// when the update carries no message at all.
func ToBotUpdate(u tgbotapi.Update) (model.BotUpdate, bool) {
	m := u.Message
	if m == nil {
		m = u.EditedMessage
	}
	if m == nil {
		m = u.ChannelPost
	}
	if m == nil || m.Chat == nil {
		return model.BotUpdate{}, false
	}
	out := model.BotUpdate{
		ChannelID: strconv.FormatInt(m.Chat.ID, 10),
		Text:      m.Text,
	}
	if m.From != nil {
		out.UserName = m.From.UserName
		out.FirstName = m.From.FirstName
	} else {
		out.UserName = m.Chat.UserName
		out.FirstName = m.Chat.FirstName
	}
	return out, true
}

// UpdateHandler receives every converted update in polling mode.
type UpdateHandler func(ctx context.Context, u model.BotUpdate)

// StartPolling long-polls getUpdates and fans updates out to pool. It blocks
// until ctx is cancelled. The webhook must be deleted beforehand.
func (t *RealBotTransport) StartPolling(ctx context.Context, pool *worker.Pool, handle UpdateHandler) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := t.bot.GetUpdatesChan(cfg)
	defer t.bot.StopReceivingUpdates()

	t.log.Info().Msg("polling started")
	for {
		select {
		case <-ctx.Done():
			t.log.Info().Msg("polling stopped")
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			bu, ok := ToBotUpdate(up)
			if !ok {
				continue
			}
			err := pool.Submit(func(ctx context.Context) error {
				handle(ctx, bu)
				return nil
			})
			if err != nil {
				t.log.Warn().Err(err).Int("update_id", up.UpdateID).Msg("update dropped")
			}
		}
	}
}
