package usecase

import (
	"context"
	"time"

	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	"whatsapp-telegram-bridge/internal/infra/i18n"
	"whatsapp-telegram-bridge/internal/infra/logging"
	"whatsapp-telegram-bridge/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ UpdateUseCase = (*updateUC)(nil)

// UpdateResult is the body returned to the bot platform. The HTTP status is
// always 200; StatusCode only describes the outcome.
type UpdateResult struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// UpdateUseCase handles one update received on the bot webhook.
type UpdateUseCase interface {
	HandleUpdate(ctx context.Context, upd model.BotUpdate) UpdateResult
}

type updateUC struct {
	bindings   BindingUseCase
	dispatcher CommandDispatcher
	router     DeliveryRouter
	catalog    *i18n.Catalog
	limiter    repository.RateLimiter // optional
	perMinute  int
	log        *zerolog.Logger
}

func NewUpdateUseCase(
	bindings BindingUseCase,
	dispatcher CommandDispatcher,
	router DeliveryRouter,
	catalog *i18n.Catalog,
	limiter repository.RateLimiter,
	perMinute int,
	logger *zerolog.Logger,
) *updateUC {
	l := logger.With().Str("component", "Updates").Logger()
	return &updateUC{
		bindings:   bindings,
		dispatcher: dispatcher,
		router:     router,
		catalog:    catalog,
		limiter:    limiter,
		perMinute:  perMinute,
		log:        &l,
	}
}

func (u *updateUC) HandleUpdate(ctx context.Context, upd model.BotUpdate) UpdateResult {
	defer logging.TraceDuration(u.log, "UpdateUC.HandleUpdate")()

	if upd.ChannelID == "" {
		return UpdateResult{Status: "error", StatusCode: 200, Error: "No chat_id in webhook"}
	}
	ctx = logging.WithChannelID(ctx, upd.ChannelID)
	log := logging.With(ctx, u.log)

	acc, _, err := u.bindings.RegisterOrFetch(ctx, upd.ChannelID, upd.UserName, upd.FirstName)
	if err != nil {
		log.Error().Err(err).Msg("failed to load account")
		return UpdateResult{Status: "error", StatusCode: 500, Error: "Internal server error"}
	}

	if !upd.IsCommand() {
		u.answer(ctx, acc, "non_command")
		return UpdateResult{Status: "non_command_message"}
	}

	if !u.allow(ctx, acc.ChannelID) {
		metrics.IncRateLimitTriggered()
		log.Info().Msg("command rate limited")
		u.answer(ctx, acc, "rate_limited")
		return UpdateResult{Status: "rate_limited"}
	}

	return UpdateResult{Status: u.dispatcher.Dispatch(ctx, acc, upd.Text)}
}

// allow fails open when the limiter store is unavailable.
func (u *updateUC) allow(ctx context.Context, channelID string) bool {
	if u.limiter == nil || u.perMinute <= 0 {
		return true
	}
	ok, err := u.limiter.Allow(ctx, "ratelimit:cmd:"+channelID, u.perMinute, time.Minute)
	if err != nil {
		u.log.Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	return ok
}

func (u *updateUC) answer(ctx context.Context, acc *model.Account, key string) {
	msg := model.NewTextMessage(u.catalog.T(acc.Locale, key))
	if _, err := u.router.Deliver(ctx, acc.ChannelID, model.Single(msg)); err != nil {
		logging.With(ctx, u.log).Error().Err(err).Str("key", key).Msg("failed to answer update")
	}
}
