package usecase

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/adapter"
	"whatsapp-telegram-bridge/internal/infra/i18n"
	"whatsapp-telegram-bridge/internal/infra/logging"
	"whatsapp-telegram-bridge/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ CommandDispatcher = (*commandDispatcher)(nil)

// WebhookTokenIssuer mints the token a gateway instance presents when it
// calls the bridge webhook.
type WebhookTokenIssuer interface {
	Issue(instanceID int64) (string, error)
}

// CommandDeps bundles the collaborators command handlers use. Handlers keep
// no state of their own between calls.
type CommandDeps struct {
	Bindings BindingUseCase
	Prefs    PreferencesUseCase
	Gateway  adapter.GatewayClient
	Partner  adapter.PartnerClient
	Router   DeliveryRouter
	Catalog  *i18n.Catalog
	Tokens   WebhookTokenIssuer // optional
	// WebhookURL is the full gateway-facing endpoint; empty means the user
	// has to configure it by hand.
	WebhookURL string
	// Dev logs credentials unredacted.
	Dev bool
	Log *zerolog.Logger
}

// commandCall is one parsed invocation.
type commandCall struct {
	Account *model.Account
	Token   string
	Args    []string
	// Rest is the text after the command token with inner spacing intact.
	Rest string
}

type commandResult struct {
	Reply  model.OutboundMessage
	Status string
}

type commandHandler func(ctx context.Context, d *CommandDeps, c commandCall) (commandResult, error)

// commandTable maps every accepted token, aliases included, to its handler.
var commandTable = map[string]commandHandler{
	"/start":                 startCommand,
	"/help":                  helpCommand,
	"/instance":              instanceCommand,
	"/resetinstance":         resetInstanceCommand,
	"/status":                statusCommand,
	"/getstateinstance":      statusCommand,
	"/reply":                 replyCommand,
	"/sendmessage":           replyCommand,
	"/setpartnertoken":       setPartnerTokenCommand,
	"/partnertoken":          setPartnerTokenCommand,
	"/createinstance":        createInstanceCommand,
	"/getinstances":          getInstancesCommand,
	"/deleteinstance":        deleteInstanceCommand,
	"/deleteinstanceaccount": deleteInstanceCommand,
	"/me":                    meCommand,
	"/notifications":         notificationsCommand,
	"/notification":          notificationsCommand,
	"/notify":                notificationsCommand,
	"/language":              languageCommand,
	"/lang":                  languageCommand,
	"/setchat":               setChatCommand,
	"/resetchat":             resetChatCommand,
}

// CommandDispatcher runs one bot command and always answers the invoking
// channel exactly once.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, acc *model.Account, text string) string
}

type commandDispatcher struct {
	deps *CommandDeps
	log  *zerolog.Logger
}

func NewCommandDispatcher(deps CommandDeps) *commandDispatcher {
	l := deps.Log.With().Str("component", "CommandDispatcher").Logger()
	deps.Log = &l
	return &commandDispatcher{deps: &deps, log: &l}
}

func (d *commandDispatcher) Dispatch(ctx context.Context, acc *model.Account, text string) string {
	defer logging.TraceDuration(d.log, "CommandDispatcher.Dispatch")()

	call := parseCommand(acc, text)
	handler, ok := commandTable[call.Token]
	if !ok {
		handler = unknownCommand
	}
	log := logging.With(ctx, d.log).With().Str("command", call.Token).Logger()

	res, err := d.run(ctx, handler, call)
	if err != nil {
		log.Error().Err(err).Str("status", res.Status).Msg("command failed")
		if res.Reply.Kind == "" {
			res.Reply = model.NewTextMessage(d.deps.Catalog.T(acc.Locale, "error_occurred"))
		}
		if res.Status == "" {
			res.Status = "error"
		}
	}

	if _, sendErr := d.deps.Router.Deliver(ctx, acc.ChannelID, model.Single(res.Reply)); sendErr != nil {
		log.Error().Err(sendErr).Msg("failed to acknowledge command")
	}

	label := call.Token
	if !ok {
		label = "unknown"
	}
	metrics.IncTelegramCommand(label, res.Status)
	log.Info().Str("status", res.Status).Msg("command handled")
	return res.Status
}

// run converts a handler panic into an error so the user still gets an answer.
func (d *commandDispatcher) run(ctx context.Context, h commandHandler, c commandCall) (res commandResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("command handler panicked")
			res, err = commandResult{}, fmt.Errorf("command %s panicked: %v", c.Token, r)
		}
	}()
	return h(ctx, d.deps, c)
}

func parseCommand(acc *model.Account, text string) commandCall {
	token, args := model.BotUpdate{Text: text}.Command()
	rest := strings.TrimSpace(text)
	if i := strings.IndexFunc(rest, isSpace); i >= 0 {
		rest = strings.TrimSpace(rest[i:])
	} else {
		rest = ""
	}
	return commandCall{Account: acc, Token: token, Args: args, Rest: rest}
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

// ---- shared helpers ----

func text(d *CommandDeps, l model.Locale, key string, args ...interface{}) model.OutboundMessage {
	return model.NewTextMessage(d.Catalog.T(l, key, args...))
}

func htmlText(d *CommandDeps, l model.Locale, key string, args ...interface{}) model.OutboundMessage {
	return model.NewHTMLMessage(d.Catalog.T(l, key, args...))
}

func reply(m model.OutboundMessage, status string) (commandResult, error) {
	return commandResult{Reply: m, Status: status}, nil
}

func failed(m model.OutboundMessage, err error) (commandResult, error) {
	return commandResult{Reply: m, Status: "error"}, err
}

func onOff(d *CommandDeps, l model.Locale, on bool) string {
	if on {
		return d.Catalog.T(l, "enabled")
	}
	return d.Catalog.T(l, "disabled")
}

func unknownCommand(_ context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	return reply(text(d, c.Account.Locale, "unknown_command"), "unknown_command")
}

func startCommand(_ context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	l := c.Account.Locale
	if c.Account.IsBound() {
		msg := strings.Join([]string{
			d.Catalog.T(l, "welcome"),
			d.Catalog.T(l, "bot_ready"),
			d.Catalog.T(l, "use_help"),
		}, "\n\n")
		return reply(model.NewTextMessage(msg), "start_handled")
	}
	return reply(htmlText(d, l, "start_guide"), "start_handled")
}

func helpCommand(_ context.Context, d *CommandDeps, c commandCall) (commandResult, error) {
	return reply(htmlText(d, c.Account.Locale, "help"), "help_shown")
}
