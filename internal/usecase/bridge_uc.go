package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	"whatsapp-telegram-bridge/internal/infra/logging"
	"whatsapp-telegram-bridge/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ BridgeUseCase = (*bridgeUC)(nil)

type Outcome string

const (
	OutcomeDelivered       Outcome = "delivered"
	OutcomePartial         Outcome = "partial"
	OutcomeFailed          Outcome = "failed"
	OutcomeFiltered        Outcome = "filtered"
	OutcomeUnknownInstance Outcome = "unknown_instance"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeMalformed       Outcome = "malformed"
)

// BridgeUseCase runs one gateway webhook through the forwarding pipeline.
type BridgeUseCase interface {
	// HandleGatewayEvent returns an error only for a malformed body or a
	// failed primary send. Every other outcome is reported through Outcome.
	HandleGatewayEvent(ctx context.Context, body []byte) (Outcome, error)
}

type bridgeUC struct {
	bindings    BindingUseCase
	transformer *Transformer
	router      DeliveryRouter
	dedup       repository.Deduplicator // optional
	dedupTTL    time.Duration
	log         *zerolog.Logger
}

func NewBridgeUseCase(bindings BindingUseCase, transformer *Transformer, router DeliveryRouter, dedup repository.Deduplicator, dedupTTL time.Duration, logger *zerolog.Logger) *bridgeUC {
	l := logger.With().Str("component", "Bridge").Logger()
	return &bridgeUC{
		bindings:    bindings,
		transformer: transformer,
		router:      router,
		dedup:       dedup,
		dedupTTL:    dedupTTL,
		log:         &l,
	}
}

func (u *bridgeUC) HandleGatewayEvent(ctx context.Context, body []byte) (Outcome, error) {
	defer logging.TraceDuration(u.log, "BridgeUC.HandleGatewayEvent")()

	ctx = logging.WithDeliveryID(ctx, ulid.Make().String())

	payload, err := model.ParseWebhookPayload(body)
	if err != nil {
		metrics.IncGatewayEvent("unknown", string(OutcomeMalformed))
		return OutcomeMalformed, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	ev := Classify(payload)
	ctx = logging.WithInstanceID(ctx, ev.InstanceID)
	log := logging.With(ctx, u.log).With().Str("type_webhook", ev.RawKind).Str("kind", string(ev.Kind)).Logger()

	outcome, err := u.forward(ctx, &log, ev)
	metrics.IncGatewayEvent(string(ev.Kind), string(outcome))
	return outcome, err
}

func (u *bridgeUC) forward(ctx context.Context, log *zerolog.Logger, ev model.InboundEvent) (Outcome, error) {
	acc, err := u.bindings.ResolveByInstance(ctx, ev.InstanceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Info().Msg("no account bound to instance; dropping")
			return OutcomeUnknownInstance, nil
		}
		return OutcomeFailed, fmt.Errorf("resolve instance %d: %w", ev.InstanceID, err)
	}
	ctx = logging.WithChannelID(ctx, acc.ChannelID)

	if !IsAllowed(acc, ev.Kind) {
		log.Debug().Msg("filtered by notification preferences")
		return OutcomeFiltered, nil
	}

	if dup := u.seenBefore(ctx, log, ev); dup {
		log.Info().Str("id_message", ev.MessageID).Msg("duplicate delivery suppressed")
		return OutcomeDuplicate, nil
	}

	batch := u.transformer.Transform(ev, acc.Locale, acc)
	res, err := u.router.Deliver(ctx, acc.Destination(), batch)
	if err != nil {
		log.Error().Err(err).Str("destination", acc.Destination()).Msg("primary delivery failed")
		return OutcomeFailed, err
	}
	if len(res.SupplementaryErrors) > 0 {
		log.Warn().Errs("errors", res.SupplementaryErrors).Int("sent", res.Sent).Msg("supplementary delivery incomplete")
		return OutcomePartial, nil
	}
	log.Info().Int("sent", res.Sent).Str("destination", res.Destination).Msg("forwarded")
	return OutcomeDelivered, nil
}

// seenBefore fails open: a dedup store error lets the event through.
func (u *bridgeUC) seenBefore(ctx context.Context, log *zerolog.Logger, ev model.InboundEvent) bool {
	if u.dedup == nil || ev.MessageID == "" {
		return false
	}
	first, err := u.dedup.FirstSeen(ctx, DedupKey(ev), u.dedupTTL)
	if err != nil {
		log.Warn().Err(err).Msg("dedup check failed")
		return false
	}
	return !first
}

// DedupKey identifies one gateway delivery across retries.
func DedupKey(ev model.InboundEvent) string {
	status := ""
	if ev.Status != nil {
		status = string(ev.Status.Status)
	}
	return fmt.Sprintf("dedup:%d:%s:%s:%s", ev.InstanceID, ev.RawKind, ev.MessageID, status)
}
