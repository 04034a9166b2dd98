package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/adapter"
	"whatsapp-telegram-bridge/internal/infra/logging"
	"whatsapp-telegram-bridge/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ DeliveryRouter = (*deliveryRouter)(nil)

// DeliveryResult reports what happened to one batch.
type DeliveryResult struct {
	Destination string
	Sent        int
	// SupplementaryErrors holds one entry per failed supplementary send, in order.
	SupplementaryErrors []error
}

// DeliveryRouter sends a batch to one destination strictly in order.
type DeliveryRouter interface {
	// Deliver returns an error only when the primary message fails; in that
	// case no supplementary message is attempted.
	Deliver(ctx context.Context, destination string, batch model.Batch) (DeliveryResult, error)
}

type deliveryRouter struct {
	transport adapter.BotTransport
	timeout   time.Duration
	log       *zerolog.Logger
}

func NewDeliveryRouter(transport adapter.BotTransport, sendTimeout time.Duration, logger *zerolog.Logger) *deliveryRouter {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	l := logger.With().Str("component", "DeliveryRouter").Logger()
	return &deliveryRouter{transport: transport, timeout: sendTimeout, log: &l}
}

// DestinationFor is the redirect target when set, else the account's channel.
func DestinationFor(a *model.Account) string { return a.Destination() }

func (r *deliveryRouter) Deliver(ctx context.Context, destination string, batch model.Batch) (DeliveryResult, error) {
	defer logging.TraceDuration(r.log, "DeliveryRouter.Deliver")()

	res := DeliveryResult{Destination: destination}
	if destination == "" {
		return res, &domain.ValidationError{Field: "destination", Reason: "empty"}
	}

	if err := r.sendOne(ctx, destination, batch.Primary, "primary"); err != nil {
		return res, err
	}
	res.Sent++

	for i, m := range batch.Supplementary {
		if err := r.sendOne(ctx, destination, m, "supplementary"); err != nil {
			res.SupplementaryErrors = append(res.SupplementaryErrors, fmt.Errorf("supplementary %d (%s): %w", i, m.Kind, err))
			continue
		}
		res.Sent++
	}
	return res, nil
}

func (r *deliveryRouter) sendOne(ctx context.Context, destination string, m model.OutboundMessage, position string) error {
	log := logging.With(ctx, r.log)
	start := time.Now()

	if err := m.Validate(); err != nil {
		// the transformer only emits accepted shapes; reaching here is a bug
		log.Error().Err(err).Str("kind", string(m.Kind)).Str("position", position).Msg("refusing to send malformed message")
		metrics.ObserveDelivery(string(m.Kind), position, "unsupported", time.Since(start))
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.transport.Send(sctx, m.WithChatID(destination))
	if err != nil {
		err = classifySendError(sctx, err)
	}

	result := "ok"
	if err != nil {
		result = "error"
		if kind, ok := domain.TransportKindOf(err); ok {
			result = string(kind)
		}
		log.Warn().Err(err).Str("kind", string(m.Kind)).Str("position", position).Str("destination", destination).Msg("send failed")
	} else {
		log.Debug().Str("kind", string(m.Kind)).Str("position", position).Str("destination", destination).Msg("sent")
	}
	metrics.ObserveDelivery(string(m.Kind), position, result, time.Since(start))
	return err
}

// classifySendError makes every send failure a *domain.TransportError so
// callers can branch on its kind.
func classifySendError(ctx context.Context, err error) error {
	var te *domain.TransportError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, domain.ErrUnsupportedContent) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.TransportError{Kind: domain.TransportTimedOut, Op: "send", Err: err}
	}
	return &domain.TransportError{Kind: domain.TransportUnreachable, Op: "send", Err: err}
}
