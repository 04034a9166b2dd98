// File: internal/domain/ports/adapter/telegram.go
package adapter

import (
	"context"
	"time"

	"whatsapp-telegram-bridge/internal/domain/model"
)

type WebhookInfo struct {
	URL                  string
	PendingUpdateCount   int
	LastErrorDate        time.Time
	LastErrorMessage     string
	MaxConnections       int
	HasCustomCertificate bool
}

// BotTransport sends to the bot platform. Send accepts exactly the
// model.OutboundKind set and returns *domain.TransportError on failure.
type BotTransport interface {
	Send(ctx context.Context, msg model.OutboundMessage) error
	SetWebhook(ctx context.Context, url string) error
	GetWebhookInfo(ctx context.Context) (WebhookInfo, error)
	DeleteWebhook(ctx context.Context, dropPending bool) error
}
