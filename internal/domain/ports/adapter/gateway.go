package adapter

import (
	"context"

	"whatsapp-telegram-bridge/internal/domain/model"
)

type InstanceSettings struct {
	Wid                string `json:"wid,omitempty"`
	WebhookURL         string `json:"webhookUrl"`
	WebhookURLToken    string `json:"webhookUrlToken,omitempty"`
	IncomingWebhook    string `json:"incomingWebhook"`
	OutgoingWebhook    string `json:"outgoingWebhook"`
	StateWebhook       string `json:"stateWebhook"`
	OutgoingAPIWebhook string `json:"outgoingAPIMessageWebhook,omitempty"`
}

// GatewayClient talks to one WhatsApp gateway instance. Every call carries
// the instance binding that authenticates it.
type GatewayClient interface {
	GetState(ctx context.Context, b model.Binding) (string, error)
	GetSettings(ctx context.Context, b model.Binding) (InstanceSettings, error)
	SetSettings(ctx context.Context, b model.Binding, s InstanceSettings) error
	SendMessage(ctx context.Context, b model.Binding, chatID, message string) (string, error)
}
