// File: internal/infra/adapters/greenapi/client.go
package greenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-telegram-bridge/internal/config"
	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/adapter"
	"whatsapp-telegram-bridge/internal/infra/logging"
)

var _ adapter.GatewayClient = (*Client)(nil)

// Client calls the per-instance REST API: {base}/waInstance{id}/{method}/{token}.
type Client struct {
	baseURL string
	client  *http.Client
	log     *zerolog.Logger
}

func NewClient(cfg *config.GreenAPIConfig, logger *zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	l := logger.With().Str("component", "GreenAPIClient").Logger()
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     &l,
	}
}

func (c *Client) endpoint(b model.Binding, method string) string {
	return fmt.Sprintf("%s/waInstance%d/%s/%s", c.baseURL, b.InstanceID, method, b.Token)
}

func (c *Client) GetState(ctx context.Context, b model.Binding) (string, error) {
	var out struct {
		StateInstance string `json:"stateInstance"`
	}
	if err := c.do(ctx, http.MethodGet, b, "getStateInstance", nil, &out); err != nil {
		return "", err
	}
	return out.StateInstance, nil
}

func (c *Client) GetSettings(ctx context.Context, b model.Binding) (adapter.InstanceSettings, error) {
	var out adapter.InstanceSettings
	err := c.do(ctx, http.MethodGet, b, "getSettings", nil, &out)
	return out, err
}

func (c *Client) SetSettings(ctx context.Context, b model.Binding, s adapter.InstanceSettings) error {
	// wid is read-only on the gateway side
	s.Wid = ""
	var out struct {
		SaveSettings bool `json:"saveSettings"`
	}
	if err := c.do(ctx, http.MethodPost, b, "setSettings", s, &out); err != nil {
		return err
	}
	if !out.SaveSettings {
		return &domain.TransportError{Kind: domain.TransportRejected, Op: "setSettings", Err: errors.New("settings not saved")}
	}
	return nil
}

func (c *Client) SendMessage(ctx context.Context, b model.Binding, chatID, message string) (string, error) {
	body := map[string]string{"chatId": chatID, "message": message}
	var out struct {
		IDMessage string `json:"idMessage"`
	}
	if err := c.do(ctx, http.MethodPost, b, "sendMessage", body, &out); err != nil {
		return "", err
	}
	c.log.Info().Int64("instance_id", b.InstanceID).Str("chat", model.MaskChatID(chatID)).Str("id_message", out.IDMessage).Msg("message sent")
	return out.IDMessage, nil
}

func (c *Client) do(ctx context.Context, method string, b model.Binding, op string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(b, op), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return TransportFailure(op, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("op", op).
		Int64("instance_id", b.InstanceID).
		Str("token", logging.Redact(b.Token, false)).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("gateway call")

	if err := StatusError(op, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.TransportError{Kind: domain.TransportRejected, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// TransportFailure classifies a failed round trip as timed out or unreachable.
func TransportFailure(op string, err error) error {
	kind := domain.TransportUnreachable
	if errors.Is(err, context.DeadlineExceeded) {
		kind = domain.TransportTimedOut
	} else {
		var te interface{ Timeout() bool }
		if errors.As(err, &te) && te.Timeout() {
			kind = domain.TransportTimedOut
		}
	}
	// url.Error carries the request URL, which embeds the instance token
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	return &domain.TransportError{Kind: kind, Op: op, Err: err}
}

// StatusError maps 401/403 to ErrUnauthorized, 404 to ErrNotFound, other
// 4xx to a rejection and 5xx to an unreachable gateway.
func StatusError(op string, resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	cause := fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrUnauthorized, cause)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrNotFound, cause)
	case resp.StatusCode >= 500:
		return &domain.TransportError{Kind: domain.TransportUnreachable, Op: op, StatusCode: resp.StatusCode, Err: cause}
	default:
		return &domain.TransportError{Kind: domain.TransportRejected, Op: op, StatusCode: resp.StatusCode, Err: cause}
	}
}
