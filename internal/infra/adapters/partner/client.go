package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-telegram-bridge/internal/config"
	"whatsapp-telegram-bridge/internal/domain"
	"whatsapp-telegram-bridge/internal/domain/ports/adapter"
	"whatsapp-telegram-bridge/internal/infra/adapters/greenapi"
)

var _ adapter.PartnerClient = (*Client)(nil)

// Client provisions instances through the partner API: {base}/{method}/{partnerToken}.
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
	l := logger.With().Str("component", "PartnerClient").Logger()
	return &Client{
		baseURL: strings.TrimRight(cfg.PartnerURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     &l,
	}
}

type instanceDTO struct {
	IDInstance     int64  `json:"idInstance"`
	Name           string `json:"name"`
	TypeInstance   string `json:"typeInstance"`
	TypeAccount    string `json:"typeAccount"`
	Tariff         string `json:"tariff"`
	TimeCreated    string `json:"timeCreated"`
	TimeDeleted    string `json:"timeDeleted"`
	ExpirationDate string `json:"expirationDate"`
	IsExpired      bool   `json:"isExpired"`
	Deleted        bool   `json:"deleted"`
}

func (c *Client) CreateInstance(ctx context.Context, partnerToken string) (adapter.CreatedInstance, error) {
	var out adapter.CreatedInstance
	if err := c.do(ctx, http.MethodPost, "createInstance", partnerToken, nil, &out); err != nil {
		return adapter.CreatedInstance{}, err
	}
	if out.IDInstance == 0 || out.APITokenInstance == "" {
		return adapter.CreatedInstance{}, &domain.TransportError{Kind: domain.TransportRejected, Op: "createInstance", Err: fmt.Errorf("empty instance in response")}
	}
	c.log.Info().Int64("instance_id", out.IDInstance).Msg("instance created")
	return out, nil
}

func (c *Client) GetInstances(ctx context.Context, partnerToken string) ([]adapter.PartnerInstance, error) {
	var raw []instanceDTO
	if err := c.do(ctx, http.MethodGet, "getInstances", partnerToken, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]adapter.PartnerInstance, 0, len(raw))
	for _, r := range raw {
		out = append(out, adapter.PartnerInstance{
			IDInstance:     r.IDInstance,
			Name:           r.Name,
			TypeAccount:    r.TypeAccount,
			Tariff:         r.Tariff,
			TimeCreated:    parseTime(r.TimeCreated),
			ExpirationDate: parseTime(r.ExpirationDate),
			IsExpired:      r.IsExpired,
			IsDeleted:      r.Deleted,
		})
	}
	c.log.Debug().Int("count", len(out)).Msg("instances received")
	return out, nil
}

func (c *Client) DeleteInstanceAccount(ctx context.Context, partnerToken string, instanceID int64) error {
	body := map[string]int64{"idInstance": instanceID}
	var out struct {
		DeleteInstanceAccount bool `json:"deleteInstanceAccount"`
	}
	if err := c.do(ctx, http.MethodPost, "deleteInstanceAccount", partnerToken, body, &out); err != nil {
		return err
	}
	c.log.Info().Int64("instance_id", instanceID).Bool("confirmed", out.DeleteInstanceAccount).Msg("instance deleted")
	return nil
}

func (c *Client) do(ctx context.Context, method, op, token string, in, out interface{}) error {
	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s/%s/%s", c.baseURL, op, token), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return greenapi.TransportFailure(op, err)
	}
	defer resp.Body.Close()

	if err := greenapi.StatusError(op, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return &domain.TransportError{Kind: domain.TransportRejected, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts the layouts the partner API has been seen to return and
// yields the zero time otherwise.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
