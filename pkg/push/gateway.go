// Package push delivers formatted notifications to a push relay. The relay
// owns the Web Push transport (VAPID signing, endpoint bookkeeping, pruning
// of expired subscriptions); this package only hands it the message.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/familylists/realtime/pkg/notify"
	"github.com/familylists/realtime/pkg/observability/logger"
	"github.com/familylists/realtime/pkg/resilience"
)

// WebhookGatewayConfig configures the HTTP push-relay gateway.
type WebhookGatewayConfig struct {
	URL              string
	AuthToken        string
	OperationTimeout time.Duration
	HTTPClient       *http.Client

	// Breaker overrides the default circuit breaker around relay calls.
	Breaker *resilience.Breaker
}

// WebhookGateway posts notifications to the configured push relay. A
// circuit breaker around the relay call keeps a dead relay from costing
// one timeout per batch flush.
type WebhookGateway struct {
	cfg        WebhookGatewayConfig
	httpClient *http.Client
	breaker    *resilience.Breaker
	log        logger.Logger
}

// NewWebhookGateway creates an HTTP push-relay gateway.
func NewWebhookGateway(cfg WebhookGatewayConfig, log logger.Logger) (*WebhookGateway, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("push relay url is required")
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.OperationTimeout}
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.BreakerConfig{})
	}
	return &WebhookGateway{
		cfg:        cfg,
		httpClient: httpClient,
		breaker:    breaker,
		log:        log,
	}, nil
}

// relayPayload matches what the push relay forwards into the Web Push
// payload, icon and badge paths included.
type relayPayload struct {
	RecipientID string            `json:"recipient_id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Icon        string            `json:"icon"`
	Badge       string            `json:"badge"`
	Tag         string            `json:"tag"`
	Renotify    bool              `json:"renotify"`
	Data        map[string]string `json:"data"`
}

// Deliver posts the notification to the relay. A non-2xx response is an
// error; the caller decides whether a failed push matters.
func (g *WebhookGateway) Deliver(ctx context.Context, notification notify.Notification) error {
	tag := notification.Tag
	if tag == "" {
		tag = "familylist"
	}
	data := notification.Data
	if data == nil {
		data = map[string]string{}
	}

	raw, err := json.Marshal(relayPayload{
		RecipientID: notification.RecipientID,
		Title:       notification.Title,
		Body:        notification.Body,
		Icon:        "/icons/icon-192.png",
		Badge:       "/icons/badge-72.png",
		Tag:         tag,
		Renotify:    true,
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	err = g.breaker.Do(func() error {
		return g.post(ctx, raw)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrBreakerOpen) {
			return fmt.Errorf("push relay unavailable: %w", err)
		}
		return err
	}

	g.log.Debug("push notification relayed",
		"recipient_id", notification.RecipientID, "tag", tag)
	return nil
}

func (g *WebhookGateway) post(ctx context.Context, body []byte) error {
	cctx, cancel := context.WithTimeout(ctx, g.cfg.OperationTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.AuthToken)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push relay request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push relay responded with status %d", resp.StatusCode)
	}
	return nil
}

// NopGateway discards notifications. Used when no push relay is configured.
type NopGateway struct {
	log logger.Logger
}

// NewNopGateway creates a discarding gateway.
func NewNopGateway(log logger.Logger) *NopGateway {
	return &NopGateway{log: log}
}

// Deliver logs and drops the notification.
func (g *NopGateway) Deliver(_ context.Context, notification notify.Notification) error {
	g.log.Debug("push delivery disabled, dropping notification",
		"recipient_id", notification.RecipientID, "title", notification.Title)
	return nil
}
