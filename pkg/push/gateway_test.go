package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/familylists/realtime/pkg/notify"
	"github.com/familylists/realtime/pkg/observability/logger"
	"github.com/familylists/realtime/pkg/resilience"
)

type testLogger struct{}

func (l *testLogger) Debug(msg string, args ...any)                 {}
func (l *testLogger) Info(msg string, args ...any)                  {}
func (l *testLogger) Warn(msg string, args ...any)                  {}
func (l *testLogger) Error(msg string, args ...any)                 {}
func (l *testLogger) With(args ...any) logger.Logger                { return l }
func (l *testLogger) WithContext(ctx context.Context) logger.Logger { return l }

func TestWebhookGateway_PostsRelayPayload(t *testing.T) {
	var received relayPayload
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode relay payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	gateway, err := NewWebhookGateway(WebhookGatewayConfig{
		URL:       server.URL,
		AuthToken: "secret",
	}, &testLogger{})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	err = gateway.Deliver(context.Background(), notify.Notification{
		RecipientID: "u2",
		Title:       "Groceries",
		Body:        "Amy added Milk",
		Data:        map[string]string{"list_id": "l1"},
		Tag:         "list-l1",
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Fatalf("missing bearer auth, got %q", gotAuth)
	}
	if received.RecipientID != "u2" || received.Title != "Groceries" || received.Body != "Amy added Milk" {
		t.Fatalf("unexpected payload: %+v", received)
	}
	if received.Tag != "list-l1" || !received.Renotify || received.Icon == "" {
		t.Fatalf("payload missing web push fields: %+v", received)
	}
}

func TestWebhookGateway_DefaultsTagWhenEmpty(t *testing.T) {
	var received relayPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gateway, err := NewWebhookGateway(WebhookGatewayConfig{URL: server.URL}, &testLogger{})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	if err := gateway.Deliver(context.Background(), notify.Notification{RecipientID: "u1"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if received.Tag != "familylist" {
		t.Fatalf("expected default tag, got %q", received.Tag)
	}
}

func TestWebhookGateway_NonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	gateway, err := NewWebhookGateway(WebhookGatewayConfig{URL: server.URL}, &testLogger{})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	if err := gateway.Deliver(context.Background(), notify.Notification{RecipientID: "u1"}); err == nil {
		t.Fatalf("expected error on 502 response")
	}
}

func TestWebhookGateway_BreakerShedsLoadWhenRelayDown(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gateway, err := NewWebhookGateway(WebhookGatewayConfig{
		URL:     server.URL,
		Breaker: resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour}),
	}, &testLogger{})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := gateway.Deliver(context.Background(), notify.Notification{RecipientID: "u1"}); err == nil {
			t.Fatalf("deliver %d: expected error", i)
		}
	}

	if calls != 2 {
		t.Fatalf("breaker should stop hitting the relay after 2 failures, got %d calls", calls)
	}

	err = gateway.Deliver(context.Background(), notify.Notification{RecipientID: "u1"})
	if !errors.Is(err, resilience.ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestNewWebhookGateway_RequiresURL(t *testing.T) {
	if _, err := NewWebhookGateway(WebhookGatewayConfig{}, &testLogger{}); err == nil {
		t.Fatalf("expected error for missing relay url")
	}
}

func TestNopGateway_Discards(t *testing.T) {
	gateway := NewNopGateway(&testLogger{})
	if err := gateway.Deliver(context.Background(), notify.Notification{RecipientID: "u1"}); err != nil {
		t.Fatalf("nop deliver: %v", err)
	}
}
