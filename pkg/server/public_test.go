package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/familylists/realtime/pkg/broadcaster"
	"github.com/familylists/realtime/pkg/config"
	"github.com/familylists/realtime/pkg/listevent"
	"github.com/familylists/realtime/pkg/notify"
	"github.com/familylists/realtime/pkg/observability/logger"
	"github.com/familylists/realtime/pkg/push"
	"github.com/familylists/realtime/pkg/realtime/sse"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testLogger struct{}

func (l *testLogger) Debug(msg string, args ...any)                 {}
func (l *testLogger) Info(msg string, args ...any)                  {}
func (l *testLogger) Warn(msg string, args ...any)                  {}
func (l *testLogger) Error(msg string, args ...any)                 {}
func (l *testLogger) With(args ...any) logger.Logger                { return l }
func (l *testLogger) WithContext(ctx context.Context) logger.Logger { return l }

type publicFixture struct {
	server      *PublicServer
	broadcaster *broadcaster.Broadcaster
	batcher     *notify.Batcher
}

func newPublicFixture(t *testing.T, mutate func(*config.Config), resolver notify.RecipientResolver) *publicFixture {
	t.Helper()

	log := &testLogger{}
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}

	bc := broadcaster.New(broadcaster.DefaultConfig(), log)
	t.Cleanup(bc.Close)

	// Hour-scale delays so tests can inspect batches before any flush.
	batcher, err := notify.NewBatcher(notify.Config{
		InitialDelay: time.Hour,
		ExtendDelay:  time.Hour,
		MaxDelay:     4 * time.Hour,
		MaxEvents:    1000,
	}, log, notify.NewInMemoryPreferenceStore(), push.NewNopGateway(log))
	if err != nil {
		t.Fatalf("new batcher: %v", err)
	}

	stream, err := sse.NewHandler(sse.HandlerConfig{Broadcaster: bc, Logger: log})
	if err != nil {
		t.Fatalf("new sse handler: %v", err)
	}

	srv, err := NewPublicServer(cfg, PublicDeps{
		Logger:      log,
		Broadcaster: bc,
		Batcher:     batcher,
		Stream:      stream,
		Resolver:    resolver,
	})
	if err != nil {
		t.Fatalf("new public server: %v", err)
	}

	return &publicFixture{server: srv, broadcaster: bc, batcher: batcher}
}

func (f *publicFixture) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/internal/v1/events", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.handler.ServeHTTP(rec, req)
	return rec
}

func TestPublishFansOutAndBatches(t *testing.T) {
	f := newPublicFixture(t, nil, nil)

	sub, err := f.broadcaster.Subscribe("list-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer f.broadcaster.Unsubscribe(sub)

	rec := f.post(t, `{
		"event_type": "item_checked",
		"list_id": "list-1",
		"list_name": "Groceries",
		"item_id": "i-1",
		"item_name": "Milk",
		"user_id": "amy",
		"user_name": "Amy",
		"recipients": ["amy", "ben", "cara"]
	}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case evt := <-sub.Events():
		if evt.Type != listevent.TypeItemChecked || evt.ItemName != "Milk" || evt.ActorID != "amy" {
			t.Errorf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive published event")
	}

	// Actor excluded, two other recipients batched.
	if got := f.batcher.ActiveBatches(); got != 2 {
		t.Errorf("expected 2 active batches, got %d", got)
	}
}

func TestPublishRejectsInvalidRequests(t *testing.T) {
	f := newPublicFixture(t, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"event_type": `},
		{"missing event type", `{"list_id": "list-1"}`},
		{"missing list id", `{"event_type": "item_created"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := f.post(t, tc.body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPublishResolvesRecipientsWhenOmitted(t *testing.T) {
	resolver := notify.RecipientResolverFunc(func(ctx context.Context, listID string) ([]string, error) {
		if listID != "list-7" {
			return nil, errors.New("unknown list")
		}
		return []string{"amy", "ben"}, nil
	})
	f := newPublicFixture(t, nil, resolver)

	rec := f.post(t, `{
		"event_type": "item_created",
		"list_id": "list-7",
		"list_name": "Errands",
		"item_name": "Stamps",
		"user_id": "amy",
		"user_name": "Amy"
	}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if got := f.batcher.ActiveBatches(); got != 1 {
		t.Errorf("expected 1 active batch for resolved recipient, got %d", got)
	}
}

func TestPublishResolverFailureStillAccepted(t *testing.T) {
	resolver := notify.RecipientResolverFunc(func(ctx context.Context, listID string) ([]string, error) {
		return nil, errors.New("membership service down")
	})
	f := newPublicFixture(t, nil, resolver)

	rec := f.post(t, `{"event_type": "item_created", "list_id": "list-1"}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 despite resolver failure, got %d", rec.Code)
	}
	if got := f.batcher.ActiveBatches(); got != 0 {
		t.Errorf("expected no batches after resolver failure, got %d", got)
	}
}

func TestPublishRateLimited(t *testing.T) {
	f := newPublicFixture(t, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerSecond = 0.0001
		cfg.RateLimit.Burst = 1
	}, nil)

	body := `{"event_type": "item_created", "list_id": "list-1"}`
	if rec := f.post(t, body); rec.Code != http.StatusAccepted {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}
	if rec := f.post(t, body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request should be rate limited, got %d", rec.Code)
	}
}

func TestVersionEndpoint(t *testing.T) {
	f := newPublicFixture(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	f.server.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal version payload: %v", err)
	}
	if !strings.Contains(payload["service"], "familylists") {
		t.Errorf("unexpected service name: %q", payload["service"])
	}
}
