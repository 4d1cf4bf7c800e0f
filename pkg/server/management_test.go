package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/familylists/realtime/pkg/config"
	"github.com/familylists/realtime/pkg/health"
	"github.com/familylists/realtime/pkg/observability/metrics"
)

func newManagementFixture(t *testing.T, healthRegistry *health.Registry) *ManagementServer {
	t.Helper()

	srv, err := NewManagementServer(config.DefaultConfig(), &testLogger{}, healthRegistry, metrics.NewRegistry())
	if err != nil {
		t.Fatalf("new management server: %v", err)
	}
	return srv
}

func managementGet(t *testing.T, srv *ManagementServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	return rec
}

func TestManagementHealthAlwaysOK(t *testing.T) {
	registry := health.NewRegistry()
	registry.RegisterFunc("down", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{Name: "down", Status: health.StatusUnhealthy, Timestamp: time.Now()}
	})
	srv := newManagementFixture(t, registry)

	if rec := managementGet(t, srv, "/health"); rec.Code != http.StatusOK {
		t.Errorf("liveness must stay 200 regardless of dependencies, got %d", rec.Code)
	}
}

func TestManagementReady(t *testing.T) {
	registry := health.NewRegistry()
	registry.RegisterFunc("prefs", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{Name: "prefs", Status: health.StatusHealthy, Timestamp: time.Now()}
	})
	srv := newManagementFixture(t, registry)

	if rec := managementGet(t, srv, "/ready"); rec.Code != http.StatusOK {
		t.Errorf("expected ready 200, got %d: %s", rec.Code, rec.Body.String())
	}

	registry.RegisterFunc("prefs", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{Name: "prefs", Status: health.StatusUnhealthy, Timestamp: time.Now()}
	})
	if rec := managementGet(t, srv, "/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when a dependency is unhealthy, got %d", rec.Code)
	}
}

func TestManagementReadyDegradedStaysInRotation(t *testing.T) {
	registry := health.NewRegistry()
	registry.RegisterFunc("broadcaster", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{Name: "broadcaster", Status: health.StatusDegraded, Timestamp: time.Now()}
	})
	srv := newManagementFixture(t, registry)

	rec := managementGet(t, srv, "/ready")
	if rec.Code != http.StatusOK {
		t.Errorf("degraded should still be ready, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(health.StatusDegraded)) {
		t.Errorf("response should surface degraded status: %s", rec.Body.String())
	}
}

func TestManagementMetricsExposition(t *testing.T) {
	srv := newManagementFixture(t, health.NewRegistry())

	rec := managementGet(t, srv, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected runtime metrics in exposition")
	}
}
