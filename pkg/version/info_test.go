package version

import (
	"testing"
	"time"
)

func TestCurrentDefaults(t *testing.T) {
	info := Current("familylists-realtime")

	if info.Service != "familylists-realtime" {
		t.Errorf("expected service name, got %q", info.Service)
	}
	if info.Version != DevelopmentVersion {
		t.Errorf("expected dev version, got %q", info.Version)
	}
	if info.Commit != Unknown {
		t.Errorf("expected unknown commit, got %q", info.Commit)
	}
}

func TestCurrentNormalizesEmptyService(t *testing.T) {
	info := Current("   ")
	if info.Service != Unknown {
		t.Errorf("expected unknown service for blank name, got %q", info.Service)
	}
}

func TestParseBuildTime(t *testing.T) {
	info := Info{BuildTime: "2026-08-01T12:00:00Z"}
	ts, ok := info.ParseBuildTime()
	if !ok {
		t.Fatal("expected build time to parse")
	}
	if ts.UTC() != time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) {
		t.Errorf("unexpected parsed time: %s", ts)
	}

	if _, ok := (Info{BuildTime: Unknown}).ParseBuildTime(); ok {
		t.Error("unknown build time must not parse")
	}
	if _, ok := (Info{BuildTime: "yesterday"}).ParseBuildTime(); ok {
		t.Error("invalid build time must not parse")
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Service: "svc", Version: "v1.0.0", Commit: "abc123", BuildTime: Unknown}
	want := "svc@v1.0.0 (commit=abc123, build_time=unknown)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
