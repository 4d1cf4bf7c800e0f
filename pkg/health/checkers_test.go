package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePingable struct {
	err   error
	delay time.Duration
}

func (f *fakePingable) Ping(ctx context.Context) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func TestPingCheckerHealthy(t *testing.T) {
	checker := NewPingChecker("prefs", &fakePingable{}, time.Second)

	result := checker.Check(context.Background())

	if result.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s (%s)", result.Status, result.Error)
	}
	if result.Name != "prefs" {
		t.Errorf("expected name prefs, got %q", result.Name)
	}
}

func TestPingCheckerReportsFailure(t *testing.T) {
	checker := NewPingChecker("prefs", &fakePingable{err: errors.New("connection refused")}, time.Second)

	result := checker.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", result.Status)
	}
	if result.Error != "connection refused" {
		t.Errorf("expected ping error in result, got %q", result.Error)
	}
}

func TestPingCheckerTimesOut(t *testing.T) {
	checker := NewPingChecker("prefs", &fakePingable{delay: time.Second}, 20*time.Millisecond)

	result := checker.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy on timeout, got %s", result.Status)
	}
}

type fakeCounter struct {
	total int
}

func (f *fakeCounter) TotalSubscribers() int { return f.total }

func TestBroadcasterCheckerHealthyBelowCap(t *testing.T) {
	checker := NewBroadcasterChecker("broadcaster", &fakeCounter{total: 10}, 100)

	result := checker.Check(context.Background())

	if result.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", result.Status)
	}
	if got := result.Metadata["subscribers"]; got != 10 {
		t.Errorf("expected subscribers metadata 10, got %v", got)
	}
}

func TestBroadcasterCheckerDegradesNearCap(t *testing.T) {
	checker := NewBroadcasterChecker("broadcaster", &fakeCounter{total: 95}, 100)

	result := checker.Check(context.Background())

	if result.Status != StatusDegraded {
		t.Errorf("expected degraded near cap, got %s", result.Status)
	}
}

func TestBroadcasterCheckerNoCapNeverDegrades(t *testing.T) {
	checker := NewBroadcasterChecker("broadcaster", &fakeCounter{total: 1 << 20}, 0)

	result := checker.Check(context.Background())

	if result.Status != StatusHealthy {
		t.Errorf("expected healthy with no cap, got %s", result.Status)
	}
}
