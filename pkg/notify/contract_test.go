package notify

import (
	"context"
	"testing"
	"time"
)

func atClock(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		t.Fatalf("parse clock %q: %v", hhmm, err)
	}
	return time.Date(2025, 6, 1, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}

func TestPreferences_InQuietHours(t *testing.T) {
	tests := []struct {
		name  string
		prefs Preferences
		now   string
		want  bool
	}{
		{"no window configured", Preferences{}, "12:00", false},
		{"only start configured", Preferences{QuietStart: "22:00"}, "23:00", false},
		{"same day inside", Preferences{QuietStart: "09:00", QuietEnd: "17:00"}, "12:00", true},
		{"same day outside", Preferences{QuietStart: "09:00", QuietEnd: "17:00"}, "18:00", false},
		{"same day start boundary", Preferences{QuietStart: "09:00", QuietEnd: "17:00"}, "09:00", true},
		{"same day end boundary", Preferences{QuietStart: "09:00", QuietEnd: "17:00"}, "17:00", true},
		{"overnight late evening", Preferences{QuietStart: "22:00", QuietEnd: "07:00"}, "23:30", true},
		{"overnight early morning", Preferences{QuietStart: "22:00", QuietEnd: "07:00"}, "06:00", true},
		{"overnight daytime", Preferences{QuietStart: "22:00", QuietEnd: "07:00"}, "12:00", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.prefs.InQuietHours(atClock(t, tc.now)); got != tc.want {
				t.Fatalf("InQuietHours(%s) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestInMemoryPreferenceStore_DefaultsWhenMissing(t *testing.T) {
	store := NewInMemoryPreferenceStore()

	prefs, err := store.Get(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if prefs.ListUpdates != ListUpdatesAlways {
		t.Fatalf("expected default mode %q, got %q", ListUpdatesAlways, prefs.ListUpdates)
	}

	store.Set("u1", Preferences{QuietStart: "22:00", QuietEnd: "07:00"})
	prefs, err = store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if prefs.ListUpdates != ListUpdatesAlways || prefs.QuietStart != "22:00" {
		t.Fatalf("stored prefs not normalized: %+v", prefs)
	}
}

func TestRecipientResolverFunc(t *testing.T) {
	resolver := RecipientResolverFunc(func(ctx context.Context, listID string) ([]string, error) {
		return []string{"owner", "share-1"}, nil
	})

	recipients, err := resolver.Recipients(context.Background(), "l1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(recipients) != 2 || recipients[0] != "owner" {
		t.Fatalf("unexpected recipients: %v", recipients)
	}
}
