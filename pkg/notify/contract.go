// Package notify converts bursts of list events into at most one delayed,
// summarized push notification per recipient. The push transport, recipient
// resolution, and preference storage are external collaborators consumed
// through the interfaces in this file.
package notify

import (
	"context"
	"strings"
	"time"
)

// List-update notification modes.
const (
	ListUpdatesAlways  = "always"
	ListUpdatesBatched = "batched"
	ListUpdatesOff     = "off"
)

// Preferences holds a user's notification settings. Quiet hours are "HH:MM"
// strings in UTC; both must be set for the window to apply.
type Preferences struct {
	ListUpdates string `json:"list_updates"`
	QuietStart  string `json:"quiet_start"`
	QuietEnd    string `json:"quiet_end"`
}

// DefaultPreferences returns the settings applied to users without a stored
// preference record.
func DefaultPreferences() Preferences {
	return Preferences{ListUpdates: ListUpdatesAlways}
}

// InQuietHours reports whether now falls inside the configured quiet window.
// A window whose start is after its end wraps overnight (22:00 to 07:00).
func (p Preferences) InQuietHours(now time.Time) bool {
	start := strings.TrimSpace(p.QuietStart)
	end := strings.TrimSpace(p.QuietEnd)
	if start == "" || end == "" {
		return false
	}

	current := now.UTC().Format("15:04")
	if start <= end {
		return start <= current && current <= end
	}
	return current >= start || current <= end
}

// PreferenceStore looks up a user's notification preferences. Implementations
// return DefaultPreferences for users without a record.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (Preferences, error)
}

// RecipientResolver returns the user ids entitled to notifications for a
// list: the owner plus all users with an active share. Callers must resolve
// recipients before any deferred work begins.
type RecipientResolver interface {
	Recipients(ctx context.Context, listID string) ([]string, error)
}

// RecipientResolverFunc adapts a function to RecipientResolver.
type RecipientResolverFunc func(ctx context.Context, listID string) ([]string, error)

// Recipients implements RecipientResolver.
func (f RecipientResolverFunc) Recipients(ctx context.Context, listID string) ([]string, error) {
	return f(ctx, listID)
}

// Notification is the formatted message handed to the delivery gateway.
type Notification struct {
	RecipientID string            `json:"recipient_id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Tag         string            `json:"tag,omitempty"`
}

// DeliveryGateway transmits one notification through all of the recipient's
// registered endpoints. Expired endpoints are pruned by the gateway, not
// here.
type DeliveryGateway interface {
	Deliver(ctx context.Context, notification Notification) error
}
