// Package listevent defines the immutable event describing one list or item
// mutation. Events feed two independent consumers: the broadcaster (live SSE
// viewers) and the notification batcher (delayed push summaries).
package listevent

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Type identifies the kind of mutation an event describes. The set is open:
// new types may be introduced without changes to the broadcaster or batcher.
type Type string

const (
	TypeItemCreated         Type = "item_created"
	TypeItemUpdated         Type = "item_updated"
	TypeItemDeleted         Type = "item_deleted"
	TypeItemChecked         Type = "item_checked"
	TypeItemUnchecked       Type = "item_unchecked"
	TypeItemsCleared        Type = "items_cleared"
	TypeItemsRestored       Type = "items_restored"
	TypeCategoriesReordered Type = "categories_reordered"
)

var (
	// ErrMissingType indicates an event without an event type.
	ErrMissingType = errors.New("event type is required")
	// ErrMissingListID indicates an event without a target list.
	ErrMissingListID = errors.New("list id is required")
)

// Event is a write-once record of one mutation. Item and actor fields are
// optional; actor fields are empty for system or API-key initiated actions.
// A new mutation is always represented by a new Event, never by editing one.
type Event struct {
	Type      Type
	ListID    string
	ItemID    string
	ItemName  string
	ActorID   string
	ActorName string
	Timestamp time.Time
}

// New constructs an Event with the timestamp fixed at creation time.
func New(eventType Type, listID string) (Event, error) {
	listID = strings.TrimSpace(listID)
	if strings.TrimSpace(string(eventType)) == "" {
		return Event{}, ErrMissingType
	}
	if listID == "" {
		return Event{}, ErrMissingListID
	}
	return Event{
		Type:      eventType,
		ListID:    listID,
		Timestamp: time.Now().UTC(),
	}, nil
}

// WithItem returns a copy carrying item identity.
func (e Event) WithItem(itemID, itemName string) Event {
	e.ItemID = strings.TrimSpace(itemID)
	e.ItemName = strings.TrimSpace(itemName)
	return e
}

// WithActor returns a copy carrying the acting user.
func (e Event) WithActor(userID, userName string) Event {
	e.ActorID = strings.TrimSpace(userID)
	e.ActorName = strings.TrimSpace(userName)
	return e
}

// wireEvent is the SSE data payload. Optional fields serialize as null so
// clients can distinguish "absent" from empty strings.
type wireEvent struct {
	EventType string  `json:"event_type"`
	ListID    string  `json:"list_id"`
	ItemID    *string `json:"item_id"`
	ItemName  *string `json:"item_name"`
	UserID    *string `json:"user_id"`
	UserName  *string `json:"user_name"`
	Timestamp string  `json:"timestamp"`
}

// WireJSON renders the event as the JSON body of an SSE data line.
func (e Event) WireJSON() ([]byte, error) {
	if e.Type == "" {
		return nil, ErrMissingType
	}
	if e.ListID == "" {
		return nil, ErrMissingListID
	}
	return json.Marshal(wireEvent{
		EventType: string(e.Type),
		ListID:    e.ListID,
		ItemID:    optional(e.ItemID),
		ItemName:  optional(e.ItemName),
		UserID:    optional(e.ActorID),
		UserName:  optional(e.ActorName),
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
