package notify

import (
	"fmt"
	"strings"

	"github.com/familylists/realtime/pkg/listevent"
)

// Action buckets, rendered in this order within one actor's clause.
var bucketOrder = []string{"added", "checked", "unchecked", "removed", "updated"}

var bucketVerbs = map[string]string{
	"added":     "added",
	"checked":   "checked off",
	"unchecked": "unchecked",
	"removed":   "removed",
	"updated":   "updated",
}

// FormatSummary renders a batch into a notification title and body. The
// title is always the list's display name. Events are grouped by actor in
// arrival order; within an actor, by action bucket. A bucket with one item
// inlines its name, two or three list their names, four or more collapse to
// a count.
func FormatSummary(listName string, events []PendingEvent) (string, string) {
	actorOrder := make([]string, 0, 2)
	byActor := make(map[string]map[string][]string)

	for _, event := range events {
		actor := event.ActorName
		if actor == "" {
			actor = "Someone"
		}
		buckets, ok := byActor[actor]
		if !ok {
			buckets = make(map[string][]string)
			byActor[actor] = buckets
			actorOrder = append(actorOrder, actor)
		}

		item := event.ItemName
		if item == "" {
			item = "item"
		}
		buckets[bucketFor(event.EventType)] = append(buckets[bucketFor(event.EventType)], item)
	}

	clauses := make([]string, 0, len(actorOrder))
	for _, actor := range actorOrder {
		parts := make([]string, 0, len(bucketOrder))
		for _, bucket := range bucketOrder {
			items := byActor[actor][bucket]
			if len(items) == 0 {
				continue
			}
			parts = append(parts, renderBucket(bucketVerbs[bucket], items))
		}
		if len(parts) > 0 {
			clauses = append(clauses, actor+" "+strings.Join(parts, " and "))
		}
	}

	body := strings.Join(clauses, "; ")
	if body == "" {
		body = "List updated"
	}
	return listName, body
}

func bucketFor(eventType listevent.Type) string {
	switch eventType {
	case listevent.TypeItemCreated:
		return "added"
	case listevent.TypeItemChecked:
		return "checked"
	case listevent.TypeItemUnchecked:
		return "unchecked"
	case listevent.TypeItemDeleted:
		return "removed"
	default:
		// item_updated, items_cleared, items_restored, categories_reordered
		// and any future types all read as generic updates.
		return "updated"
	}
}

func renderBucket(verb string, items []string) string {
	if len(items) <= 3 {
		return verb + " " + joinNames(items)
	}
	return fmt.Sprintf("%s %d items", verb, len(items))
}

func joinNames(items []string) string {
	switch len(items) {
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
