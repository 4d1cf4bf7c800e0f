// Package broadcaster provides the in-process publish/subscribe fan-out for
// list events. Each subscriber owns a bounded mailbox; publishing never
// blocks and drops per-subscriber when a mailbox is full.
package broadcaster

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/familylists/realtime/pkg/listevent"
	"github.com/familylists/realtime/pkg/observability/logger"
)

var (
	// ErrTooManySubscribers indicates the process-wide subscriber cap was hit.
	ErrTooManySubscribers = errors.New("too many subscribers")
	// ErrInvalidListID indicates an empty list id.
	ErrInvalidListID = errors.New("invalid list id")
)

// Config configures broadcaster capacity bounds.
type Config struct {
	// MailboxSize bounds each subscriber's pending-event buffer.
	MailboxSize int
	// MaxSubscribers caps concurrent subscriptions across all lists.
	MaxSubscribers int
}

// DefaultConfig returns defaults tuned for SSE usage.
func DefaultConfig() Config {
	return Config{
		MailboxSize:    100,
		MaxSubscribers: 10000,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.MailboxSize <= 0 {
		c.MailboxSize = def.MailboxSize
	}
	if c.MaxSubscribers <= 0 {
		c.MaxSubscribers = def.MaxSubscribers
	}
	return c
}

// Broadcaster fans list events out to all current subscribers of the
// matching list. Delivery is at-most-once, best-effort per subscriber.
type Broadcaster struct {
	cfg Config
	log logger.Logger

	mu     sync.RWMutex
	byList map[string]map[string]*Subscriber
	total  int
}

// Subscriber is one registered mailbox. The owner of the handle must call
// Unsubscribe on every exit path; Closed reports termination. The mailbox
// channel itself is never closed, so concurrent publishes can never panic.
type Subscriber struct {
	id        string
	listID    string
	mailbox   chan listevent.Event
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates a broadcaster.
func New(cfg Config, log logger.Logger) *Broadcaster {
	return &Broadcaster{
		cfg:    cfg.normalize(),
		log:    log,
		byList: make(map[string]map[string]*Subscriber),
	}
}

// Subscribe registers a new bounded mailbox for listID. Multiple concurrent
// subscriptions to the same list are independent and all receive every event.
func (b *Broadcaster) Subscribe(listID string) (*Subscriber, error) {
	if listID == "" {
		return nil, ErrInvalidListID
	}

	sub := &Subscriber{
		id:      uuid.NewString(),
		listID:  listID,
		mailbox: make(chan listevent.Event, b.cfg.MailboxSize),
		closed:  make(chan struct{}),
	}

	b.mu.Lock()
	if b.total >= b.cfg.MaxSubscribers {
		b.mu.Unlock()
		return nil, ErrTooManySubscribers
	}
	if b.byList[listID] == nil {
		b.byList[listID] = make(map[string]*Subscriber)
	}
	b.byList[listID][sub.id] = sub
	b.total++
	count := len(b.byList[listID])
	b.mu.Unlock()

	subscribersGauge.Inc()
	b.log.Info("sse subscriber added", "list_id", listID, "subscribers", count)
	return sub, nil
}

// Unsubscribe removes the mailbox from the registry and closes the
// subscriber. Safe to call more than once and with a nil subscriber.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	listSubs := b.byList[sub.listID]
	if _, ok := listSubs[sub.id]; !ok {
		b.mu.Unlock()
		sub.close()
		return
	}
	delete(listSubs, sub.id)
	if len(listSubs) == 0 {
		delete(b.byList, sub.listID)
	}
	b.total--
	remaining := len(listSubs)
	b.mu.Unlock()

	sub.close()
	subscribersGauge.Dec()
	b.log.Info("sse subscriber removed", "list_id", sub.listID, "subscribers", remaining)
}

// Publish delivers event to every current subscriber of event.ListID with a
// non-blocking enqueue. A full mailbox drops the event for that subscriber
// only; publish never blocks and never fails because of a slow consumer.
func (b *Broadcaster) Publish(event listevent.Event) {
	b.mu.RLock()
	listSubs := b.byList[event.ListID]
	snapshot := make([]*Subscriber, 0, len(listSubs))
	for _, sub := range listSubs {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	recordEventPublished(string(event.Type))
	if len(snapshot) == 0 {
		return
	}

	b.log.Debug("publishing list event",
		"event_type", event.Type, "list_id", event.ListID, "subscribers", len(snapshot))

	for _, sub := range snapshot {
		if !sub.enqueue(event) {
			recordEventDropped(string(event.Type))
			b.log.Warn("subscriber mailbox full, event dropped",
				"event_type", event.Type, "list_id", event.ListID, "subscriber_id", sub.id)
		}
	}
}

// SubscriberCount reports the instantaneous subscriber count for a list.
// Diagnostics only; never use it for control decisions.
func (b *Broadcaster) SubscriberCount(listID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byList[listID])
}

// TotalSubscribers reports the instantaneous subscriber count across
// all lists.
func (b *Broadcaster) TotalSubscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.total
}

// Close disconnects every subscriber and empties the registry.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	var all []*Subscriber
	for listID, listSubs := range b.byList {
		for id, sub := range listSubs {
			all = append(all, sub)
			delete(listSubs, id)
		}
		delete(b.byList, listID)
	}
	b.total = 0
	b.mu.Unlock()

	for _, sub := range all {
		sub.close()
		subscribersGauge.Dec()
	}
}

// ID returns the subscriber id.
func (s *Subscriber) ID() string { return s.id }

// ListID returns the subscribed list.
func (s *Subscriber) ListID() string { return s.listID }

// Events returns the receive-only event stream for this subscriber.
func (s *Subscriber) Events() <-chan listevent.Event { return s.mailbox }

// Closed returns a channel closed when the subscriber is removed.
func (s *Subscriber) Closed() <-chan struct{} { return s.closed }

func (s *Subscriber) enqueue(event listevent.Event) bool {
	select {
	case <-s.closed:
		return false
	default:
	}

	select {
	case s.mailbox <- event:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}
