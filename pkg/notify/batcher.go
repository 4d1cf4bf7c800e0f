package notify

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/familylists/realtime/pkg/listevent"
	"github.com/familylists/realtime/pkg/observability/logger"
)

// Default batching schedule. The shape matters more than the exact values:
// an initial delay, a per-event extension, a hard cap on total delay, and a
// force-flush event threshold.
const (
	DefaultInitialDelay = 30 * time.Second
	DefaultExtendDelay  = 10 * time.Second
	DefaultMaxDelay     = 120 * time.Second
	DefaultMaxEvents    = 15

	deliverTimeout = 10 * time.Second
)

var (
	// ErrMissingPreferenceStore indicates a batcher built without a store.
	ErrMissingPreferenceStore = errors.New("preference store is required")
	// ErrMissingGateway indicates a batcher built without a delivery gateway.
	ErrMissingGateway = errors.New("delivery gateway is required")
)

// Config controls the batching schedule.
type Config struct {
	InitialDelay time.Duration
	ExtendDelay  time.Duration
	MaxDelay     time.Duration
	MaxEvents    int
}

// DefaultConfig returns the production batching schedule.
func DefaultConfig() Config {
	return Config{
		InitialDelay: DefaultInitialDelay,
		ExtendDelay:  DefaultExtendDelay,
		MaxDelay:     DefaultMaxDelay,
		MaxEvents:    DefaultMaxEvents,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.InitialDelay <= 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.ExtendDelay <= 0 {
		c.ExtendDelay = def.ExtendDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = def.MaxEvents
	}
	return c
}

// PendingEvent is the projection of a list event stored in a batch.
type PendingEvent struct {
	EventType listevent.Type
	ItemName  string
	ActorID   string
	ActorName string
	Timestamp time.Time
}

// EnqueueRequest describes one mutation to batch for a set of recipients.
type EnqueueRequest struct {
	ListID     string
	ListName   string
	EventType  listevent.Type
	ItemName   string
	ActorID    string
	ActorName  string
	Recipients []string
}

type batchKey struct {
	userID string
	listID string
}

type batchState struct {
	listName  string
	events    []PendingEvent
	startedAt time.Time

	// timerGen invalidates fired timers that lost a cancel race: a flush
	// only proceeds when its generation is still current for the key.
	timer    *time.Timer
	timerGen uint64
}

// Batcher coalesces events per (recipient, list) and delivers one summary
// notification per batch. All of its work is fire-and-forget with respect to
// the mutation that produced the event.
type Batcher struct {
	cfg     Config
	log     logger.Logger
	prefs   PreferenceStore
	gateway DeliveryGateway

	mu      sync.Mutex
	batches map[batchKey]*batchState
}

// NewBatcher creates a batcher.
func NewBatcher(cfg Config, log logger.Logger, prefs PreferenceStore, gateway DeliveryGateway) (*Batcher, error) {
	if prefs == nil {
		return nil, ErrMissingPreferenceStore
	}
	if gateway == nil {
		return nil, ErrMissingGateway
	}
	return &Batcher{
		cfg:     cfg.normalize(),
		log:     log,
		prefs:   prefs,
		gateway: gateway,
		batches: make(map[batchKey]*batchState),
	}, nil
}

// Enqueue records the event for every recipient except the actor. The actor
// is never notified about their own action, unconditionally.
func (b *Batcher) Enqueue(ctx context.Context, req EnqueueRequest) error {
	listID := strings.TrimSpace(req.ListID)
	if listID == "" {
		return listevent.ErrMissingListID
	}

	event := PendingEvent{
		EventType: req.EventType,
		ItemName:  strings.TrimSpace(req.ItemName),
		ActorID:   strings.TrimSpace(req.ActorID),
		ActorName: strings.TrimSpace(req.ActorName),
		Timestamp: time.Now().UTC(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, userID := range req.Recipients {
		userID = strings.TrimSpace(userID)
		if userID == "" || userID == event.ActorID {
			continue
		}
		b.addToBatchLocked(batchKey{userID: userID, listID: listID}, req.ListName, event)
	}
	return nil
}

// ActiveBatches reports the number of batches currently accumulating.
// Diagnostics only.
func (b *Batcher) ActiveBatches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}

// Close cancels all pending timers and flushes every remaining batch
// synchronously, best effort.
func (b *Batcher) Close(ctx context.Context) {
	b.mu.Lock()
	remaining := make(map[batchKey]*batchState, len(b.batches))
	for key, state := range b.batches {
		if state.timer != nil {
			state.timer.Stop()
		}
		state.timerGen++
		remaining[key] = state
		delete(b.batches, key)
		batchesActiveGauge.Dec()
	}
	b.mu.Unlock()

	for key, state := range remaining {
		b.deliver(ctx, key, state)
	}
}

func (b *Batcher) addToBatchLocked(key batchKey, listName string, event PendingEvent) {
	state, ok := b.batches[key]
	if !ok {
		state = &batchState{
			listName:  listName,
			events:    []PendingEvent{event},
			startedAt: event.Timestamp,
		}
		b.batches[key] = state
		b.scheduleLocked(key, state, b.cfg.InitialDelay)
		batchesActiveGauge.Inc()
		b.log.Debug("started notification batch",
			"recipient_id", key.userID, "list_id", key.listID, "delay", b.cfg.InitialDelay)
		return
	}

	state.events = append(state.events, event)

	if len(state.events) >= b.cfg.MaxEvents {
		// Burst force-flush: cancel the timer and pop before any I/O so a
		// late event starts a fresh batch instead of joining this one.
		if state.timer != nil {
			state.timer.Stop()
		}
		state.timerGen++
		delete(b.batches, key)
		batchesActiveGauge.Dec()
		b.log.Debug("batch hit max events, forcing flush",
			"recipient_id", key.userID, "list_id", key.listID, "events", len(state.events))
		go b.deliverDetached(key, state)
		return
	}

	elapsed := time.Since(state.startedAt)
	budget := b.cfg.MaxDelay - elapsed
	if budget <= 0 {
		// Delay budget exhausted: the already-scheduled timer stands.
		return
	}
	extension := b.cfg.ExtendDelay
	if extension > budget {
		extension = budget
	}
	b.scheduleLocked(key, state, extension)
	b.log.Debug("extended notification batch",
		"recipient_id", key.userID, "list_id", key.listID, "extension", extension)
}

// scheduleLocked replaces the key's timer, keeping at most one live timer
// per batch. Callers must hold b.mu.
func (b *Batcher) scheduleLocked(key batchKey, state *batchState, delay time.Duration) {
	if state.timer != nil {
		state.timer.Stop()
	}
	state.timerGen++
	gen := state.timerGen
	state.timer = time.AfterFunc(delay, func() {
		b.flush(key, gen)
	})
}

// flush pops the batch and delivers it, unless the timer that fired was
// superseded while it was waiting on the lock.
func (b *Batcher) flush(key batchKey, gen uint64) {
	b.mu.Lock()
	state, ok := b.batches[key]
	if !ok || state.timerGen != gen {
		b.mu.Unlock()
		return
	}
	delete(b.batches, key)
	batchesActiveGauge.Dec()
	b.mu.Unlock()

	b.deliverDetached(key, state)
}

// deliverDetached runs delivery outside the request path: every failure is
// logged and swallowed, and a panic must never take down the process.
func (b *Batcher) deliverDetached(key batchKey, state *batchState) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic delivering notification batch",
				"recipient_id", key.userID, "list_id", key.listID,
				"panic", r, "stack", string(debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	b.deliver(ctx, key, state)
}

func (b *Batcher) deliver(ctx context.Context, key batchKey, state *batchState) {
	if state == nil || len(state.events) == 0 {
		recordBatchFlush(flushOutcomeEmpty)
		return
	}

	b.log.Info("flushing notification batch",
		"recipient_id", key.userID, "list_id", key.listID, "events", len(state.events))

	title, body := FormatSummary(state.listName, state.events)

	prefs, err := b.prefs.Get(ctx, key.userID)
	if err != nil {
		recordBatchFlush(flushOutcomeError)
		b.log.Error("preference lookup failed, skipping notification",
			"recipient_id", key.userID, "list_id", key.listID, "error", err)
		return
	}
	if prefs.ListUpdates == ListUpdatesOff {
		recordBatchFlush(flushOutcomeSuppressedOff)
		b.log.Debug("list updates disabled, skipping notification",
			"recipient_id", key.userID, "list_id", key.listID)
		return
	}
	if prefs.InQuietHours(time.Now()) {
		recordBatchFlush(flushOutcomeSuppressedQuiet)
		b.log.Debug("recipient in quiet hours, skipping notification",
			"recipient_id", key.userID, "list_id", key.listID)
		return
	}

	err = b.gateway.Deliver(ctx, Notification{
		RecipientID: key.userID,
		Title:       title,
		Body:        body,
		Data:        map[string]string{"list_id": key.listID},
		Tag:         "list-" + key.listID,
	})
	if err != nil {
		// A failed push is lost on purpose: SSE is the authoritative
		// real-time channel, push is best effort.
		recordBatchFlush(flushOutcomeError)
		b.log.Error("notification delivery failed",
			"recipient_id", key.userID, "list_id", key.listID, "error", err)
		return
	}
	recordBatchFlush(flushOutcomeDelivered)
}
