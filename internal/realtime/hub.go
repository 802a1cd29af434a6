// Package realtime fans change events out to connected clients. Events are
// cues, not deltas: a client receiving one is expected to re-fetch the
// affected collection. Bursty changes are coalesced per table inside a
// debounce window so reloads stay bounded.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel carrying change events.
const Channel = "nfship:changes"

// Tables that emit change events.
const (
	TableDeliveries    = "deliveries"
	TableTimeline      = "delivery_timeline"
	TableMessages      = "delivery_messages"
	TableNotifications = "notifications"
)

// Event marks a change in one of the watched collections.
type Event struct {
	Table      string     `json:"table"`
	DeliveryID *uuid.UUID `json:"delivery_id,omitempty"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
}

// Hub publishes and subscribes change events over Redis.
type Hub struct {
	client   *redis.Client
	debounce time.Duration
}

// NewHub constructs a Hub. debounce bounds how often a subscriber is cued
// for the same table.
func NewHub(client *redis.Client, debounce time.Duration) *Hub {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Hub{client: client, debounce: debounce}
}

// Publish emits one change event. Callers treat failures as non-fatal: a
// missed cue only delays the next client refresh.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("realtime: marshal event: %w", err)
	}
	if err := h.client.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("realtime: publish: %w", err)
	}
	return nil
}

// PublishDelivery cues listeners of a delivery row change.
func (h *Hub) PublishDelivery(ctx context.Context, deliveryID uuid.UUID) error {
	return h.Publish(ctx, Event{Table: TableDeliveries, DeliveryID: &deliveryID})
}

// PublishTimeline cues listeners of a timeline append.
func (h *Hub) PublishTimeline(ctx context.Context, deliveryID uuid.UUID) error {
	return h.Publish(ctx, Event{Table: TableTimeline, DeliveryID: &deliveryID})
}

// PublishMessages cues listeners of a new chat message.
func (h *Hub) PublishMessages(ctx context.Context, deliveryID uuid.UUID) error {
	return h.Publish(ctx, Event{Table: TableMessages, DeliveryID: &deliveryID})
}

// PublishNotifications cues a single user's notification listeners.
func (h *Hub) PublishNotifications(ctx context.Context, userID uuid.UUID) error {
	return h.Publish(ctx, Event{Table: TableNotifications, UserID: &userID})
}

// Subscribe returns a debounced stream of cues for the requested tables.
// Events for other users' notifications are filtered out by userID. The
// returned channel closes when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, userID uuid.UUID, tables map[string]bool) <-chan Event {
	out := make(chan Event, 16)
	sub := h.client.Subscribe(ctx, Channel)

	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		pending := make(map[string]Event)
		var timer *time.Timer
		var fire <-chan time.Time

		flush := func() {
			for _, ev := range pending {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
			pending = make(map[string]Event)
			fire = nil
		}

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-fire:
				flush()
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				if len(tables) > 0 && !tables[ev.Table] {
					continue
				}
				if ev.Table == TableNotifications && ev.UserID != nil && *ev.UserID != userID {
					continue
				}
				pending[ev.Table] = Event{Table: ev.Table}
				if fire == nil {
					if timer == nil {
						timer = time.NewTimer(h.debounce)
					} else {
						timer.Reset(h.debounce)
					}
					fire = timer.C
				}
			}
		}
	}()

	return out
}
