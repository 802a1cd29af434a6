package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T, debounce time.Duration) *Hub {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHub(client, debounce)
}

func collect(ch <-chan Event, wait time.Duration) []Event {
	var out []Event
	deadline := time.After(wait)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			return out
		}
	}
}

func TestBurstCoalescesPerTable(t *testing.T) {
	hub := newTestHub(t, 100*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userID := uuid.New()
	events := hub.Subscribe(ctx, userID, nil)
	// Give the subscriber time to attach before publishing.
	time.Sleep(50 * time.Millisecond)

	deliveryID := uuid.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, hub.PublishDelivery(ctx, deliveryID))
	}
	require.NoError(t, hub.PublishTimeline(ctx, deliveryID))

	got := collect(events, 400*time.Millisecond)
	byTable := map[string]int{}
	for _, ev := range got {
		byTable[ev.Table]++
	}
	assert.Equal(t, 1, byTable[TableDeliveries], "burst should collapse to one cue")
	assert.Equal(t, 1, byTable[TableTimeline])
}

func TestTableFilter(t *testing.T) {
	hub := newTestHub(t, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := hub.Subscribe(ctx, uuid.New(), map[string]bool{TableMessages: true})
	time.Sleep(50 * time.Millisecond)

	deliveryID := uuid.New()
	require.NoError(t, hub.PublishDelivery(ctx, deliveryID))
	require.NoError(t, hub.PublishMessages(ctx, deliveryID))

	got := collect(events, 300*time.Millisecond)
	require.Len(t, got, 1)
	assert.Equal(t, TableMessages, got[0].Table)
}

func TestNotificationCuesAreScopedToUser(t *testing.T) {
	hub := newTestHub(t, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	me := uuid.New()
	other := uuid.New()
	events := hub.Subscribe(ctx, me, map[string]bool{TableNotifications: true})
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, hub.PublishNotifications(ctx, other))
	got := collect(events, 200*time.Millisecond)
	assert.Empty(t, got)

	require.NoError(t, hub.PublishNotifications(ctx, me))
	got = collect(events, 300*time.Millisecond)
	require.Len(t, got, 1)
	assert.Equal(t, TableNotifications, got[0].Table)
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	hub := newTestHub(t, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	events := hub.Subscribe(ctx, uuid.New(), nil)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should close after cancellation")
	case <-time.After(time.Second):
		t.Fatal("subscription did not close")
	}
}
