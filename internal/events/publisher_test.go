package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRooms counts liveness checks and deliveries, with a switchable
// subscriber state
type fakeRooms struct {
	mu     sync.Mutex
	live   bool
	checks int
	events []Event
}

func (f *fakeRooms) HasSubscribers(room string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.live
}

func (f *fakeRooms) Emit(room string, event Event) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return 1
}

func (f *fakeRooms) setLive(live bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = live
}

func (f *fakeRooms) snapshot() (int, []Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks, append([]Event(nil), f.events...)
}

func TestPublisher_PublishWithRetry(t *testing.T) {
	t.Run("delivers immediately to a live room", func(t *testing.T) {
		rooms := &fakeRooms{live: true}
		p := NewPublisher(rooms, 5, time.Millisecond, nil)
		defer p.Close()

		p.PublishWithRetry("lookup_update", map[string]string{"k": "v"}, "room-1", 5, time.Millisecond)

		checks, delivered := rooms.snapshot()
		assert.Equal(t, 1, checks)
		require.Len(t, delivered, 1)
		assert.Equal(t, "lookup_update", delivered[0].Name)
		assert.Equal(t, "room-1", delivered[0].Room)
	})

	t.Run("drops after exactly maxAttempts liveness checks", func(t *testing.T) {
		rooms := &fakeRooms{live: false}
		p := NewPublisher(rooms, 5, time.Millisecond, nil)
		defer p.Close()

		p.PublishWithRetry("essentials", nil, "room-2", 3, time.Millisecond)

		require.Eventually(t, func() bool {
			checks, _ := rooms.snapshot()
			return checks == 3
		}, time.Second, time.Millisecond)

		// No further attempts after exhaustion
		time.Sleep(20 * time.Millisecond)
		checks, delivered := rooms.snapshot()
		assert.Equal(t, 3, checks)
		assert.Empty(t, delivered)
	})

	t.Run("late joiner gets the event exactly once", func(t *testing.T) {
		rooms := &fakeRooms{live: false}
		p := NewPublisher(rooms, 10, time.Millisecond, nil)
		defer p.Close()

		p.PublishWithRetry("nutrition_facts", "data", "room-3", 10, time.Millisecond)

		require.Eventually(t, func() bool {
			checks, _ := rooms.snapshot()
			return checks >= 2
		}, time.Second, time.Millisecond)
		rooms.setLive(true)

		require.Eventually(t, func() bool {
			_, delivered := rooms.snapshot()
			return len(delivered) == 1
		}, time.Second, time.Millisecond)

		time.Sleep(20 * time.Millisecond)
		_, delivered := rooms.snapshot()
		assert.Len(t, delivered, 1)
	})

	t.Run("close cancels pending retries", func(t *testing.T) {
		rooms := &fakeRooms{live: false}
		p := NewPublisher(rooms, 5, time.Hour, nil)

		p.PublishWithRetry("essentials", nil, "room-4", 5, time.Hour)
		p.Close()

		checks, delivered := rooms.snapshot()
		assert.Equal(t, 1, checks)
		assert.Empty(t, delivered)
	})

	t.Run("non-positive attempt budget uses the default", func(t *testing.T) {
		rooms := &fakeRooms{live: false}
		p := NewPublisher(rooms, 2, time.Millisecond, nil)
		defer p.Close()

		p.PublishWithRetry("essentials", nil, "room-5", 0, time.Millisecond)

		require.Eventually(t, func() bool {
			checks, _ := rooms.snapshot()
			return checks == 2
		}, time.Second, time.Millisecond)
	})

	t.Run("zero delay is kept, negative delay falls back", func(t *testing.T) {
		rooms := &fakeRooms{live: true}

		p := NewPublisher(rooms, 5, 0, nil)
		defer p.Close()
		assert.Equal(t, time.Duration(0), p.delay)

		q := NewPublisher(rooms, 5, -time.Second, nil)
		defer q.Close()
		assert.Equal(t, time.Second, q.delay)
	})
}

func TestPublisher_WithHub(t *testing.T) {
	hub := NewHub(nil)
	p := NewPublisher(hub, 5, time.Millisecond, nil)
	defer p.Close()

	// Event published before the subscriber joins still arrives
	p.Publish("lookup_update", "payload", "session-9")

	sub := hub.Join("session-9")
	defer sub.Close()

	select {
	case ev := <-sub.C:
		assert.Equal(t, "lookup_update", ev.Name)
		assert.Equal(t, "payload", ev.Data)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered to the late subscriber")
	}
}
