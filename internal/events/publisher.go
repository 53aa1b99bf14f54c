package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"supplement-scout/internal/common/errors"
	"supplement-scout/internal/common/logging"
)

// Rooms is the liveness and delivery surface the publisher needs. The Hub
// implements it; tests substitute counting fakes.
type Rooms interface {
	HasSubscribers(room string) bool
	Emit(room string, event Event) int
}

// Publisher delivers events to rooms, retrying while the subscriber has not
// joined yet. Retries are timer-based: scheduling one never blocks the
// calling worker, so many pending deliveries can coexist.
type Publisher struct {
	rooms       Rooms
	maxAttempts int
	delay       time.Duration
	logger      logging.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// NewPublisher creates a publisher with the given retry budget. maxAttempts
// defaults to 5 when non-positive; delay defaults to one second when
// negative, and zero means immediate re-checks.
func NewPublisher(rooms Rooms, maxAttempts int, delay time.Duration, logger logging.Logger) *Publisher {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if delay < 0 {
		delay = time.Second
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Publisher{
		rooms:       rooms,
		maxAttempts: maxAttempts,
		delay:       delay,
		logger:      logger.WithFields(logging.Field{Key: "component", Value: "publisher"}),
		pending:     make(map[string]*time.Timer),
	}
}

// Publish delivers the named event to the room, retrying with the
// publisher's default budget. Returns immediately.
func (p *Publisher) Publish(event string, payload interface{}, room string) {
	p.PublishWithRetry(event, payload, room, p.maxAttempts, p.delay)
}

// PublishWithRetry delivers the named event to the room. If the room has a
// connected subscriber the event is delivered immediately, exactly once.
// Otherwise a liveness re-check is scheduled every delay until either a
// subscriber appears or maxAttempts checks have happened, after which the
// event is dropped with a warning.
func (p *Publisher) PublishWithRetry(event string, payload interface{}, room string, maxAttempts int, delay time.Duration) {
	if maxAttempts <= 0 {
		maxAttempts = p.maxAttempts
	}

	ev := Event{Name: event, Room: room, Data: payload}

	var attempt func(count int)
	attempt = func(count int) {
		if p.rooms.HasSubscribers(room) {
			delivered := p.rooms.Emit(room, ev)
			p.logger.Info("event delivered",
				logging.Field{Key: "event", Value: event},
				logging.Field{Key: "room", Value: room},
				logging.Field{Key: "attempt", Value: count},
				logging.Field{Key: "subscribers", Value: delivered},
			)
			return
		}

		if count >= maxAttempts {
			p.logger.Error("dropping event",
				errors.DeliveryExhaustedError(event, room, count),
				logging.Field{Key: "event", Value: event},
				logging.Field{Key: "room", Value: room},
			)
			return
		}

		p.logger.Debug("room has no subscribers yet, retrying",
			logging.Field{Key: "event", Value: event},
			logging.Field{Key: "room", Value: room},
			logging.Field{Key: "attempt", Value: count},
			logging.Field{Key: "delay", Value: delay},
		)
		p.schedule(delay, func() { attempt(count + 1) })
	}

	attempt(1)
}

func (p *Publisher) schedule(delay time.Duration, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	var timer *time.Timer
	key := uuid.NewString()
	timer = time.AfterFunc(delay, func() {
		p.mu.Lock()
		delete(p.pending, key)
		p.mu.Unlock()
		fn()
	})
	p.pending[key] = timer
}

// Close cancels all pending retries. In-flight deliveries complete; nothing
// new is scheduled.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for key, timer := range p.pending {
		timer.Stop()
		delete(p.pending, key)
	}
}
