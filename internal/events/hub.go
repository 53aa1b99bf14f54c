// Package events implements room-based asynchronous result delivery. A room
// identifies a session (optionally scoped to a sub-context such as a single
// essential); jobs publish named events into rooms and the publisher retries
// until a subscriber is present or the attempt budget runs out. Delivery is
// best-effort, at-least-checked: an event is handed to a connected room
// exactly once per publish, and dropped with a warning otherwise.
package events

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"supplement-scout/internal/common/logging"
)

// Event is a named payload addressed to a room
type Event struct {
	Name string      `json:"event"`
	Room string      `json:"room"`
	Data interface{} `json:"data"`
}

// Event names delivered to subscriber rooms
const (
	EventLookupUpdate           = "lookup_update"
	EventLookupUpdateError      = "lookup_update_error"
	EventEssentials             = "essentials"
	EventEssentialsError        = "essentials_error"
	EventRecommendations        = "recommend_similar_products"
	EventRecommendationsError   = "recommend_similar_products_error"
	EventNutritionFacts         = "nutrition_facts"
	EventNutritionFactsError    = "nutrition_facts_error"
	EventEssentialProducts      = "essential_products"
	EventEssentialProductsError = "essential_products_error"
)

// RoomID derives the subscription channel for a session, optionally scoped
// to a sub-context. The derivation is deterministic so a publisher and a
// late-joining subscriber agree on the name without coordination.
func RoomID(userID string, context ...string) string {
	if len(context) == 0 {
		return userID
	}
	return userID + "-" + strings.Join(context, "-")
}

// EssentialRoomID scopes a session room to a single essential's product feed
func EssentialRoomID(userID, essentialName string) string {
	return RoomID(userID, "e_"+essentialName)
}

// Subscription is one subscriber's handle on a room. Events arrive on C;
// Close leaves the room.
type Subscription struct {
	ID   string
	Room string
	C    <-chan Event

	ch  chan Event
	hub *Hub
}

// Close leaves the room and releases the subscription
func (s *Subscription) Close() {
	s.hub.leave(s)
}

// Hub is the in-process room registry. All methods are safe for concurrent
// use.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Subscription
	logger logging.Logger
}

// subscriptionBuffer bounds per-subscriber queues; a subscriber that stops
// draining loses events rather than blocking publishers
const subscriptionBuffer = 16

// NewHub creates an empty hub
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Hub{
		rooms:  make(map[string]map[string]*Subscription),
		logger: logger.WithFields(logging.Field{Key: "component", Value: "events"}),
	}
}

// Join adds a subscriber to a room and returns its subscription
func (h *Hub) Join(room string) *Subscription {
	sub := &Subscription{
		ID:   uuid.NewString(),
		Room: room,
		ch:   make(chan Event, subscriptionBuffer),
		hub:  h,
	}
	sub.C = sub.ch

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Subscription)
	}
	h.rooms[room][sub.ID] = sub

	h.logger.Debug("subscriber joined room",
		logging.Field{Key: "room", Value: room},
		logging.Field{Key: "subscriber", Value: sub.ID},
	)
	return sub
}

func (h *Hub) leave(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[sub.Room]
	if !ok {
		return
	}
	if _, ok := subs[sub.ID]; !ok {
		return
	}
	delete(subs, sub.ID)
	if len(subs) == 0 {
		delete(h.rooms, sub.Room)
	}
	close(sub.ch)
}

// HasSubscribers reports whether the room currently has at least one
// connected subscriber
func (h *Hub) HasSubscribers(room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room]) > 0
}

// Emit fans an event out to every subscriber in the room and returns the
// delivery count. Sends never block; a full subscriber buffer drops that
// subscriber's copy with a warning. The read lock is held across the sends
// so a concurrent leave cannot close a channel mid-fan-out.
func (h *Hub) Emit(room string, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, s := range h.rooms[room] {
		select {
		case s.ch <- event:
			delivered++
		default:
			h.logger.Warn("subscriber buffer full, dropping event",
				logging.Field{Key: "room", Value: room},
				logging.Field{Key: "event", Value: event.Name},
				logging.Field{Key: "subscriber", Value: s.ID},
			)
		}
	}
	return delivered
}
