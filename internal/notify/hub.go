// Package notify fans persisted notifications out to live subscribers.
package notify

import (
	"sync"

	"github.com/google/uuid"

	"parish-portal/internal/model"
)

// DefaultBuffer is the per-subscription queue length.
const DefaultBuffer = 16

// Hub keeps the live subscriptions of each user. Publishing never blocks:
// a subscriber whose queue is full misses the message and can catch up
// from the inbox.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[*Subscription]struct{}
	buffer      int
}

// Subscription is one live listener, typically a websocket connection.
type Subscription struct {
	UserID uuid.UUID
	ch     chan *model.Notification
	hub    *Hub
	once   sync.Once
}

// C returns the delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan *model.Notification {
	return s.ch
}

// Close detaches the subscription from the hub. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// NewHub creates a hub whose subscriptions queue up to buffer messages.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subscribers: make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a listener for userID.
func (h *Hub) Subscribe(userID uuid.UUID) *Subscription {
	sub := &Subscription{
		UserID: userID,
		ch:     make(chan *model.Notification, h.buffer),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[*Subscription]struct{})
	}
	h.subscribers[userID][sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[sub.UserID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, sub.UserID)
	}
	close(sub.ch)
}

// Publish delivers n to every subscription of its recipient and returns
// how many accepted it.
func (h *Hub) Publish(n *model.Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subscribers[n.RecipientID] {
		select {
		case sub.ch <- n:
			delivered++
		default:
			// Queue full, skip (don't block)
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions of userID.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
