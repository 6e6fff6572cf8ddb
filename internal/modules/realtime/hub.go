// Package realtime pushes booking row changes to websocket subscribers.
package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"staycation/internal/domain"
	"staycation/internal/metrics"
)

const subscriberBuffer = 32

// Filter narrows a subscription to one room and/or one date. Zero values
// match everything.
type Filter struct {
	RoomID int64
	Date   string
}

func (f Filter) Match(c domain.BookingChange) bool {
	if f.RoomID != 0 && f.RoomID != c.RoomID {
		return false
	}
	return f.Date == "" || f.Date == c.Date
}

type Subscription struct {
	filter Filter
	send   chan domain.BookingChange
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription) Changes() <-chan domain.BookingChange { return s.send }

// Done is closed once the hub drops the subscription.
func (s *Subscription) Done() <-chan struct{} { return s.done }

type Hub struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewHub(m *metrics.Metrics, log zerolog.Logger) *Hub {
	return &Hub{
		subs:    make(map[*Subscription]struct{}),
		metrics: m,
		log:     log.With().Str("module", "realtime").Logger(),
	}
}

func (h *Hub) Subscribe(f Filter) *Subscription {
	s := &Subscription{
		filter: f,
		send:   make(chan domain.BookingChange, subscriberBuffer),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	h.metrics.SubscriberDelta(1)
	return s
}

func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	h.mu.Unlock()

	if ok {
		h.metrics.SubscriberDelta(-1)
	}
	s.once.Do(func() { close(s.done) })
}

// Publish never blocks. A subscriber whose buffer is full is dropped; its
// client reconnects and re-fetches.
func (h *Hub) Publish(c domain.BookingChange) {
	var slow []*Subscription

	h.mu.RLock()
	for s := range h.subs {
		if !s.filter.Match(c) {
			continue
		}
		select {
		case s.send <- c:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.log.Warn().Int64("room_id", s.filter.RoomID).Str("date", s.filter.Date).Msg("dropping slow subscriber")
		h.Unsubscribe(s)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Close() {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		h.Unsubscribe(s)
	}
}
