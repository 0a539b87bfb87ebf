// Package realtime fans table change notifications out to in-process
// subscribers. Notifications only say that a table changed; subscribers are
// expected to re-read whatever they display.
package realtime

import (
	"log/slog"
	"sync"
	"time"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

type Change struct {
	Table string    `json:"table"`
	Type  EventType `json:"type"`
	At    time.Time `json:"at"`
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	log    *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{subs: make(map[uint64]*Subscription), log: log}
}

// Subscription receives changes on C until Close. C holds at most one
// pending change: a burst of writes collapses into a single refresh.
type Subscription struct {
	C <-chan Change

	ch    chan Change
	id    uint64
	table string
	types map[EventType]bool
	hub   *Hub
	once  sync.Once
}

// Subscribe listens to one table. With no types every event type matches.
func (h *Hub) Subscribe(table string, types ...EventType) *Subscription {
	ch := make(chan Change, 1)
	s := &Subscription{C: ch, ch: ch, table: table, hub: h}
	if len(types) > 0 {
		s.types = make(map[EventType]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}

	h.mu.Lock()
	h.nextID++
	s.id = h.nextID
	h.subs[s.id] = s
	n := len(h.subs)
	h.mu.Unlock()

	h.log.Debug("realtime.subscribe", "table", table, "id", s.id, "subscribers", n)
	return s
}

// Close releases the subscription and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		close(s.ch)
		s.hub.mu.Unlock()
		s.hub.log.Debug("realtime.unsubscribe", "table", s.table, "id", s.id)
	})
}

func (s *Subscription) matches(c Change) bool {
	if c.Table != s.table {
		return false
	}
	return s.types == nil || s.types[c.Type]
}

// Publish never blocks. A subscriber that already has a change pending
// keeps that one.
func (h *Hub) Publish(c Change) {
	if c.At.IsZero() {
		c.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if !s.matches(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
