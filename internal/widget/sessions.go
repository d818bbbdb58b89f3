package widget

import (
	"sync"
	"time"
)

type session struct {
	widget   *Widget
	lastSeen time.Time
}

// Sessions keeps one widget per browser session in memory. Sessions idle
// for longer than ttl are dropped.
type Sessions struct {
	ttl     time.Duration
	factory func() *Widget
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*session
}

func NewSessions(ttl time.Duration, factory func() *Widget) *Sessions {
	return &Sessions{
		ttl:     ttl,
		factory: factory,
		now:     time.Now,
		entries: make(map[string]*session),
	}
}

// Get returns the widget for id, creating it when the session is new or
// expired. created is true for a fresh widget.
func (s *Sessions) Get(id string) (w *Widget, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	if e, ok := s.entries[id]; ok {
		e.lastSeen = now
		return e.widget, false
	}

	e := &session{widget: s.factory(), lastSeen: now}
	s.entries[id] = e
	return e.widget, true
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Sessions) evictLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, id)
		}
	}
}
