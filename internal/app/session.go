package app

import (
	"sync"

	"globalquiz-service/internal/domain"
)

// EventType enumerates hub notifications delivered to subscribers.
type EventType string

const (
	EventRoster      EventType = "roster"
	EventActivated   EventType = "session_active"
	EventLeaderboard EventType = "leaderboard"
	EventCompleted   EventType = "completed"
)

// SessionEvent carries one hub notification. Exactly one of the pointer
// fields is set, depending on Type.
type SessionEvent struct {
	Type        EventType
	Session     *domain.Session
	Participant *domain.Participant
	Leaderboard *domain.Leaderboard
}

// sessionHub fans session events out to the subscribers of one session.
// The activated flag guarantees the waiting-to-active flip is delivered at
// most once per session.
type sessionHub struct {
	id string

	mu          sync.Mutex
	activated   bool
	subscribers map[chan SessionEvent]struct{}
}

func newSessionHub(id string) *sessionHub {
	return &sessionHub{
		id:          id,
		subscribers: make(map[chan SessionEvent]struct{}),
	}
}

func (h *sessionHub) subscribe(initial SessionEvent) (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	ch <- initial

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// activate flips the hub to active at most once.
func (h *sessionHub) activate() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.activated {
		return false
	}
	h.activated = true
	return true
}

func (h *sessionHub) broadcast(event SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest queued event so a slow consumer cannot block the hub.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
