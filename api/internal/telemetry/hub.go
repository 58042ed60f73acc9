package telemetry

import (
	"sync"

	"github.com/irgordon/ak/api/internal/core/domain"
)

// AllProfiles subscribes to events from every profile.
const AllProfiles = "*"

// Hub fans vault change events out to connected web clients.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]chan domain.Event // profile (or AllProfiles) -> client channels
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]chan domain.Event),
	}
}

// Subscribe registers a client for one profile, or for all of them with AllProfiles.
func (h *Hub) Subscribe(profile string) chan domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.Event, 100) // Buffer so a slow client never blocks a request
	h.subscribers[profile] = append(h.subscribers[profile], ch)
	return ch
}

// Unsubscribe removes and closes a client channel.
func (h *Hub) Unsubscribe(profile string, ch chan domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[profile]
	for i, sub := range subs {
		if sub == ch {
			h.subscribers[profile] = append(subs[:i], subs[i+1:]...)
			if len(h.subscribers[profile]) == 0 {
				delete(h.subscribers, profile)
			}
			close(ch)
			break
		}
	}
}

// Publish delivers ev to the profile's subscribers and to AllProfiles.
func (h *Hub) Publish(ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, topic := range []string{ev.Profile, AllProfiles} {
		for _, ch := range h.subscribers[topic] {
			select {
			case ch <- ev:
			default: // Drop if the buffer is full rather than stall the writer
			}
		}
	}
}

// Subscribers reports the number of open client channels.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, subs := range h.subscribers {
		n += len(subs)
	}
	return n
}
