// Package push fans badge and warning messages out to connected extension
// background scripts. The HTTP bridge streams them over SSE.
package push

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/bryanwahyu/urlsentry/internal/application/coordinator"
	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
)

// ErrNoSubscriber is returned when nobody is listening for a tab's messages.
var ErrNoSubscriber = errors.New("no subscriber connected")

// Event types
const (
	EventBadge   = "SET_BADGE"
	EventWarning = string(coordinator.ShowWarning)
)

// Event is one pushed message.
type Event struct {
	Type  string         `json:"type"`
	TabID analysis.TabID `json:"tabId"`
	Data  any            `json:"data"`
}

const subscriberBuffer = 32

// Hub is a broadcast registry. Slow subscribers lose events instead of
// blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan Event)}
}

// Subscribe registers a listener. The returned func unsubscribes and closes
// the channel.
func (h *Hub) Subscribe() (string, <-chan Event, func()) {
	id := uuid.New().String()
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return id, ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers is the number of connected listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers ev to every subscriber and reports how many got it.
func (h *Hub) Publish(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, ch := range h.subs {
		select {
		case ch <- ev:
			n++
		default:
		}
	}
	return n
}

func (h *Hub) SetBadge(_ context.Context, tab analysis.TabID, b analysis.Badge) error {
	h.Publish(Event{Type: EventBadge, TabID: tab, Data: b})
	return nil
}

// SendWarning fails when no subscriber received the warning.
func (h *Hub) SendWarning(_ context.Context, tab analysis.TabID, r *analysis.Result) error {
	if h.Publish(Event{Type: EventWarning, TabID: tab, Data: r}) == 0 {
		return ErrNoSubscriber
	}
	return nil
}
