// Package live pushes catalog activity to connected clients over
// Server-Sent Events. The feed is best-effort: a slow subscriber drops
// events rather than stalling publishers.
package live

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event is one feed entry: a named event plus a JSON payload.
type Event struct {
	Name string
	Data any
}

// Marshal renders the payload for the SSE data field.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e.Data)
}

const subscriberBuffer = 32

// Broadcaster fans events out to every subscriber.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]chan Event)}
}

// Subscribe registers a subscriber and returns its id and event channel.
// The caller must Unsubscribe when done.
func (b *Broadcaster) Subscribe() (string, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)
	b.subscribers[id] = ch
	log.Debug().Str("subscriber", id).Msg("feed subscriber connected")
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
		log.Debug().Str("subscriber", id).Msg("feed subscriber disconnected")
	}
}

// Publish delivers the event to every subscriber without blocking. A
// subscriber whose buffer is full misses the event.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			log.Warn().Str("subscriber", id).Str("event", event.Name).Msg("feed subscriber too slow, event dropped")
		}
	}
}

// SubscriberCount reports how many clients are connected.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
