// Package stream fans high-risk drain alerts out to live subscribers.
package stream

import (
	"sync"
	"sync/atomic"

	"github.com/novarobotics/stormdrain/internal/models"
)

// SubscriberBuffer is sized to hold one full sync's worth of alerts.
const SubscriberBuffer = 200

type Broadcaster struct {
	subscribers map[uint64]chan *models.Alert
	nextID      atomic.Uint64
	mu          sync.RWMutex
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan *models.Alert),
	}
}

// Subscribe registers a new listener. After Close it returns an already
// closed channel.
func (b *Broadcaster) Subscribe() (uint64, <-chan *models.Alert) {
	id := b.nextID.Add(1)
	ch := make(chan *models.Alert, SubscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = ch

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Broadcast never blocks; alerts to a subscriber with a full buffer are dropped.
// It returns how many subscribers received the alert.
func (b *Broadcaster) Broadcast(a *models.Alert) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, ch := range b.subscribers {
		select {
		case ch <- a:
			delivered++
		default:
		}
	}
	return delivered
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
