// Package eventbus implements the best-effort, non-blocking event fan-out
// described in spec.md §6 (External Interfaces — Event stream) and §9
// (Design Notes — Event bus): subscriber channels with a bounded buffer,
// drop-and-count on overflow, never a blocked producer.
package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// Bus is a non-blocking fan-out publisher. The zero value is not usable;
// construct with New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	dropped     int64
}

type subscriber struct {
	ch      chan core.Event
	dropped *int64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string]*subscriber)}
}

// Subscribe registers a new subscriber with the given buffer size and
// returns a receive-only channel plus an unsubscribe function. Buffer
// overflow drops the event and increments Dropped(); it never blocks
// Publish.
func (b *Bus) Subscribe(name string, buffer int) (<-chan core.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &subscriber{ch: make(chan core.Event, buffer), dropped: &b.dropped}
	b.mu.Lock()
	b.subscribers[name] = sub
	b.mu.Unlock()
	return sub.ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subscribers[name]; ok && existing == sub {
			delete(b.subscribers, name)
			close(sub.ch)
		}
	}
}

// Publish fans an event out to every subscriber without blocking. A
// subscriber whose buffer is full has the event dropped for it; Publish
// itself never blocks the producer (the Step Scheduler's loop).
func (b *Bus) Publish(evt core.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		select {
		case sub.ch <- evt:
		default:
			atomic.AddInt64(sub.dropped, 1)
		}
	}
}

// Dropped returns the cumulative number of events dropped across all
// subscribers due to a full buffer.
func (b *Bus) Dropped() int64 {
	return atomic.LoadInt64(&b.dropped)
}

// SubscriberCount reports the number of currently registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
