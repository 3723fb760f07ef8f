package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"switchboard/internal/domain"
)

// wildcard is the internal key for subscribers that receive every event.
const wildcard domain.EventType = "*"

type entry struct {
	id      uint64
	handler domain.EventHandler
}

// Bus is an in-process event bus. Handlers run in their own goroutines and
// are recovered on panic, so a misbehaving observer cannot take down the
// publishing turn.
type Bus struct {
	mu     sync.Mutex
	subs   map[domain.EventType][]entry
	nextID uint64
	closed bool

	inflight sync.WaitGroup
	logger   *slog.Logger
}

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[domain.EventType][]entry),
		logger: logger,
	}
}

// Publish fans the event out to typed and wildcard subscribers. Publish
// never blocks on handlers and is a no-op after Close.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	targets := make([]entry, 0, len(b.subs[event.Type])+len(b.subs[wildcard]))
	targets = append(targets, b.subs[event.Type]...)
	targets = append(targets, b.subs[wildcard]...)
	b.inflight.Add(len(targets))
	b.mu.Unlock()

	for _, t := range targets {
		go func(e entry) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked",
						"event", string(event.Type), "panic", r)
				}
			}()
			e.handler(ctx, event)
		}(t)
	}
}

// Subscribe registers a handler for one event type and returns its
// unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	return b.add(eventType, handler)
}

// SubscribeAll registers a handler for every event and returns its
// unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	return b.add(wildcard, handler)
}

func (b *Bus) add(key domain.EventType, handler domain.EventHandler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[key] = append(b.subs[key], entry{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.subs[key]
		for i, e := range entries {
			if e.id == id {
				b.subs[key] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Close stops new publishes and waits for in-flight handlers to finish.
// Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.inflight.Wait()
}

var _ domain.EventBus = (*Bus)(nil)
