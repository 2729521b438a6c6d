package events

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryPublisher keeps published events and fans them out to subscribers.
type InMemoryPublisher struct {
	mu       sync.Mutex
	events   []Event
	handlers []func(Event)
	closed   bool
}

// NewInMemoryPublisher creates a new InMemoryPublisher instance.
func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

// Publish records the event and calls every subscriber synchronously.
func (p *InMemoryPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("publisher is closed")
	}
	p.events = append(p.events, event)
	handlers := make([]func(Event), len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Subscribe registers a handler for subsequent events.
func (p *InMemoryPublisher) Subscribe(handler func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler)
}

// Events returns a copy of everything published so far.
func (p *InMemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// OfType returns published events of the given type.
func (p *InMemoryPublisher) OfType(eventType string) []Event {
	var out []Event
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Close stops accepting events.
func (p *InMemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
