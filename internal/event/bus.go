package event

import (
	"log/slog"
	"sync"
)

type HandlerFunc func(raw any)

// Bus fans events out to subscribers. Each handler runs on its own goroutine
// so a slow subscriber never stalls the tick loop.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]HandlerFunc
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string]map[uint64]HandlerFunc),
	}
}

// Subscribe registers handler and returns a function that removes it.
func (b *Bus) Subscribe(eventName string, handler HandlerFunc) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.handlers[eventName] == nil {
		b.handlers[eventName] = make(map[uint64]HandlerFunc)
	}
	b.handlers[eventName][id] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[eventName], id)
	}
}

func (b *Bus) Publish(eventName string, evt any) {
	b.mu.RLock()
	handlers := make([]HandlerFunc, 0, len(b.handlers[eventName]))
	for _, h := range b.handlers[eventName] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h HandlerFunc) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Event handler panicked", "event", eventName, "panic", r)
				}
			}()
			h(evt)
		}(handler)
	}
}
