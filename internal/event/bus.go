// Package event provides an explicitly constructed pub/sub bus. Systems
// that publish or subscribe receive a *Bus at construction time; there is
// no package-level instance.
package event

import (
	"log/slog"
	"sync"
)

// Event names published by the coordination core.
const (
	EventMotionBlocked   = "motion.blocked"
	EventEntityLanded    = "entity.landed"
	EventEntityAirborne  = "entity.airborne"
	EventRequestRejected = "request.rejected"
)

type HandlerFunc func(evt any)

// Bus dispatches events synchronously, in subscription order, on the
// caller's goroutine. The game loop is single-threaded; handlers that
// mutate loop state rely on that ordering. Panicking handlers are
// recovered and logged so one bad subscriber cannot halt the loop.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]HandlerFunc),
	}
}

func (b *Bus) Subscribe(eventName string, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

func (b *Bus) Publish(eventName string, evt any) {
	b.mu.RLock()
	handlers := make([]HandlerFunc, len(b.handlers[eventName]))
	copy(handlers, b.handlers[eventName])
	b.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("event handler panicked", "event", eventName, "panic", r)
				}
			}()
			handler(evt)
		}()
	}
}
