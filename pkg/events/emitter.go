// Package events provides a small synchronous publish/subscribe emitter.
// Handler failures are isolated: a panicking handler is logged and never
// breaks the emitting caller or the other handlers.
package events

import (
	"fmt"
	"sync"
)

// Event names emitted by the automation controller.
const (
	JobStart    = "job:start"
	JobComplete = "job:complete"
)

// Handler receives the payload published for an event.
type Handler func(payload any)

// ErrorFunc receives handler panics so they can be logged by the owner.
type ErrorFunc func(event string, recovered any)

// Emitter dispatches events synchronously to registered handlers.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	onError  ErrorFunc
}

// NewEmitter creates an Emitter. onError may be nil.
func NewEmitter(onError ErrorFunc) *Emitter {
	return &Emitter{
		handlers: make(map[string][]Handler),
		onError:  onError,
	}
}

// On registers a handler for the named event.
func (e *Emitter) On(event string, h Handler) {
	if h == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], h)
}

// Emit calls every handler registered for the event, in registration order.
// A handler panic is reported through the error callback and does not stop
// the remaining handlers.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers[event]))
	copy(handlers, e.handlers[event])
	e.mu.RUnlock()

	for _, h := range handlers {
		e.dispatch(event, h, payload)
	}
}

func (e *Emitter) dispatch(event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			if e.onError != nil {
				e.onError(event, r)
			}
		}
	}()
	h(payload)
}

// HandlerCount returns the number of handlers registered for an event.
func (e *Emitter) HandlerCount(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}

// String implements fmt.Stringer for debug logging.
func (e *Emitter) String() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	total := 0
	for _, hs := range e.handlers {
		total += len(hs)
	}
	return fmt.Sprintf("events.Emitter{events: %d, handlers: %d}", len(e.handlers), total)
}
