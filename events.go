package beeq

import "sync"

// Event names a queue lifecycle notification.
type Event string

// Events fired by the queue, exactly once per job per terminal transition.
const (
	// EventSucceeded fires after a job's success bookkeeping commits.
	EventSucceeded Event = "succeeded"

	// EventFailed fires after a job's failure bookkeeping commits.
	EventFailed Event = "failed"
)

// EventHandler receives the id of a job that reached a terminal state. For
// EventFailed the handler error carries the cause; for EventSucceeded it is
// nil. Handlers run synchronously on the dispatching worker goroutine, so
// they should return quickly and must not block on the queue itself.
type EventHandler func(jobID string, err error)

// emitter is a minimal publish/subscribe registry keyed by event name. The
// queue owns one instead of inheriting from a generic event-emitting base, so
// the observer surface stays limited to On.
type emitter struct {
	mu       sync.RWMutex
	handlers map[Event][]EventHandler
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[Event][]EventHandler)}
}

func (e *emitter) on(event Event, handler EventHandler) {
	if handler == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], handler)
}

func (e *emitter) emit(event Event, jobID string, err error) {
	e.mu.RLock()
	handlers := e.handlers[event]
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(jobID, err)
	}
}
