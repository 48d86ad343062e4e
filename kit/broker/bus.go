package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

var ErrClosed = errors.New("broker: closed")

type Event interface {
	Name() string
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) []error
}

type Handler func(ctx context.Context, evt Event) error

// Bus delivers events synchronously, in subscription order, to every handler
// registered for the event name. A failing or panicking handler does not stop
// delivery to the others.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
}

func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(eventName string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], h)
}

// SubscribeAll registers h for each of the given event names.
func (b *Bus) SubscribeAll(h Handler, eventNames ...string) {
	for _, name := range eventNames {
		b.Subscribe(name, h)
	}
}

func (b *Bus) Publish(ctx context.Context, evt Event) []error {
	if q, ok := ctx.Value(deferredKey{}).(*deferred); ok {
		q.add(evt)
		return nil
	}
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return []error{ErrClosed}
	}
	hs := append([]Handler(nil), b.handlers[evt.Name()]...)
	b.mu.RUnlock()

	var errs []error
	for i, h := range hs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("layer=broker component=bus method=Publish event=%s handler_index=%d panic=%v", evt.Name(), i, r)
					errs = append(errs, fmt.Errorf("handler %d panicked: %v", i, r))
				}
			}()
			if err := h(ctx, evt); err != nil {
				log.Printf("layer=broker component=bus method=Publish event=%s handler_index=%d err=%v", evt.Name(), i, err)
				errs = append(errs, err)
			}
		}()
	}
	return errs
}

// Close drops every subscription; later publishes return ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[string][]Handler)
}

type deferredKey struct{}

type deferred struct {
	mu     sync.Mutex
	events []Event
}

func (q *deferred) add(evt Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, evt)
}

func (q *deferred) drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	evts := q.events
	q.events = nil
	return evts
}

// Defer returns a context under which Publish only queues events. The
// returned flush delivers the queued events, in order, using the original ctx.
func (b *Bus) Defer(ctx context.Context) (context.Context, func() []error) {
	q := &deferred{}
	return context.WithValue(ctx, deferredKey{}, q), func() []error {
		var errs []error
		for _, evt := range q.drain() {
			errs = append(errs, b.Publish(ctx, evt)...)
		}
		return errs
	}
}
