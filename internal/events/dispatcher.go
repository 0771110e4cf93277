package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"alumnet/internal/logger"
)

const (
	DefaultBufferSize     = 256
	defaultHandlerTimeout = 5 * time.Second
)

// Dispatcher delivers events to subscribers from a single background goroutine.
type Dispatcher struct {
	log     *logger.Logger
	queue   chan Event
	timeout time.Duration

	mu     sync.RWMutex
	subs   []Subscriber
	closed bool

	dropped atomic.Int64
	done    chan struct{}
}

// NewDispatcher starts the delivery loop. Close must be called to stop it.
func NewDispatcher(bufferSize int, log *logger.Logger, subs ...Subscriber) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	d := &Dispatcher{
		log:     logger.OrNop(log),
		queue:   make(chan Event, bufferSize),
		timeout: defaultHandlerTimeout,
		subs:    subs,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Subscribe(sub Subscriber) {
	d.mu.Lock()
	d.subs = append(d.subs, sub)
	d.mu.Unlock()
}

// Emit enqueues ev without blocking. The caller's context is not propagated:
// delivery outlives the request that produced the event.
func (d *Dispatcher) Emit(_ context.Context, ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		d.log.Warn("event dropped, buffer full", "type", ev.Type, "entity_id", ev.EntityID)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting events and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		d.mu.RLock()
		subs := make([]Subscriber, len(d.subs))
		copy(subs, d.subs)
		d.mu.RUnlock()

		for _, sub := range subs {
			d.deliver(sub, ev)
		}
	}
}

func (d *Dispatcher) deliver(sub Subscriber, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event subscriber panicked", "subscriber", sub.Name(), "type", ev.Type, "panic", r)
		}
	}()
	if err := sub.Handle(ctx, ev); err != nil {
		d.log.Warn("event subscriber failed", "subscriber", sub.Name(), "type", ev.Type, "error", err)
	}
}
