package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// AlertAsyncEventDropped is raised when PublishAsync cannot queue an event.
const AlertAsyncEventDropped = "async_event_dropped"

// Handler receives a domain event.
type Handler func(ctx context.Context, ev DomainEvent) error

// AlertSink receives named operational alerts.
type AlertSink interface {
	Alert(name string, attrs ...any)
}

// Config sizes the async worker pool.
type Config struct {
	Workers        int
	QueueSize      int
	HandlerTimeout time.Duration
	// EnqueueWait bounds how long PublishAsync waits for queue space for events
	// that must not be dropped on a momentary backlog.
	EnqueueWait time.Duration
	Alerts      AlertSink
}

// queueWaiter is implemented by events worth waiting for queue space.
type queueWaiter interface {
	WaitsForQueue() bool
}

// Bus dispatches events to one specialized handler per concrete event type plus
// listeners that receive every event. PublishAsync fans out to a bounded worker pool.
type Bus struct {
	mu        sync.RWMutex
	handlers  map[reflect.Type]Handler
	listeners []Handler

	queue   chan DomainEvent
	closed  bool
	wg      sync.WaitGroup
	timeout time.Duration
	wait    time.Duration
	alerts  AlertSink
}

// NewBus starts the worker pool. The logging listener is always registered.
func NewBus(cfg Config) *Bus {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	if cfg.EnqueueWait <= 0 {
		cfg.EnqueueWait = 2 * time.Second
	}

	b := &Bus{
		handlers:  make(map[reflect.Type]Handler),
		listeners: []Handler{LoggingListener},
		queue:     make(chan DomainEvent, cfg.QueueSize),
		timeout:   cfg.HandlerTimeout,
		wait:      cfg.EnqueueWait,
		alerts:    cfg.Alerts,
	}
	for i := 0; i < cfg.Workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

// Subscribe registers the handler for events of exactly type E.
// A second handler for the same type is rejected.
func Subscribe[E DomainEvent](b *Bus, h func(ctx context.Context, ev E) error) error {
	t := reflect.TypeFor[E]()

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[t]; ok {
		return fmt.Errorf("handler for %s already registered", t)
	}
	b.handlers[t] = func(ctx context.Context, ev DomainEvent) error {
		typed, ok := ev.(E)
		if !ok {
			return fmt.Errorf("unexpected event type %T", ev)
		}
		return h(ctx, typed)
	}
	return nil
}

// AddListener registers a handler that receives every event.
func (b *Bus) AddListener(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, h)
}

// Publish delivers ev to every listener and its specialized handler before returning.
// A failing handler does not stop delivery to the others; all failures are joined.
func (b *Bus) Publish(ctx context.Context, ev DomainEvent) error {
	if ev == nil {
		return errors.New("nil event")
	}

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.listeners)+1)
	targets = append(targets, b.listeners...)
	if h, ok := b.handlers[reflect.TypeOf(ev)]; ok {
		targets = append(targets, h)
	}
	b.mu.RUnlock()

	var errs []error
	for _, h := range targets {
		if err := b.call(ctx, h, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishAll publishes every event in order, even after a failure.
func (b *Bus) PublishAll(ctx context.Context, events []DomainEvent) error {
	var errs []error
	for _, ev := range events {
		if err := b.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishAsync queues ev for the worker pool. Failures are logged and never returned.
// A full queue drops the event, except for events that wait for queue space up to
// the configured EnqueueWait first.
func (b *Bus) PublishAsync(ev DomainEvent) {
	if ev == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.drop(ev, ErrBusClosed)
		return
	}
	select {
	case b.queue <- ev:
		return
	default:
	}

	if w, ok := ev.(queueWaiter); ok && w.WaitsForQueue() {
		timer := time.NewTimer(b.wait)
		defer timer.Stop()
		select {
		case b.queue <- ev:
			return
		case <-timer.C:
		}
	}
	b.drop(ev, errors.New("event queue full"))
}

// Close stops accepting async events and waits until the queued ones are delivered.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for ev := range b.queue {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		if err := b.Publish(ctx, ev); err != nil {
			slog.Error("async event handler failed",
				"event_type", ev.EventType(),
				"event_id", ev.EventID(),
				"error", err)
		}
		cancel()
	}
}

func (b *Bus) call(ctx context.Context, h Handler, ev DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}

func (b *Bus) drop(ev DomainEvent, reason error) {
	slog.Warn("async event dropped",
		"event_type", ev.EventType(),
		"event_id", ev.EventID(),
		"error", reason)
	if b.alerts != nil {
		b.alerts.Alert(AlertAsyncEventDropped, "event_type", ev.EventType(), "event_id", ev.EventID())
	}
}

// LoggingListener records every event at debug level.
func LoggingListener(_ context.Context, ev DomainEvent) error {
	slog.Debug("domain event",
		"event_type", ev.EventType(),
		"event_id", ev.EventID(),
		"occurred_on", ev.OccurredOn())
	return nil
}
