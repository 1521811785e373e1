// Package dispatch fans domain events out to registered reaction
// handlers with at-least-once delivery semantics.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-registrar-api/internal/domain"
)

// Handler reacts to a single domain event. Handlers must tolerate
// duplicate delivery: a retry after partial failure may redeliver.
type Handler interface {
	Name() string
	Handle(ctx context.Context, event domain.DomainEvent) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, event domain.DomainEvent) error
}

// Name returns the handler name used in outcomes and logs.
func (h HandlerFunc) Name() string { return h.HandlerName }

// Handle invokes the wrapped function.
func (h HandlerFunc) Handle(ctx context.Context, event domain.DomainEvent) error {
	return h.Fn(ctx, event)
}

// Outcome records the delivery result for one handler invocation.
type Outcome struct {
	Event   string
	Handler string
	Err     error
}

// Dispatcher routes events to the handlers subscribed to their name.
// Each handler failure is captured in isolation; one failing reaction
// never prevents the others from running.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	retries  int
	logger   *zap.Logger
}

// NewDispatcher constructs a Dispatcher. retries is the number of
// redelivery attempts per handler after the first failure.
func NewDispatcher(retries int, logger *zap.Logger) *Dispatcher {
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{handlers: make(map[string][]Handler), retries: retries, logger: logger}
}

// Subscribe registers handler for the named event type.
func (d *Dispatcher) Subscribe(eventName string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], handler)
}

// Dispatch delivers each event to every subscribed handler and returns
// one outcome per invocation. Failures are logged and recorded, never
// propagated: events are a notification side-channel, not part of the
// command's transactional result.
func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.DomainEvent) []Outcome {
	var outcomes []Outcome
	for _, event := range events {
		d.mu.RLock()
		handlers := append([]Handler(nil), d.handlers[event.EventName()]...)
		d.mu.RUnlock()

		for _, handler := range handlers {
			err := d.deliver(ctx, handler, event)
			if err != nil {
				d.logger.Warn("event handler failed",
					zap.String("event", event.EventName()),
					zap.String("handler", handler.Name()),
					zap.Error(err),
				)
			}
			outcomes = append(outcomes, Outcome{Event: event.EventName(), Handler: handler.Name(), Err: err})
		}
	}
	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, handler Handler, event domain.DomainEvent) error {
	var lastErr error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.safeHandle(ctx, handler, event); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// safeHandle converts a handler panic into an error so a misbehaving
// reaction cannot take down the command path.
func (d *Dispatcher) safeHandle(ctx context.Context, handler Handler, event domain.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}
