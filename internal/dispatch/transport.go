package dispatch

import (
	"context"

	"github.com/noah-isme/uni-registrar-api/internal/domain"
)

// Transport is the external event bus collaborator. Delivery is
// fire-and-forget with at-least-once semantics; ordering across
// aggregates is not guaranteed.
type Transport interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
}

// NewTransportHandler bridges a Transport into the dispatcher so bus
// publication shares the per-handler isolation and retry policy.
func NewTransportHandler(name string, transport Transport) Handler {
	return HandlerFunc{
		HandlerName: name,
		Fn: func(ctx context.Context, event domain.DomainEvent) error {
			return transport.Publish(ctx, event)
		},
	}
}
