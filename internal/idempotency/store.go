// Package idempotency stores opaque command results keyed by a
// caller-supplied idempotency key, guaranteeing at-most-one execution
// per key even under concurrent duplicate submissions.
package idempotency

import (
	"context"
	"time"

	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

// ErrInFlight is returned by Reserve when another request holds the key
// but has not stored a result yet. Callers surface it as a conflict
// rather than executing the business operation a second time.
var ErrInFlight = appErrors.Clone(appErrors.ErrConflict, "duplicate request in progress")

// StoredResult is the serialized outcome of the first successful
// execution for a key. The store has no knowledge of its contents.
type StoredResult struct {
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides the reserve-or-return primitive that closes the
// check-then-store race. The flow is: Reserve claims the key; the winner
// executes and calls Save (or Release on failure); losers either receive
// the stored result or ErrInFlight.
type Store interface {
	// Get returns the stored result for key, or nil when the key is
	// absent, expired, or only reserved.
	Get(ctx context.Context, key string) (*StoredResult, error)

	// Reserve atomically claims key for execution. It returns
	// (true, nil, nil) when the caller won the claim, and
	// (false, result, nil) when a finished result already exists.
	// (false, nil, ErrInFlight) signals a concurrent execution in
	// progress.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, *StoredResult, error)

	// Save records the result for a previously reserved key. Calling it
	// twice for the same key overwrites with identical semantics.
	Save(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Release drops a reservation after a failed execution so a retry
	// can run. It never removes a finished result.
	Release(ctx context.Context, key string) error
}
