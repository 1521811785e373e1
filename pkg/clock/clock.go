// Package clock provides an injectable time source so that TTL expiry
// and timestamps stay deterministic under test.
package clock

import "time"

// Clock returns the current time. Production code uses System; tests
// substitute a fixed or stepping function.
type Clock func() time.Time

// System returns a Clock backed by the wall clock in UTC.
func System() Clock {
	return func() time.Time { return time.Now().UTC() }
}

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}
