// Package lock provides an exclusive-lock abstraction keyed by
// (resourceType, resourceID). Every read-modify-write against a
// register, a product-location pair, or a location counter acquires
// the matching lock before touching the store and releases it right
// after commit. Two implementations exist: a Redis-backed manager
// for deployments where multiple service instances share one store,
// and an in-process manager used when Redis is not configured and in
// tests. Both bound the acquisition wait; a timeout surfaces as
// ErrTimeout, which callers treat as transient and retry with
// backoff.
package lock

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrTimeout is returned when a lock could not be acquired within
// the configured wait bound. It is transient: the caller should
// retry the whole operation with jittered backoff.
var ErrTimeout = errors.New("lock acquisition timed out")

// Resource types used across the POS core.
const (
	ResourceRegister  = "register"
	ResourceInventory = "inventory"
	ResourceLocation  = "location"
	ResourceOrder     = "order"
)

// Manager serializes access to a named resource. Acquire blocks
// until the lock is held, the wait bound elapses, or ctx is
// cancelled. On success it returns a release function which must be
// called exactly once, immediately after the protected transaction
// commits or rolls back.
type Manager interface {
	Acquire(ctx context.Context, resourceType, resourceID string) (func(), error)
}

// Options bound the lock behaviour shared by both implementations.
type Options struct {
	// WaitTimeout caps how long Acquire blocks before ErrTimeout.
	WaitTimeout time.Duration
	// Lease caps how long a held lock survives a crashed holder.
	// Only meaningful for the Redis manager.
	Lease time.Duration
	// RetryInterval is the base poll interval between acquisition
	// attempts; each sleep gets up to 50% random jitter added.
	RetryInterval time.Duration
}

// DefaultOptions returns the bounds used when none are configured.
func DefaultOptions() Options {
	return Options{
		WaitTimeout:   3 * time.Second,
		Lease:         10 * time.Second,
		RetryInterval: 25 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = def.WaitTimeout
	}
	if o.Lease <= 0 {
		o.Lease = def.Lease
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = def.RetryInterval
	}
	return o
}

// key builds the canonical lock key for a resource.
func key(resourceType, resourceID string) string {
	return "poslock:" + resourceType + ":" + resourceID
}

// jitter returns d plus up to 50% random extra so that contending
// callers do not retry in lockstep.
func jitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}
