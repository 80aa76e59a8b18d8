// Package atomicref provides a lock-free publication cell for persistent
// (immutable, copy-on-write) structures.
//
// A Ref holds the "current" snapshot of a persistent value. Writers derive a
// new snapshot from the one they observed and publish it with a
// compare-and-swap retry loop; readers load whatever snapshot is current.
// No writer blocks a reader and no reader ever observes a partial update.
package atomicref

import "sync/atomic"

// Ref is an atomic reference to a persistent value of type T.
// The zero Ref holds nil; NewRef seeds it with an initial snapshot.
type Ref[T any] struct {
	p atomic.Pointer[T]
}

// NewRef creates a Ref holding the given initial snapshot.
func NewRef[T any](v *T) *Ref[T] {
	r := &Ref[T]{}
	r.p.Store(v)
	return r
}

// Load returns the current snapshot.
func (r *Ref[T]) Load() *T {
	return r.p.Load()
}

// Store unconditionally replaces the current snapshot.
func (r *Ref[T]) Store(v *T) {
	r.p.Store(v)
}

// Update derives a new snapshot from the current one via fn and publishes it,
// retrying the whole derivation on contention. fn must be pure: it may run
// multiple times and must not mutate its argument.
//
// If fn returns an error the update is abandoned and the error returned.
// Returning the input unchanged is a valid no-op.
func (r *Ref[T]) Update(fn func(*T) (*T, error)) (*T, error) {
	for {
		cur := r.p.Load()
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		if next == cur {
			return cur, nil
		}
		if r.p.CompareAndSwap(cur, next) {
			return next, nil
		}
	}
}
